// Package catalog 后台管理的实体记录
//
// 说明：
// 1. 这些类型是REST API返回记录的客户端视图，持久化由上游服务负责
// 2. 价格沿用“分”为单位（int64），避免浮点精度问题
// 3. 所有实体实现Record接口，看板引擎通过EntityID定位记录
package catalog

import "time"

// Record 看板可展示的实体
type Record interface {
	EntityID() string
}

// 实体名（与REST路径、共享分页的key一致）
const (
	EntityBooks              = "books"
	EntityAuthors            = "authors"
	EntityGenres             = "genres"
	EntityPublishers         = "publishers"
	EntityUsers              = "users"
	EntityInventoryMovements = "inventory-movements"
	EntityAudit              = "audit"
)

// Book 图书
type Book struct {
	ID          string    `json:"id"`
	ISBN        string    `json:"isbn"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Price       int64     `json:"price"` // 分
	Stock       int       `json:"stock"`
	AuthorID    string    `json:"authorId,omitempty"`
	GenreID     string    `json:"genreId,omitempty"`
	PublisherID string    `json:"publisherId,omitempty"`
	PublishedAt string    `json:"publicationDate,omitempty"`
	CoverURL    string    `json:"coverImageUrl,omitempty"`
	IsAvailable bool      `json:"isAvailable"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// EntityID 实现Record
func (b Book) EntityID() string { return b.ID }

// Author 作者
type Author struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Nationality string    `json:"nationality,omitempty"`
	BirthDate   string    `json:"birthDate,omitempty"`
	Biography   string    `json:"biography,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// EntityID 实现Record
func (a Author) EntityID() string { return a.ID }

// FullName 展示用全名
func (a Author) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Genre 图书类别
type Genre struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// EntityID 实现Record
func (g Genre) EntityID() string { return g.ID }

// Publisher 出版社
type Publisher struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Country     string    `json:"country,omitempty"`
	WebsiteURL  string    `json:"websiteUrl,omitempty"`
	FoundedYear int       `json:"foundedYear,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// EntityID 实现Record
func (p Publisher) EntityID() string { return p.ID }

// Role 后台用户角色
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User 后台用户（不含密码）
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// EntityID 实现Record
func (u User) EntityID() string { return u.ID }

// MovementType 库存变动类型
type MovementType string

const (
	MovementPurchase   MovementType = "PURCHASE"   // 进货
	MovementSale       MovementType = "SALE"       // 销售
	MovementAdjustment MovementType = "ADJUSTMENT" // 盘点调整
	MovementReturn     MovementType = "RETURN"     // 退货
)

// InventoryMovement 库存变动记录（只增不改）
type InventoryMovement struct {
	ID            string       `json:"id"`
	BookID        string       `json:"bookId"`
	UserID        string       `json:"userId,omitempty"`
	MovementType  MovementType `json:"movementType"`
	Quantity      int          `json:"quantity"`
	BeforeStock   int          `json:"quantityBefore"`
	AfterStock    int          `json:"quantityAfter"`
	Reason        string       `json:"reason,omitempty"`
	ReferenceCode string       `json:"referenceCode,omitempty"`
	CreatedAt     time.Time    `json:"createdAt,omitempty"`
}

// EntityID 实现Record
func (m InventoryMovement) EntityID() string { return m.ID }

// Delta 变动对库存的影响（正数增加，负数减少）
func (m InventoryMovement) Delta() int {
	return m.AfterStock - m.BeforeStock
}

// AuditLog 审计日志（只读）
type AuditLog struct {
	ID         string         `json:"id"`
	UserID     string         `json:"performedBy,omitempty"`
	EntityName string         `json:"entityType"`
	EntityRef  string         `json:"entityId"`
	Action     string         `json:"action"`
	Details    string         `json:"details,omitempty"`
	Changes    map[string]any `json:"changes,omitempty"`
	IPAddress  string         `json:"ipAddress,omitempty"`
	CreatedAt  time.Time      `json:"createdAt,omitempty"`
}

// EntityID 实现Record
func (a AuditLog) EntityID() string { return a.ID }
