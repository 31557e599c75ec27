package adapter

import "github.com/xiebiao/bookstore-admin/internal/domain/catalog"

// crud 拥有完整CRUD与三种搜索的资源
func crud(base string) Endpoints {
	return Endpoints{
		Base:           base,
		Search:         base + "/search",
		QuickFilter:    base + "/filter",
		AdvancedFilter: base + "/advanced-filter",
		Export:         base + "/export",
		Create:         true,
		Update:         true,
		Delete:         true,
	}
}

// Descriptors 各实体的端点
var Descriptors = map[string]Endpoints{
	catalog.EntityBooks:      crud("/books"),
	catalog.EntityAuthors:    crud("/authors"),
	catalog.EntityGenres:     crud("/genres"),
	catalog.EntityPublishers: crud("/publishers"),
	catalog.EntityUsers: {
		Base:           "/users",
		Search:         "/users/search",
		QuickFilter:    "/users/filter",
		AdvancedFilter: "/users/advanced-filter",
		Export:         "/users/export",
		Create:         true,
		Update:         true,
		Delete:         true,
	},
	// 库存流水只能新增，不能修改或删除
	catalog.EntityInventoryMovements: {
		Base:           "/inventory-movements",
		QuickFilter:    "/inventory-movements/filter",
		AdvancedFilter: "/inventory-movements/advanced-filter",
		Export:         "/inventory-movements/export",
		Create:         true,
	},
	// 审计日志只读，快速过滤参数为filter
	catalog.EntityAudit: {
		Base:             "/audit",
		QuickFilter:      "/audit/filter",
		QuickFilterParam: "filter",
		AdvancedFilter:   "/audit/advanced-filter",
		Export:           "/audit/export",
	},
}

// Books 图书适配器
func Books(c Doer) Service[catalog.Book] {
	return NewResource[catalog.Book](c, catalog.EntityBooks, Descriptors[catalog.EntityBooks])
}

// Authors 作者适配器
func Authors(c Doer) Service[catalog.Author] {
	return NewResource[catalog.Author](c, catalog.EntityAuthors, Descriptors[catalog.EntityAuthors])
}

// Genres 类别适配器
func Genres(c Doer) Service[catalog.Genre] {
	return NewResource[catalog.Genre](c, catalog.EntityGenres, Descriptors[catalog.EntityGenres])
}

// Publishers 出版社适配器
func Publishers(c Doer) Service[catalog.Publisher] {
	return NewResource[catalog.Publisher](c, catalog.EntityPublishers, Descriptors[catalog.EntityPublishers])
}

// Users 用户适配器
func Users(c Doer) Service[catalog.User] {
	return NewResource[catalog.User](c, catalog.EntityUsers, Descriptors[catalog.EntityUsers])
}

// InventoryMovements 库存流水适配器
func InventoryMovements(c Doer) Service[catalog.InventoryMovement] {
	return NewResource[catalog.InventoryMovement](c, catalog.EntityInventoryMovements, Descriptors[catalog.EntityInventoryMovements])
}

// Audit 审计日志适配器
func Audit(c Doer) Service[catalog.AuditLog] {
	return NewResource[catalog.AuditLog](c, catalog.EntityAudit, Descriptors[catalog.EntityAudit])
}
