package dashboard

import (
	"encoding/json"
	"fmt"
)

// CRUDCapability CRUD能力
type CRUDCapability uint8

const (
	CapCreate CRUDCapability = 1 << iota
	CapRead
	CapUpdate
	CapDelete
)

var crudNames = map[CRUDCapability]string{
	CapCreate: "create",
	CapRead:   "read",
	CapUpdate: "update",
	CapDelete: "delete",
}

func (c CRUDCapability) String() string {
	if name, ok := crudNames[c]; ok {
		return name
	}
	return fmt.Sprintf("crud(%d)", uint8(c))
}

// SearchCapability 搜索能力
type SearchCapability uint8

const (
	SearchAuto SearchCapability = 1 << iota
	SearchSimple
	SearchAdvanced
)

var searchNames = map[SearchCapability]string{
	SearchAuto:     "auto",
	SearchSimple:   "simple",
	SearchAdvanced: "advanced",
}

func (c SearchCapability) String() string {
	if name, ok := searchNames[c]; ok {
		return name
	}
	return fmt.Sprintf("search(%d)", uint8(c))
}

// exportCapability 导出能力（单值）
type exportCapability struct{}

func (exportCapability) String() string { return "export" }

// CapExport 导出
var CapExport Capability = exportCapability{}

// Capability CRUDCapability | SearchCapability | CapExport
type Capability interface {
	fmt.Stringer
	capability()
}

func (CRUDCapability) capability()   {}
func (SearchCapability) capability() {}
func (exportCapability) capability() {}

// CRUDSet CRUD能力集合
type CRUDSet uint8

// NewCRUDSet 构造集合
func NewCRUDSet(caps ...CRUDCapability) CRUDSet {
	var s CRUDSet
	for _, c := range caps {
		s |= CRUDSet(c)
	}
	return s
}

// FullCRUD create/read/update/delete
func FullCRUD() CRUDSet {
	return NewCRUDSet(CapCreate, CapRead, CapUpdate, CapDelete)
}

// Has 是否包含
func (s CRUDSet) Has(c CRUDCapability) bool {
	return c != 0 && s&CRUDSet(c) == CRUDSet(c)
}

// List 按固定顺序列出
func (s CRUDSet) List() []string {
	out := []string{}
	for _, c := range []CRUDCapability{CapCreate, CapRead, CapUpdate, CapDelete} {
		if s.Has(c) {
			out = append(out, c.String())
		}
	}
	return out
}

// MarshalJSON 序列化为 ["create","read",...]
func (s CRUDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// SearchSet 搜索能力集合
type SearchSet uint8

// NewSearchSet 构造集合
func NewSearchSet(caps ...SearchCapability) SearchSet {
	var s SearchSet
	for _, c := range caps {
		s |= SearchSet(c)
	}
	return s
}

// Has 是否包含
func (s SearchSet) Has(c SearchCapability) bool {
	return c != 0 && s&SearchSet(c) == SearchSet(c)
}

// List 按固定顺序列出
func (s SearchSet) List() []string {
	out := []string{}
	for _, c := range []SearchCapability{SearchAuto, SearchSimple, SearchAdvanced} {
		if s.Has(c) {
			out = append(out, c.String())
		}
	}
	return out
}

// MarshalJSON 序列化为 ["auto","simple",...]
func (s SearchSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// Capabilities 看板能力
type Capabilities struct {
	CRUD   CRUDSet   `json:"crud"`
	Search SearchSet `json:"search"`
	Export bool      `json:"export"`
}

// IsAllowed 纯函数：能力是否开启
// 所有会改变状态的处理函数都必须先调用它，未开启时直接返回
func IsAllowed(cfg Config, c Capability) bool {
	switch v := c.(type) {
	case CRUDCapability:
		return cfg.Capabilities.CRUD.Has(v)
	case SearchCapability:
		return cfg.Capabilities.Search.Has(v)
	case exportCapability:
		return cfg.Capabilities.Export
	}
	return false
}

