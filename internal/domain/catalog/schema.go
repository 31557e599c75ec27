package catalog

import (
	"fmt"

	"github.com/xiebiao/bookstore-admin/pkg/request"
)

// RuleISBN 表单校验使用的自定义规则名
const RuleISBN = "isbn_checksum"

func init() {
	if err := request.RegisterStringRule(RuleISBN, ValidISBN); err != nil {
		panic(fmt.Sprintf("register %s rule: %v", RuleISBN, err))
	}
}

// FormSchemas 各实体表单的预校验规则
// 说明：表单提交前在客户端拦截明显错误，服务端仍会做完整校验
var FormSchemas = map[string]request.MapSchema{
	EntityBooks: {
		"title":       "required,max=255",
		"isbn":        "required," + RuleISBN,
		"price":       "required,gt=0",
		"stock":       "omitempty,gte=0",
		"authorId":    "required",
		"genreId":     "required",
		"publisherId": "required",
	},
	EntityAuthors: {
		"firstName":   "required,max=100",
		"lastName":    "required,max=100",
		"nationality": "omitempty,max=100",
	},
	EntityGenres: {
		"name":        "required,max=100",
		"description": "omitempty,max=500",
	},
	EntityPublishers: {
		"name":       "required,max=150",
		"country":    "omitempty,max=100",
		"websiteUrl": "omitempty,url",
	},
	EntityUsers: {
		"username": "required,min=3,max=50",
		"email":    "required,email",
		"role":     "omitempty,oneof=admin user",
	},
	EntityInventoryMovements: {
		"bookId":       "required",
		"movementType": "required,oneof=PURCHASE SALE ADJUSTMENT RETURN",
		"quantity":     "required,gt=0",
	},
}

// FormSchema 返回实体的表单规则，未定义时返回nil（不做预校验）
func FormSchema(entity string) request.Validator {
	if s, ok := FormSchemas[entity]; ok {
		return s
	}
	return nil
}
