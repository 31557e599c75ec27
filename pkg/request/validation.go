package request

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator 预校验接口
// 返回 字段路径 → 错误信息列表；无错误时返回nil
type Validator interface {
	Validate(payload any) map[string][]string
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// RegisterStringRule 注册自定义字符串规则（如isbn校验位）
// 非字符串字段视为校验失败
func RegisterStringRule(tag string, fn func(string) bool) error {
	return engine().RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return fn(fl.Field().String())
	})
}

// =========================================
// MapSchema 针对map载荷（表单数据）
// =========================================

// MapSchema 字段 → validator规则，嵌套map表示嵌套对象
//
//	request.MapSchema{
//	    "title": "required,max=200",
//	    "isbn":  "required,isbn_checksum",
//	    "price": "required,gt=0",
//	}
type MapSchema map[string]any

// Validate 实现Validator
func (s MapSchema) Validate(payload any) map[string][]string {
	data, ok := payload.(map[string]any)
	if !ok {
		return map[string][]string{"": {"payload must be an object"}}
	}

	out := make(map[string][]string)
	collectMap("", engine().ValidateMap(data, map[string]any(s)), out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func collectMap(prefix string, result map[string]any, out map[string][]string) {
	for field, v := range result {
		path := joinPath(prefix, field)
		switch e := v.(type) {
		case map[string]any:
			collectMap(path, e, out)
		case error:
			var verrs validator.ValidationErrors
			if errors.As(e, &verrs) {
				for _, fe := range verrs {
					out[path] = append(out[path], describe(fe))
				}
				continue
			}
			out[path] = append(out[path], e.Error())
		}
	}
}

// =========================================
// StructSchema 针对结构体载荷（validate tag）
// =========================================

// StructSchema 使用结构体上的validate tag
type StructSchema struct{}

// Validate 实现Validator
func (StructSchema) Validate(payload any) map[string][]string {
	err := engine().Struct(payload)
	if err == nil {
		return nil
	}

	out := make(map[string][]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out[""] = []string{err.Error()}
		return out
	}
	for _, fe := range verrs {
		// Namespace形如 Book.author.name，去掉根类型名
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		out[path] = append(out[path], describe(fe))
	}
	return out
}

// ValidatorFunc 函数适配
type ValidatorFunc func(payload any) map[string][]string

// Validate 实现Validator
func (f ValidatorFunc) Validate(payload any) map[string][]string {
	return f(payload)
}

// describe 规则 → 提示文案
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "max":
		return fmt.Sprintf("debe ser como máximo %s", fe.Param())
	case "min":
		return fmt.Sprintf("debe ser como mínimo %s", fe.Param())
	case "gt":
		return fmt.Sprintf("debe ser mayor que %s", fe.Param())
	case "gte":
		return fmt.Sprintf("debe ser mayor o igual que %s", fe.Param())
	case "email":
		return "debe ser un correo válido"
	case "url":
		return "debe ser una URL válida"
	case "oneof":
		return fmt.Sprintf("debe ser uno de: %s", fe.Param())
	case "isbn", "isbn_checksum":
		return "ISBN inválido"
	}
	return fmt.Sprintf("no cumple la regla '%s'", fe.Tag())
}

func joinPath(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

// SortedFields 排序后的字段列表（日志与测试用）
func SortedFields(errs map[string][]string) []string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
