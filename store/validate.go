package store

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"Gin_postgres_redis_inventory/models"
)

var validate = newValidator()

// 字段名取 json 标签，和 ValidationError 里返回给前端的一致
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkLengths 按 validate:"max=N" 标签检查字符串长度，N 与表的列宽一致
func checkLengths(v *models.ValidationError, in any) {
	var errs validator.ValidationErrors
	if !errors.As(validate.Struct(in), &errs) {
		return
	}
	for _, fe := range errs {
		v.Add(fe.Field(), fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	}
}
