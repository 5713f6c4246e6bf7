package models

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation         = errors.New("validation error")       // 400
	ErrInvalidCredentials = errors.New("invalid credentials")    // 401
	ErrNotFound           = errors.New("not found")              // 404
	ErrDuplicate          = errors.New("already exists")         // 409
	ErrInsufficientStock  = errors.New("insufficient available") // 409
	ErrAlreadyReturned    = errors.New("already returned")       // 409
	ErrUnavailable        = errors.New("store unavailable")      // 503: remote and local both failed
)

// ValidationError 字段级校验错误，errors.Is(err, ErrValidation) 为真
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": invalid " + v.fieldList()
}

func (v *ValidationError) Is(target error) bool { return target == ErrValidation }

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// OrNil 没有字段错误时返回 nil，方便 `return v.OrNil()`
func (v *ValidationError) OrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationError) fieldList() string {
	keys := make([]string, 0, len(v.FieldErrors))
	for k := range v.FieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
