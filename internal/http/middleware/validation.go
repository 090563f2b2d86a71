package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the custom binding rules used by request DTOs:
//
//	notblank  string fields must contain a non-whitespace character
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return v.RegisterValidation("notblank", notBlank)
}

func notBlank(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.String:
		return strings.TrimSpace(f.String()) != ""
	case reflect.Ptr:
		if f.IsNil() {
			return true
		}
		if f.Elem().Kind() == reflect.String {
			return strings.TrimSpace(f.Elem().String()) != ""
		}
		return true
	default:
		return !f.IsZero()
	}
}
