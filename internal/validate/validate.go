// Package validate provides a process-wide singleton of go-playground's
// validator, shared by pkg/pool's Option struct and internal/config's
// Config struct so both validate against the same tag conventions.
package validate

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Get returns the singleton validator instance, built on first use.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s against its `validate:"..."` tags.
func Struct(s any) error {
	return Get().Struct(s)
}
