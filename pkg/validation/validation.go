package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
)

var (
	v    *validator.Validate
	once sync.Once
)

// Validator returns a singleton validator that reports fields by wire name.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their wire name (json, then toml) instead of the Go name.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range []string{"json", "toml"} {
				name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
	return v
}

// ValidateStruct validates a struct and returns a user-friendly message
// suitable for tool errors. Returns empty string when valid.
func ValidateStruct(s any) string {
	err := Validator().Struct(s)
	if err == nil {
		return ""
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid inputs"
	}
	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port", field)
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, fe.Param())
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("invalid %s", field)
}

// Params validates a typed tool request, returning an INVALID_PARAMETERS error.
func Params(s any) error {
	if msg := ValidateStruct(s); msg != "" {
		return mcperr.New(mcperr.InvalidParameters, msg)
	}
	return nil
}
