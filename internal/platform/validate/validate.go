// Package validate wraps a process-wide go-playground validator with English
// messages, json tag field names and the FFI-specific tags
//
//	ffi_timestamp  yyyydddhhmmss
//	ffi_variant    cal or uncert
//	ffi_mission    kepler or k2
//	ffi_channels   comma separated module.output list
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/product"
	perr "ffiassembler/internal/platform/errors"
)

// Svc holds the validator and its translator
type Svc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	once sync.Once
	svc  *Svc
)

// Get returns the singleton, building it on first use
func Get() *Svc {
	once.Do(func() {
		loc := en.New()
		trans, _ := ut.New(loc, loc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range []string{"json", "yaml"} {
				if name, _, _ := strings.Cut(fld.Tag.Get(key), ","); name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		custom(v, trans, "min", "{0} must be at least {1}", true, nil)
		custom(v, trans, "max", "{0} must be at most {1}", true, nil)
		custom(v, trans, "ffi_timestamp", "{0} must be a yyyydddhhmmss timestamp", false, func(fl validator.FieldLevel) bool {
			return product.ValidateTimestamp(fl.Field().String()) == nil
		})
		custom(v, trans, "ffi_variant", "{0} must be cal or uncert", false, func(fl validator.FieldLevel) bool {
			_, err := product.ParseVariant(fl.Field().String())
			return err == nil
		})
		custom(v, trans, "ffi_mission", "{0} must be kepler or k2", false, func(fl validator.FieldLevel) bool {
			_, err := product.ParseMission(fl.Field().String())
			return err == nil
		})
		custom(v, trans, "ffi_channels", "{0} must be a comma separated list of module.output channels", false, func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" {
				return true
			}
			_, err := focalplane.ParseList(s)
			return err == nil
		})

		svc = &Svc{Validator: v, Translator: trans}
	})
	return svc
}

// custom registers a translation and, when fn is set, the tag itself
func custom(v *validator.Validate, trans ut.Translator, tag, text string, withParam bool, fn validator.Func) {
	if fn != nil {
		_ = v.RegisterValidation(tag, fn)
	}
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			params := []string{fe.Field()}
			if withParam {
				params = append(params, fe.Param())
			}
			msg, _ := t.T(tag, params...)
			return msg
		},
	)
}

// Struct validates s and maps the first failure to a validation error naming the field
func Struct(s any) error {
	err := Get().Validator.Struct(s)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "validator misuse")
	}
	field, msg := FieldAndMessage(err)
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", msg), field)
}

// FieldAndMessage returns the first failing field and its translated message
func FieldAndMessage(err error) (field, message string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Translate(Get().Translator)
	}
	if err == nil {
		return "", ""
	}
	return "", err.Error()
}
