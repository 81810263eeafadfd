package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/session"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

// Setup registers the validator with English translations on Gin's binding engine.
// Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		// Use JSON tag name for field names in error messages.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		// Register English translations.
		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		en_translations.RegisterDefaultTranslations(v, trans)

		registerCustom(v)
	}
}

// custom tags bound by bridge request payloads.
var custom = []struct {
	tag     string
	fn      govalidator.Func
	message string
}{
	{"violation_type", isViolationType, "{0} must be a known integrity event type"},
	{"nav_direction", isNavDirection, "{0} must be forward or backward"},
}

func registerCustom(v *govalidator.Validate) {
	for _, c := range custom {
		_ = v.RegisterValidation(c.tag, c.fn)
		message := c.message
		_ = v.RegisterTranslation(c.tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(c.tag, message, true)
			},
			func(ut ut.Translator, fe govalidator.FieldError) string {
				t, _ := ut.T(fe.Tag(), fe.Field())
				return t
			},
		)
	}
}

func isViolationType(fl govalidator.FieldLevel) bool {
	return model.EventType(fl.Field().String()).Valid()
}

func isNavDirection(fl govalidator.FieldLevel) bool {
	switch session.Direction(fl.Field().String()) {
	case session.Forward, session.Backward:
		return true
	}
	return false
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name to human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// BindQuery binds and validates query parameters into dst.
func BindQuery(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindQuery(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
