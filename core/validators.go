package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// validation tags shared by every domain package
var (
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	classCodeTag   = "classcode"
	classCodeText  = "invalid class code"
	classCodeRegex = regexp.MustCompile(`^[A-Z]{2,8}\d{0,4}$`) // eg. MATH2, BIO101

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewValidator builds the app validator and its english translator with the
// shared tags registered. Domain packages layer their own tags on top via
// their InitValidators.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator("en")
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators wires the shared validation setup onto an existing pair.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report field names as they appear on the wire, not the Go names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerRegexValidation(validate, translator, alphaNumUnderTag, alphaNumUnderText, alphaNumUnderRegex)
	registerRegexValidation(validate, translator, classCodeTag, classCodeText, classCodeRegex)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// registerRegexValidation installs a whole-string regex match as a tag.
func registerRegexValidation(validate *validator.Validate, translator ut.Translator, tag, text string, re *regexp.Regexp) {
	_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	RegisterCustomTranslation(validate, translator, tag, text)
}

// RegisterCustomTranslation maps a validation tag to a fixed error message.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}
