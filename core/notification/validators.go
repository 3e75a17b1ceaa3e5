package notification

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasa-app/darasa/core"
)

var (
	notifTypeTag  = "notiftype"
	notifTypeText = "invalid notification type"
)

// InitValidators registers notification-specific validators & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(notifTypeTag, notifTypeValidation)
	core.RegisterCustomTranslation(validate, translator, notifTypeTag, notifTypeText)
}

// notifTypeValidation checks that the provided type is known. AllTypes is
// shared package state and is only ever read here.
func notifTypeValidation(fl validator.FieldLevel) bool {
	typ := fl.Field().String()
	for _, t := range AllTypes {
		if t == typ {
			return true
		}
	}
	return false
}
