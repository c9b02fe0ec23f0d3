package child

import (
	"github.com/go-playground/validator/v10"

	"github.com/grupka/grupka/core"
)

var (
	birthDateTag  = "birthdate"
	birthDateText = ErrInvalidBirthDate.Error()
)

func init() {
	_ = core.Validate.RegisterValidation(birthDateTag, birthDateValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, birthDateTag, birthDateText)
}

// birthDateValidation accepts empty strings so that updates can clear the date.
func birthDateValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := ParseBirthDate(s)
	return err == nil
}
