package group

import (
	"github.com/go-playground/validator/v10"

	"github.com/grupka/grupka/core"
)

var (
	groupRoleTag  = "grouprole"
	groupRoleText = "role must be one of admin or member"
)

func init() {
	_ = core.Validate.RegisterValidation(groupRoleTag, groupRoleValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, groupRoleTag, groupRoleText)
}

func groupRoleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).Valid()
}
