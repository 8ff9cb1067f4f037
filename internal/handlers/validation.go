package handlers

import (
	"errors"

	"github.com/SscSPs/blog_backend/internal/utils"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the custom binding tags used by the request DTOs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return utils.ValidatePasswordPolicy(fl.Field().String()) == nil
	})
}
