package api

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"homeweather.app/internal/ports"
)

// RegisterValidators adds the "backend" and "provider" tags to gin's validator
func RegisterValidators(providers []string) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := v.RegisterValidation("backend", validateBackend); err != nil {
		return err
	}

	known := make(map[string]bool, len(providers))
	for _, p := range providers {
		known[p] = true
	}
	return v.RegisterValidation("provider", func(fl validator.FieldLevel) bool {
		return known[fl.Field().String()]
	})
}

func validateBackend(fl validator.FieldLevel) bool {
	return ports.BackendName(fl.Field().String()).IsValid()
}
