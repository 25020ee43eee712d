package httpserver

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"printarcade/internal/domain"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// registerValidators adds the sessiontoken tag to gin's binding validator.
func registerValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
			return
		}
		registerErr = v.RegisterValidation("sessiontoken", func(fl validator.FieldLevel) bool {
			return domain.ValidSessionToken(fl.Field().String())
		})
	})
	return registerErr
}
