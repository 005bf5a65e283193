package server

import (
	"sync"

	"geoquiz/internal/session"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const maxRoundsPerGame = 20

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("joincode", func(fl validator.FieldLevel) bool {
			_, err := session.NormalizeCode(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("initials", func(fl validator.FieldLevel) bool {
			_, err := session.NormalizeInitials(fl.Field().String())
			return err == nil
		})
	})
}
