package handlers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Polytraders/polytraders/service"
)

var registerOnce sync.Once

// registerValidators installs custom binding rules on gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("decimal", validateDecimal)
	})
}

// validateDecimal accepts strings that parse as an in-range P&L amount.
func validateDecimal(fl validator.FieldLevel) bool {
	_, err := service.ParseProfitLoss(fl.Field().String())
	return err == nil
}
