// Package validator registers the request rules gin's binding engine does
// not ship with.
package validator

import (
	"fmt"
	"regexp"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var msisdnPattern = regexp.MustCompile(`^\+?[0-9]{9,12}$`)

// Register adds the custom rules to v:
//
//	msisdn     a phone number of 9 to 12 digits with an optional leading +
//	notfuture  a YYYY-MM-DD date that is not after today (UTC)
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"msisdn":    validateMSISDN,
		"notfuture": validateNotFuture(time.Now),
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s: %w", tag, err)
		}
	}
	return nil
}

// RegisterWithGin installs the rules on gin's default validator.
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return Register(v)
}

func validateMSISDN(fl validator.FieldLevel) bool {
	return msisdnPattern.MatchString(fl.Field().String())
}

func validateNotFuture(now func() time.Time) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := time.Parse(dateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		y, m, day := now().UTC().Date()
		return !d.After(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
	}
}
