package globals

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Context keys
type ContextKey string

const (
	UserIDKey ContextKey = "userId"
	RoleKey   ContextKey = "role"
	ClaimsKey ContextKey = "claims"
)

// Validate is the shared validator. Field errors are reported by json name.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("hhmm", validateHHMM)
	_ = v.RegisterValidation("yyyymmdd", validateDate)
	return v
}

// validateHHMM accepts a 24h "15:04" clock value.
func validateHHMM(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return isDigits(s[:2]) && isDigits(s[3:]) && h < 24 && m < 60
}

func validateDate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len(s) == 10 && s[4] == '-' && s[7] == '-' &&
		isDigits(s[:4]) && isDigits(s[5:7]) && isDigits(s[8:])
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
