package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/otp-store/internal/domain"
)

// emailPattern accepts a local part of word/dot/hyphen characters,
// one or more dotted domain labels, and a 2-4 character final label.
var emailPattern = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

func init() {
	if err := v.RegisterValidation("otpemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic("register otpemail validation: " + err.Error())
	}
}

// Email reports whether s satisfies the otpemail rule.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	fields, err := Fields(s, nil)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// Fields validates s and returns one FieldError per failing field, in declaration order.
// messages maps "Field.tag" to the message reported for that failure; unmapped failures
// fall back to a generic description.
func Fields(s interface{}, messages map[string]string) ([]domain.FieldError, error) {
	err := v.Struct(s)
	if err == nil {
		return nil, nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, err
	}
	out := make([]domain.FieldError, 0, len(ve))
	for _, fe := range ve {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag())
		}
		out = append(out, domain.FieldError{Field: fe.Field(), Message: msg})
	}
	return out, nil
}
