// Package validation holds the field checks the login and create-user forms
// run before anything is sent to the API.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"

	"inventario/internal/api/dto"
)

const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"
)

const (
	MsgEmailRequired    = "Email is required."
	MsgEmailInvalid     = "Enter a valid email address."
	MsgPasswordRequired = "Password is required."
	MsgPasswordShort    = "Password must be at least 6 characters."
	MsgNameShort        = "Name must be at least 2 characters."
)

const (
	MinPasswordLength = 6
	MinNameLength     = 2
)

// space is the whitespace set of a browser regexp's \s, which is wider than
// Go's ASCII-only \s.
const space = `\t\n\v\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}`

var emailPattern = regexp.MustCompile(`^[^` + space + `@]+@[^` + space + `@]+\.[^` + space + `@]+$`)

// Validate is shared by every form. It reports fields by their JSON names.
var Validate = newValidator()

// FieldErrors maps a field name to the text shown under that input.
type FieldErrors map[string]string

func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// The stock "email" tag follows RFC 5322 and rejects inputs the forms accept.
	mustRegister(v, "emailshape", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	mustRegister(v, "passwordlen", func(fl validator.FieldLevel) bool {
		return IsValidPassword(fl.Field().String())
	})
	mustRegister(v, "fullname", func(fl validator.FieldLevel) bool {
		return IsValidName(fl.Field().String())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func IsValidPassword(p string) bool {
	return p != "" && length(p) >= MinPasswordLength
}

func IsValidName(name string) bool {
	return length(Trim(name)) >= MinNameLength
}

// Trim strips the same whitespace a browser's String.prototype.trim does.
func Trim(s string) string {
	return strings.TrimFunc(s, isSpace)
}

// length counts UTF-16 code units, so "😀" is two long, as in the browser.
func length(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0x00A0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}

// ValidateLogin checks every login field and returns all failures at once.
func ValidateLogin(req dto.LoginRequest) FieldErrors {
	return collect(Validate.Struct(req))
}

// ValidateCreateUser checks name, email and password. Role is not checked.
func ValidateCreateUser(req dto.CreateUserRequest) FieldErrors {
	return collect(Validate.Struct(req))
}

func collect(err error) FieldErrors {
	errs := FieldErrors{}
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// only reachable on a programming error such as a nil struct
		panic(err)
	}

	for _, fe := range verrs {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs[fe.Field()] = message(fe.Field(), fe.Tag())
	}
	return errs
}

func message(field, tag string) string {
	switch field {
	case FieldEmail:
		if tag == "required" {
			return MsgEmailRequired
		}
		return MsgEmailInvalid
	case FieldPassword:
		if tag == "required" {
			return MsgPasswordRequired
		}
		return MsgPasswordShort
	case FieldName:
		return MsgNameShort
	}
	return "Invalid value."
}
