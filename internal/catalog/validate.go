package catalog

import (
	"net/mail"
	"net/url"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
)

const (
	maxProductName  = 200
	maxDescription  = 2000
	maxImageURL     = 500
	minUserName     = 2
	maxUserName     = 100
	minPassword     = 8
	maxContactText  = 500
	maxEmailAddress = 255
)

var phonePattern = regexp.MustCompile(`^\d{10,15}$`)

// problems collects field errors so a request reports all of them at once.
type problems []apperr.FieldError

func (p *problems) add(field, msg string) {
	*p = append(*p, apperr.FieldError{Field: field, Message: msg})
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return apperr.Invalid("validation failed", p...)
}

func validEmail(s string) bool {
	if s == "" || len(s) > maxEmailAddress {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func validPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// strongPassword requires an upper case letter, a lower case letter and a digit.
func strongPassword(s string) bool {
	if utf8.RuneCountInString(s) < minPassword {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func validUserName(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= minUserName && n <= maxUserName
}

func validImageURL(s string) bool {
	if len(s) > maxImageURL {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
