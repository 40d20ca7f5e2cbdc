package service

import (
	"regexp"
	"unicode/utf8"

	userdomain "goodies-auth/internal/user/domain"
)

var (
	phoneRe = regexp.MustCompile(`^\d{10,14}$`)
	codeRe  = regexp.MustCompile(`^\d{4,6}$`)
)

const maxTextLen = 50

func validatePhone(phone string) error {
	if !phoneRe.MatchString(phone) {
		return validationError("InvalidPhoneNumber")
	}
	return nil
}

func validateRequestID(id string) error {
	if id == "" {
		return validationError("InvalidRequestID")
	}
	return nil
}

func validateCode(code string) error {
	if !codeRe.MatchString(code) {
		return validationError("InvalidCode")
	}
	return nil
}

// PINs share the code format: 4 to 6 digits.
func validatePIN(pin string) error {
	if !codeRe.MatchString(pin) {
		return validationError("InvalidPIN")
	}
	return nil
}

func validateProfile(p NewAccount) error {
	if n := utf8.RuneCountInString(p.Name); n < 1 || n > maxTextLen {
		return validationError("InvalidName")
	}
	if p.PromoCode != nil {
		if n := utf8.RuneCountInString(*p.PromoCode); n < 1 || n > maxTextLen {
			return validationError("InvalidPromoCode")
		}
	}
	if !userdomain.UserType(p.UserType).Valid() {
		return validationError("InvalidUserType")
	}
	return nil
}

// maskPhone keeps the last four digits for logs and events.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	b := make([]byte, len(phone))
	for i := range b {
		if i < len(phone)-4 {
			b[i] = '*'
		} else {
			b[i] = phone[i]
		}
	}
	return string(b)
}
