package domain

import (
	"errors"
	"time"
	"unicode/utf8"
)

// User is an account keyed by a verified phone number.
type User struct {
	ID          string
	PhoneNumber string
	Name        string
	PINHash     string // bcrypt hash; empty until the owner sets a PIN
	ExtraInfo   ExtraInfo
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ExtraInfo is the profile blob stored alongside the account.
type ExtraInfo struct {
	PromoCode string   `json:"promoCode,omitempty"`
	UserType  UserType `json:"userType"`
}

type UserType string

const (
	UserTypeVegan      UserType = "vegan"
	UserTypeVegetarian UserType = "vegetarian"
	UserTypeExploring  UserType = "exploring"
	UserTypeSkip       UserType = "skip"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeVegan, UserTypeVegetarian, UserTypeExploring, UserTypeSkip:
		return true
	}
	return false
}

// HasPIN reports whether the account can log in with a PIN.
func (u *User) HasPIN() bool {
	return u.PINHash != ""
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.PhoneNumber == "" {
		return errors.New("phone number is required")
	}
	if n := utf8.RuneCountInString(u.Name); n < 1 || n > 50 {
		return errors.New("name must be 1-50 characters")
	}
	if !u.ExtraInfo.UserType.Valid() {
		return errors.New("invalid user type")
	}
	if utf8.RuneCountInString(u.ExtraInfo.PromoCode) > 50 {
		return errors.New("promo code must be at most 50 characters")
	}
	return nil
}
