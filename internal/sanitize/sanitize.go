// Package sanitize normalizes free-text shipping fields before they are
// snapshotted onto an order.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kahawahub/kahawa/backend/internal/entity"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)
	phoneStrip   = regexp.MustCompile(`[\s()\-.]`)
)

// Text strips markup and control characters from a free-text field and
// collapses runs of whitespace.
func Text(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// Email lowercases, trims and validates an email address.
func Email(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !emailPattern.MatchString(s) {
		return "", fmt.Errorf("invalid email address: %w", entity.ErrValidation)
	}
	return s, nil
}

// Phone removes separators from a phone number and validates the result.
func Phone(s string) (string, error) {
	s = phoneStrip.ReplaceAllString(strings.TrimSpace(s), "")
	if !phonePattern.MatchString(s) {
		return "", fmt.Errorf("invalid phone number: %w", entity.ErrValidation)
	}
	return s, nil
}

// Address sanitizes every free-text field of a shipping address and
// normalizes its email and phone. Missing or invalid email/phone fail.
func Address(a entity.ShippingAddress) (entity.ShippingAddress, error) {
	a.FirstName = Text(a.FirstName)
	a.LastName = Text(a.LastName)
	a.Street = Text(a.Street)
	a.City = Text(a.City)
	a.County = Text(a.County)
	a.Country = Text(a.Country)
	a.PostalCode = Text(a.PostalCode)

	email, err := Email(a.Email)
	if err != nil {
		return entity.ShippingAddress{}, err
	}
	a.Email = email

	phone, err := Phone(a.Phone)
	if err != nil {
		return entity.ShippingAddress{}, err
	}
	a.Phone = phone

	return a, nil
}
