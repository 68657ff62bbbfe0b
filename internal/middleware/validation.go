package middleware

import (
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Validation limits.
const (
	MaxNameLength     = 120
	MaxEmailLength    = 254
	MaxPhoneLength    = 40
	MaxCompanyLength  = 160
	MaxMotivation     = 2000
	MaxInterests      = 10
	MaxInterestLength = 40

	// MaxMessageLength keeps the realtime payload well under the database
	// notification size limit.
	MaxMessageLength = 1000

	// MaxRedirectLength bounds the post-login return path.
	MaxRedirectLength = 512
)

// Validation errors.
var (
	ErrNameRequired      = errors.New("full name is required")
	ErrNameTooLong       = errors.New("full name exceeds maximum length")
	ErrEmailInvalid      = errors.New("email address is invalid")
	ErrPhoneTooLong      = errors.New("phone exceeds maximum length")
	ErrCompanyTooLong    = errors.New("company exceeds maximum length")
	ErrMotivationTooLong = errors.New("message exceeds maximum length")
	ErrTooManyInterests  = errors.New("too many interests")
	ErrInterestInvalid   = errors.New("interest is empty or too long")
	ErrContentRequired   = errors.New("message content is required")
	ErrContentTooLong    = errors.New("message content exceeds maximum length")
	ErrRecipientInvalid  = errors.New("recipient id is invalid")
	ErrRecipientSelf     = errors.New("cannot message yourself")
)

// ValidateFullName checks a display name.
func ValidateFullName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ValidateEmail checks that email is a bare address (no display name).
func ValidateEmail(email string) error {
	if email == "" || len(email) > MaxEmailLength {
		return ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(addr.Address, "@") {
		return ErrEmailInvalid
	}
	return nil
}

// ValidateOptional checks the optional application fields.
func ValidateOptional(phone, company, motivation string) error {
	if utf8.RuneCountInString(phone) > MaxPhoneLength {
		return ErrPhoneTooLong
	}
	if utf8.RuneCountInString(company) > MaxCompanyLength {
		return ErrCompanyTooLong
	}
	if utf8.RuneCountInString(motivation) > MaxMotivation {
		return ErrMotivationTooLong
	}
	return nil
}

// ValidateInterests checks the interest tags of an application.
func ValidateInterests(interests []string) error {
	if len(interests) > MaxInterests {
		return ErrTooManyInterests
	}
	for _, i := range interests {
		i = strings.TrimSpace(i)
		if i == "" || utf8.RuneCountInString(i) > MaxInterestLength {
			return ErrInterestInvalid
		}
	}
	return nil
}

// ValidateMessage checks a direct message before it is stored.
func ValidateMessage(senderID, recipientID, content string) error {
	if _, err := uuid.Parse(recipientID); err != nil {
		return ErrRecipientInvalid
	}
	if recipientID == senderID {
		return ErrRecipientSelf
	}
	if strings.TrimSpace(content) == "" {
		return ErrContentRequired
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return ErrContentTooLong
	}
	return nil
}

// SafeRedirect returns target when it is a local absolute path, otherwise
// fallback. Protocol-relative URLs, schemes, hosts, backslashes and control
// characters are rejected.
func SafeRedirect(target, fallback string) string {
	if target == "" || len(target) > MaxRedirectLength {
		return fallback
	}
	if target[0] != '/' || strings.HasPrefix(target, "//") {
		return fallback
	}
	if strings.ContainsAny(target, "\\") {
		return fallback
	}
	for _, r := range target {
		if r < 0x20 || r == 0x7f {
			return fallback
		}
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return fallback
	}
	return target
}
