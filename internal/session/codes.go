package session

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"
)

const (
	CodeLength  = 6
	codeSymbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	MinInitials = 2
	MaxInitials = 3
)

// NewJoinCode returns a random code of CodeLength uppercase alphanumerics.
func NewJoinCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	for i := range buf {
		buf[i] = codeSymbols[int(buf[i])%len(codeSymbols)]
	}
	return string(buf)
}

// NormalizeCode trims and uppercases a user-typed join code and checks its shape.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != CodeLength {
		return "", fmt.Errorf("%w: join code must be %d characters", ErrValidation, CodeLength)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeSymbols, r) {
			return "", fmt.Errorf("%w: join code must be letters and digits", ErrValidation)
		}
	}
	return code, nil
}

// NormalizeInitials trims and uppercases initials and checks their length.
func NormalizeInitials(initials string) (string, error) {
	initials = strings.ToUpper(strings.TrimSpace(initials))
	n := len([]rune(initials))
	if n < MinInitials || n > MaxInitials {
		return "", fmt.Errorf("%w: initials must be %d-%d characters", ErrValidation, MinInitials, MaxInitials)
	}
	for _, r := range initials {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", fmt.Errorf("%w: initials must be letters and digits", ErrValidation)
		}
	}
	return initials, nil
}
