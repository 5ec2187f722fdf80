package validation

import (
	"errors"
	"strings"
)

var (
	ErrPhoneLength     = errors.New("validation: phone number must have 10 digits")
	ErrPhonePrefix     = errors.New("validation: phone number must start with 6, 7, 8 or 9")
	ErrPhoneCharacters = errors.New("validation: phone number contains invalid characters")
	ErrPhonePattern    = errors.New("validation: phone number cannot be a repeated or sequential pattern")
)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

// NormalizePhone strips separators and the +91/0091/91/0 prefixes, then
// checks the remaining 10 digit mobile number. The normalised number is
// returned on success.
func NormalizePhone(raw string) (string, error) {
	digits := phoneSeparators.Replace(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(digits, "+91"):
		digits = digits[3:]
	case strings.HasPrefix(digits, "0091"):
		digits = digits[4:]
	case strings.HasPrefix(digits, "91") && len(digits) == 12:
		digits = digits[2:]
	case strings.HasPrefix(digits, "0") && len(digits) == 11:
		digits = digits[1:]
	}

	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrPhoneCharacters
		}
	}
	if len(digits) != 10 {
		return "", ErrPhoneLength
	}
	if !strings.ContainsRune("6789", rune(digits[0])) {
		return "", ErrPhonePrefix
	}
	if allSame(digits) || sequential(digits) {
		return "", ErrPhonePattern
	}
	return digits, nil
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

// sequential reports whether every digit steps by +1 or every digit steps by
// -1 (mod 10) from its predecessor.
func sequential(digits string) bool {
	if len(digits) < 2 {
		return false
	}
	up, down := true, true
	for i := 1; i < len(digits); i++ {
		prev := int(digits[i-1] - '0')
		cur := int(digits[i] - '0')
		if cur != (prev+1)%10 {
			up = false
		}
		if cur != (prev+9)%10 {
			down = false
		}
	}
	return up || down
}
