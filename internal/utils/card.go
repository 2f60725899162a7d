package utils

import (
	"strings"
	"unicode"

	"bankcards/internal/apperrors"
)

const maskPrefix = "**** **** **** "

// MaskCardNumber derives the display mask for a card number: whitespace is
// stripped and everything but the last four characters is hidden. The mask
// is deterministic, so it also serves as the per-owner duplicate key for
// stored cards without ever comparing plaintext numbers.
func MaskCardNumber(cardNumber string) (string, error) {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cardNumber)

	// Slice runes, not bytes: the tail may hold multibyte characters and
	// the mask doubles as a stored uniqueness key, so it must stay valid
	// UTF-8.
	runes := []rune(stripped)
	digits := 0
	for _, r := range runes {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < 4 {
		return "", apperrors.Validation("card number must contain at least 4 digits")
	}

	return maskPrefix + string(runes[len(runes)-4:]), nil
}
