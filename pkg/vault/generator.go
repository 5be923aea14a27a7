package vault

import (
	"math/rand"
	"strconv"
	"strings"
	"unicode"
)

const (
	lowercaseLetters = "abcdefghijklmnopqrstuvwxyz"
	uppercaseLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits           = "0123456789"
	nonZeroDigits    = "123456789"
)

// Tokenize produces a surrogate for a value. FORMAT_PRESERVING surrogates
// are independently randomized per call; stability for a given value comes
// from the store's idempotent creation, which generates once per primary key.
// RANDOM surrogates for STRING (and any unrecognized type) hash the value
// itself and are therefore deterministic.
func Tokenize(method, dataType, value string) string {
	if method == MethodFormatPreserving &&
		(dataType == TypeString || dataType == TypeInt || dataType == TypeFloat) {
		return formatPreservingToken(value)
	}
	switch dataType {
	case TypeInt:
		return strconv.Itoa(rand.Intn(1000001))
	case TypeFloat:
		return strconv.FormatFloat(rand.Float64(), 'f', -1, 64)
	default:
		return DerivePK(value)
	}
}

// formatPreservingToken substitutes every character with a random one of the
// same class: lower for lower, upper for upper, digit for digit. Digits at
// the first or last position never map to '0' so numeric surrogates keep
// their magnitude and sign-off digits survive lexical checks. Everything
// else (punctuation, '@', '.', '+') passes through unchanged, preserving the
// shape of emails and phone numbers.
func formatPreservingToken(input string) string {
	runes := []rune(input)
	last := len(runes) - 1
	var out strings.Builder
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) && unicode.IsLower(r):
			out.WriteByte(lowercaseLetters[rand.Intn(len(lowercaseLetters))])
		case unicode.IsLetter(r) && unicode.IsUpper(r):
			out.WriteByte(uppercaseLetters[rand.Intn(len(uppercaseLetters))])
		case unicode.IsDigit(r) && (i == 0 || i == last):
			out.WriteByte(nonZeroDigits[rand.Intn(len(nonZeroDigits))])
		case unicode.IsDigit(r):
			out.WriteByte(digits[rand.Intn(len(digits))])
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}
