// Package ident implements the record-ID convention used by rents and
// reviews: a fixed alphabetic prefix followed by a zero-padded number,
// e.g. "REN00042" or "R0000042".
package ident

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

var ErrMalformed = errors.New("malformed record id")

// Next returns the identifier that follows last: the numeric tail is
// incremented and re-padded to its original width, the prefix is kept
// as-is. Both the 3-letter+5-digit and the 1-letter+7-digit shapes
// (and anything in between) round-trip.
func Next(last string) (string, error) {
	split := 0
	for split < len(last) && unicode.IsLetter(rune(last[split])) {
		split++
	}
	prefix, tail := last[:split], last[split:]
	if prefix == "" || tail == "" {
		return "", ErrMalformed
	}
	n, err := strconv.Atoi(tail)
	if err != nil {
		return "", ErrMalformed
	}
	return fmt.Sprintf("%s%0*d", prefix, len(tail), n+1), nil
}
