package utils

import "strings"

func Ptr[T any](v T) *T {
	return &v
}

// OrZero dereferences a pointer, treating nil as the zero value. Handy for
// nullable columns like seat_position and tricks_taken.
func OrZero[T comparable](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// StringOrNil maps empty or whitespace-only strings to nil, so optional text
// columns (trump suit) store NULL instead of "".
func StringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
