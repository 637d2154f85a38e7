package booking

import "strings"

// CountSeats returns the number of non-empty, trimmed, comma separated
// labels in list.
func CountSeats(list string) int {
	return len(SplitSeats(list))
}

// ValidateSeats checks the declared seat count against the seat list.
// declared must be at least one and equal CountSeats(list).
func ValidateSeats(list string, declared int) error {
	if declared < 1 {
		return ErrInvalidSeatCount
	}
	if actual := CountSeats(list); actual != declared {
		return &SeatCountMismatchError{Actual: actual, Declared: declared}
	}
	return nil
}

// SplitSeats returns the trimmed, non-empty labels of list in order.
func SplitSeats(list string) []string {
	out := []string{}
	for _, tok := range strings.Split(list, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
