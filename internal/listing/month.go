package listing

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidMonth is returned by MonthName for input outside 1..12.
var ErrInvalidMonth = errors.New("invalid month")

// MonthName resolves a 1 or 2 digit month number ("9", "09", "12") to its
// English name.
func MonthName(month string) (string, error) {
	if len(month) == 0 || len(month) > 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	n, err := strconv.Atoi(month)
	if err != nil || n < 1 || n > 12 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	// Any year works; only the month is formatted.
	return time.Date(2017, time.Month(n), 1, 0, 0, 0, 0, time.UTC).Format("January"), nil
}

// MonthNameFromKey resolves the month part of a "YYYY-MM" key.
func MonthNameFromKey(key string) (string, error) {
	if len(key) != 7 || key[4] != '-' {
		return "", fmt.Errorf("%w: key %q", ErrInvalidMonth, key)
	}
	return MonthName(key[5:])
}
