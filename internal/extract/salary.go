package extract

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	lowerBoundMarker = "от"
	upperBoundMarker = "до"
	rangeSeparator   = " - "
)

// ParseSalary reads a price badge such as "от 100000 ₸", "до 250 000",
// "150000 - 200000" or "180000" into its lower and upper bounds. A nil bound
// is open.
func ParseSalary(text string) (low, high *int, err error) {
	text = strings.TrimSpace(text)
	switch {
	case strings.Contains(text, lowerBoundMarker):
		n, err := amount(text)
		if err != nil {
			return nil, nil, err
		}
		return &n, nil, nil
	case strings.Contains(text, upperBoundMarker):
		n, err := amount(text)
		if err != nil {
			return nil, nil, err
		}
		return nil, &n, nil
	}

	parts := strings.Split(text, rangeSeparator)
	for _, p := range parts {
		if strings.Contains(p, "-") {
			return nil, nil, fmt.Errorf("%w: %q", ErrMalformedSalaryText, text)
		}
	}
	switch len(parts) {
	case 1:
		n, err := amount(parts[0])
		if err != nil {
			return nil, nil, err
		}
		m := n
		return &n, &m, nil
	case 2:
		a, err := amount(parts[0])
		if err != nil {
			return nil, nil, err
		}
		b, err := amount(parts[1])
		if err != nil {
			return nil, nil, err
		}
		return &a, &b, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrMalformedSalaryText, text)
	}
}

// amount keeps the ASCII digits of s and reads them as one integer.
func amount(s string) (int, error) {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, fmt.Errorf("%w: no digits in %q", ErrMalformedSalaryText, s)
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedSalaryText, s, err)
	}
	return n, nil
}
