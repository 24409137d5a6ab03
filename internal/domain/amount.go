package domain

import (
	"fmt"
	"strings"
)

// Amounts are carried internally as integer paisa (NPR minor units) so that
// no floating point touches verification math. Gateways report rupee amounts
// as strings ("120", "120.5", sometimes "1,000.0") or paisa as numbers; the
// two helpers below are the only conversion points.

// ParsePaisa converts a rupee amount string to paisa. Thousands separators
// are tolerated, more than two decimal places are not.
func ParsePaisa(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrValidation)
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: amount %q has sub-paisa precision", ErrValidation, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	var paisa int64
	for _, digits := range []string{whole, frac} {
		for _, r := range digits {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("%w: malformed amount %q", ErrValidation, s)
			}
			paisa = paisa*10 + int64(r-'0')
		}
	}
	if paisa <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return paisa, nil
}

// FormatRupees renders paisa as a rupee string, omitting the fraction for
// whole-rupee amounts ("120" rather than "120.00").
func FormatRupees(paisa int64) string {
	if paisa%100 == 0 {
		return fmt.Sprintf("%d", paisa/100)
	}
	return fmt.Sprintf("%d.%02d", paisa/100, paisa%100)
}
