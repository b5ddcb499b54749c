// Package productcode formats and parses product codes of the form
// PROD-YYYYMMDD-NNN. The sequence is zero-padded to three digits and widens
// past 999 rather than wrapping.
package productcode

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	tag        = "PROD"
	dateLayout = "20060102"
	seqWidth   = 3
)

// Prefix returns the code prefix for the calendar day of t, including the
// trailing separator, e.g. "PROD-20240615-".
func Prefix(t time.Time) string {
	return tag + "-" + t.Format(dateLayout) + "-"
}

// Format joins a prefix from Prefix and a sequence number.
func Format(prefix string, seq int) string {
	return fmt.Sprintf("%s%0*d", prefix, seqWidth, seq)
}

// Parse splits a code into its prefix and numeric sequence.
func Parse(code string) (prefix string, seq int, err error) {
	parts := strings.Split(code, "-")
	if len(parts) != 3 || parts[0] != tag {
		return "", 0, fmt.Errorf("malformed product code %q", code)
	}
	if _, err := time.Parse(dateLayout, parts[1]); err != nil {
		return "", 0, fmt.Errorf("malformed date in product code %q: %w", code, err)
	}
	if len(parts[2]) < seqWidth {
		return "", 0, fmt.Errorf("malformed sequence in product code %q", code)
	}
	seq, err = strconv.Atoi(parts[2])
	if err != nil || seq < 1 {
		return "", 0, fmt.Errorf("malformed sequence in product code %q", code)
	}
	return tag + "-" + parts[1] + "-", seq, nil
}

// Next returns the code following last within prefix. An empty last starts
// the day's sequence at 1.
func Next(prefix, last string) (string, error) {
	if last == "" {
		return Format(prefix, 1), nil
	}
	lastPrefix, seq, err := Parse(last)
	if err != nil {
		return "", err
	}
	if lastPrefix != prefix {
		return "", fmt.Errorf("product code %q does not belong to prefix %q", last, prefix)
	}
	return Format(prefix, seq+1), nil
}
