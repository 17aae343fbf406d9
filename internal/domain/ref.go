package domain

import (
	"strconv"
	"strings"
)

// ParseSeq returns the note number encoded in ref, if ref is purely numeric.
// A leading '#' is accepted ("#12").
func ParseSeq(ref string) (int64, bool) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if ref == "" {
		return 0, false
	}
	for _, r := range ref {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
