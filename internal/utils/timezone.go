package utils

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// ResolveLocation loads tz, then fallback, then UTC.
func ResolveLocation(tz string, fallback string) *time.Location {
	for _, name := range []string{tz, fallback} {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}
