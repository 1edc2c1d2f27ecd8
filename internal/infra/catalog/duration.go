package catalog

import (
	"regexp"
	"strconv"
)

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration converts an ISO-8601 duration such as PT1H2M3S to seconds.
// Every component is optional. It returns nil for an empty or malformed value.
func ParseDuration(s string) *int64 {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return nil
	}

	multipliers := [...]int64{86400, 3600, 60, 1}

	var total int64
	matched := false
	for i, mult := range multipliers {
		part := m[i+1]
		if part == "" {
			continue
		}

		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil
		}
		total += n * mult
		matched = true
	}

	if !matched {
		return nil
	}

	return &total
}
