package utils

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

// EscapeMarkdown escapes the characters Discord treats as formatting.
func EscapeMarkdown(s string) string {
	r := strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`", "~", "\\~")
	return r.Replace(s)
}

// PrettyTime renders seconds as m:ss or h:mm:ss.
func PrettyTime(sec int) string {
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

var reDuration = regexp.MustCompile(`(?i)^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// ParseDurationString accepts plain seconds ("90") or h/m/s notation
// ("1m30s", "2h"). Unparseable input yields 0.
func ParseDurationString(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	m := reDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	return atoi(m[1])*3600 + atoi(m[2])*60 + atoi(m[3])
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	v, _ := strconv.Atoi(s)
	return v
}

// Shuffle permutes the slice in place.
func Shuffle[T any](a []T) {
	rand.Shuffle(len(a), func(i, j int) { a[i], a[j] = a[j], a[i] })
}
