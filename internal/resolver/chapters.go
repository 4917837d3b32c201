package resolver

import (
	"regexp"
	"sort"
	"strings"
)

// chapter is one titled span carved out of a longer video.
type chapter struct {
	Label  string
	Start  int
	Length int
}

var timestampRe = regexp.MustCompile(`(?:\d+:)+\d+`)

// parseChapters extracts a chapter list from a video description. Only
// lines carrying exactly one timestamp count, and the list is trusted only
// when it starts at 0:00; anything else is lyrics or a comment quoting a
// moment, not a chapter index.
func parseChapters(description string, durationSec int) []chapter {
	type mark struct {
		label string
		start int
	}
	var marks []mark
	sawZero := false

	for _, line := range strings.Split(description, "\n") {
		stamps := timestampRe.FindAllString(line, -1)
		if len(stamps) != 1 {
			continue
		}
		secs := parseTimestamp(stamps[0])
		if !sawZero {
			if secs != 0 {
				continue
			}
			sawZero = true
		}
		marks = append(marks, mark{label: chapterLabel(line, stamps[0]), start: secs})
	}

	if !sawZero || len(marks) == 0 {
		return nil
	}

	sort.Slice(marks, func(i, j int) bool { return marks[i].start < marks[j].start })

	out := make([]chapter, 0, len(marks))
	for i, m := range marks {
		end := durationSec
		if i < len(marks)-1 {
			end = marks[i+1].start
		}
		if end <= m.start || m.start < 0 {
			continue
		}
		out = append(out, chapter{Label: m.label, Start: m.start, Length: end - m.start})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// chapterLabel strips the timestamp and surrounding separators from a line,
// handling both "Intro 0:00" and "0:00 - Intro" layouts.
func chapterLabel(line, stamp string) string {
	label := strings.TrimSpace(strings.TrimPrefix(line, stamp))
	if label == "" || label == line {
		parts := strings.Split(line, stamp)
		if len(parts) > 1 {
			label = strings.TrimSpace(parts[1])
		}
	}
	label = strings.TrimLeft(label, "-:–—|> ")
	label = strings.TrimRight(label, "-:–—|< ")
	label = strings.TrimSpace(label)
	if label == "" {
		// Label precedes the stamp, e.g. "Intro 0:00".
		label = strings.TrimSpace(strings.Split(line, stamp)[0])
		label = strings.TrimRight(label, "-:–—|> [(")
		label = strings.TrimSpace(label)
	}
	if label == "" {
		label = "Chapter"
	}
	return label
}

func parseTimestamp(s string) int {
	total := 0
	for _, p := range strings.Split(s, ":") {
		n := 0
		for i := 0; i < len(p); i++ {
			if c := p[i]; c >= '0' && c <= '9' {
				n = n*10 + int(c-'0')
			}
		}
		total = total*60 + n
	}
	return total
}
