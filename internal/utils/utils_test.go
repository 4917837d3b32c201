package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyTime(t *testing.T) {
	assert.Equal(t, "0:05", PrettyTime(5))
	assert.Equal(t, "1:30", PrettyTime(90))
	assert.Equal(t, "1:01:05", PrettyTime(3665))
}

func TestParseDurationString(t *testing.T) {
	assert.Equal(t, 90, ParseDurationString("90"))
	assert.Equal(t, 90, ParseDurationString("1m30s"))
	assert.Equal(t, 7200, ParseDurationString("2h"))
	assert.Equal(t, 3725, ParseDurationString("1h2m5s"))
	assert.Equal(t, 0, ParseDurationString("garbage"))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "a\\*b\\_c\\`d\\~e", EscapeMarkdown("a*b_c`d~e"))
}

func TestFFmpegHeaders(t *testing.T) {
	out := FFmpegHeaders(map[string]string{"Referer": "https://example.com"})
	assert.Contains(t, out, "Referer: https://example.com\r\n")
	assert.Contains(t, out, "User-Agent: Mozilla/5.0")

	// Caller-supplied agent wins.
	out = FFmpegHeaders(map[string]string{"User-Agent": "custom"})
	assert.Contains(t, out, "User-Agent: custom\r\n")
	assert.Equal(t, 1, strings.Count(out, "User-Agent"))
}
