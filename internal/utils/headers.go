package utils

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

// RandomUserAgent returns a plausible desktop Chrome user agent. Rotating
// the major version keeps CDNs from pinning one stale signature.
func RandomUserAgent() string {
	const minMajor, maxMajor = 132, 140
	major := rand.IntN(maxMajor-minMajor+1) + minMajor
	return fmt.Sprintf(
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36",
		major,
	)
}

// FFmpegHeaders renders request headers in the CRLF-joined "Key: Value"
// form ffmpeg's -headers option expects. A User-Agent is filled in when the
// caller did not provide one.
func FFmpegHeaders(h map[string]string) string {
	merged := make(map[string]string, len(h)+1)
	for k, v := range h {
		merged[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if _, ok := merged["User-Agent"]; !ok {
		merged["User-Agent"] = RandomUserAgent()
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, merged[k])
	}
	return b.String()
}
