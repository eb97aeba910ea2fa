package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// legacyDatePattern matches the proprietary wrapper some collectors emit for
// timestamps: /Date(<epoch-ms>)/ with an optional signed 4-digit zone suffix,
// e.g. /Date(1700000000000+0200)/.
var legacyDatePattern = regexp.MustCompile(`/Date\((-?\d+)(?:[+-]\d{4})?\)/`)

// displayTimeLayout is the format used for all rendered timestamps.
const displayTimeLayout = "2006-01-02 15:04:05"

// NormalizeLegacyDate converts a legacy /Date(ms)/ wrapper into a display
// string for the same instant. Strings that do not match the wrapper (ISO
// dates, free text, garbage) pass through unchanged; the function never
// returns an error.
func NormalizeLegacyDate(raw string) string {
	cleaned := stripArtifacts(raw)

	m := legacyDatePattern.FindStringSubmatch(cleaned)
	if m == nil {
		return raw
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return raw
	}
	return time.UnixMilli(ms).UTC().Format(displayTimeLayout)
}

// stripArtifacts removes control characters and stray byte-order marks that
// legacy exporters leave embedded in string values.
func stripArtifacts(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F || r == '\uFEFF' {
			return -1
		}
		return r
	}, s)
}
