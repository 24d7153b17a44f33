// Package textnorm holds the text canonicalization shared by ingestion and
// search: accent folding, patient name keys, day/month/year dates and CSV
// column names.
package textnorm

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	dateLayout = "2/1/2006"
	isoLayout  = "2006-01-02"
)

// StripAccents removes combining marks after canonical decomposition, so
// "Pérez" becomes "Perez" and "Muñoz" becomes "Munoz".
func StripAccents(s string) string {
	// transform chains keep state; build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold returns s without accents, lowercased and with whitespace collapsed.
func Fold(s string) string {
	return strings.ToLower(collapse(StripAccents(s)))
}

// NameKey builds the canonical patient identity from given names and both
// surnames. Missing parts are passed as "".
func NameKey(given, paternal, maternal string) string {
	joined := collapse(given + " " + paternal + " " + maternal)
	return strings.ToUpper(StripAccents(joined))
}

// Date parses the first whitespace-delimited token of raw as day/month/year
// and returns it as YYYY-MM-DD. Blank or unparsable input yields "".
func Date(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	t, err := time.Parse(dateLayout, fields[0])
	if err != nil {
		return ""
	}
	return t.Format(isoLayout)
}

// ParseISO parses a YYYY-MM-DD string produced by Date.
func ParseISO(s string) (time.Time, error) {
	return time.Parse(isoLayout, s)
}

// Column normalizes a CSV header: trimmed, accent-free, lowercase, with
// spaces turned into underscores.
func Column(raw string) string {
	s := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	s = strings.ToLower(StripAccents(s))
	return strings.ReplaceAll(s, " ", "_")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
