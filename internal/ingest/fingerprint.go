package ingest

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Fingerprint is the SHA-1 hex digest of the raw cells joined with "|",
// in file column order. The same logical row read from files with a
// different column order gets a different fingerprint.
func Fingerprint(values []string) string {
	sum := sha1.Sum([]byte(strings.Join(values, "|")))
	return hex.EncodeToString(sum[:])
}

// bag encodes the named cells as a JSON object. Characters are written
// as-is rather than HTML-escaped.
func bag(get func(string) string, columns []string) (json.RawMessage, error) {
	m := make(map[string]string, len(columns))
	for _, col := range columns {
		m[col] = get(col)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
