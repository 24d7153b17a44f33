// Package search answers read-only questions over a consultation log
// batch: fuzzy patient name lookups, keyword hits in the clinical
// narrative and the latest visit of a patient.
package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/samber/lo"

	"github.com/consultorio/clinicdb/internal/domain/consultation"
	"github.com/consultorio/clinicdb/internal/platform/tabular"
	"github.com/consultorio/clinicdb/internal/platform/textnorm"
)

// DefaultThreshold is the minimum name score kept by ByName.
const DefaultThreshold = 94

// ErrNoMatch is returned by LastConsultation when no row qualifies.
var ErrNoMatch = errors.New("no matching consultation")

var keywordSep = regexp.MustCompile(`[,;\s]+`)

// indel distance: substitutions cost a deletion plus an insertion
var ratioParams = levenshtein.NewParams().SubCost(2).BonusScale(0)

// Match is one consultation row as reported to the operator.
type Match struct {
	Date          string   `json:"fecha_consulta"`
	Name          string   `json:"nombre"`
	Age           *int     `json:"edad"`
	Sex           string   `json:"sexo"`
	BirthDate     string   `json:"fecha_de_nacimiento"`
	NationalID    string   `json:"curp"`
	RecordNumber  string   `json:"numero_de_expediente"`
	BloodPressure string   `json:"tension_arterial"`
	Dxtx          string   `json:"dxtx"`
	Plan          string   `json:"plan"`
	Subjective    string   `json:"subjetivo"`
	Analysis      string   `json:"analisis"`
	Diagnosis     string   `json:"diagnostico"`
	Treatment     string   `json:"tratamiento"`
	Prognosis     string   `json:"pronostico"`
	Allergy       string   `json:"alergia"`
	Score         *float64 `json:"score,omitempty"`
}

// Score is the normalized indel similarity of a and b on a 0..100 scale.
// Two empty strings score 100.
func Score(a, b string) float64 {
	if a == "" && b == "" {
		return 100
	}
	return levenshtein.Similarity(a, b, ratioParams) * 100
}

// ByName returns the rows whose folded patient name scores at least
// threshold against the folded query, newest consultation first.
func ByName(b *tabular.Batch, query string, threshold float64) []Match {
	q := textnorm.Fold(query)

	var out []Match
	for _, row := range b.Rows {
		score := Score(q, textnorm.Fold(rowName(row)))
		if score < threshold {
			continue
		}
		m := toMatch(row)
		m.Score = &score
		out = append(out, m)
	}
	sortByDateDesc(out)
	return out
}

// Keywords splits raw on commas, semicolons and whitespace and folds each
// piece. Empty pieces are dropped.
func Keywords(raw string) []string {
	parts := keywordSep.Split(raw, -1)
	parts = lo.Filter(parts, func(p string, _ int) bool { return p != "" })
	return lo.Map(parts, func(p string, _ int) string { return textnorm.Fold(p) })
}

// ByKeywords returns the rows where any keyword occurs in any narrative
// column, newest consultation first.
func ByKeywords(b *tabular.Batch, raw string) []Match {
	keywords := Keywords(raw)
	if len(keywords) == 0 {
		return nil
	}

	var out []Match
	for _, row := range b.Rows {
		if mentions(row, keywords) {
			out = append(out, toMatch(row))
		}
	}
	sortByDateDesc(out)
	return out
}

// LastConsultation finds the rows whose birth date equals dob (day/month/
// year) and returns the best name match, breaking ties by the latest
// consultation date.
func LastConsultation(b *tabular.Batch, name, dob string) (*Match, error) {
	birth := textnorm.Date(dob)
	if birth == "" {
		return nil, fmt.Errorf("invalid birth date %q", dob)
	}
	q := textnorm.Fold(name)

	var best *Match
	for _, row := range b.Rows {
		if textnorm.Date(row.Get("fecha_de_nacimiento")) != birth {
			continue
		}
		m := toMatch(row)
		score := Score(q, textnorm.Fold(rowName(row)))
		m.Score = &score
		if best == nil || score > *best.Score || (score == *best.Score && m.Date > best.Date) {
			best = &m
		}
	}
	if best == nil {
		return nil, ErrNoMatch
	}
	return best, nil
}

// WriteJSON renders matches as an indented JSON array. Non-ASCII text is
// written as is.
func WriteJSON(w io.Writer, v any) error {
	if matches, ok := v.([]Match); ok && matches == nil {
		v = []Match{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}
	return nil
}

func rowName(row tabular.Row) string {
	if n := strings.TrimSpace(row.Get("nombre")); n != "" {
		return n
	}
	return textnorm.NameKey(row.Get("nombres"), row.Get("apellido_paterno"), row.Get("apellido_materno"))
}

func mentions(row tabular.Row, keywords []string) bool {
	for _, col := range consultation.NarrativeColumns {
		text := textnorm.Fold(row.Get(col))
		if text == "" {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}

func toMatch(row tabular.Row) Match {
	m := Match{
		Date:          textnorm.Date(row.Get("fecha_consulta")),
		Name:          rowName(row),
		Sex:           row.Get("sexo"),
		BirthDate:     textnorm.Date(row.Get("fecha_de_nacimiento")),
		NationalID:    row.Get("curp"),
		RecordNumber:  row.Get("numero_de_expediente"),
		BloodPressure: row.Get("tension_arterial"),
		Dxtx:          row.Get("dxtx"),
		Plan:          row.Get("plan"),
		Subjective:    row.Get("subjetivo"),
		Analysis:      row.Get("analisis"),
		Diagnosis:     row.Get("diagnostico"),
		Treatment:     row.Get("tratamiento"),
		Prognosis:     row.Get("pronostico"),
		Allergy:       row.Get("alergia"),
	}
	if age, err := strconv.Atoi(strings.TrimSpace(row.Get("edad"))); err == nil {
		m.Age = &age
	}
	return m
}

// rows without a date sort last
func sortByDateDesc(ms []Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].Date > ms[j].Date
	})
}
