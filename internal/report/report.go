// Package report renders operator-facing tables: consultations per day and
// the ingest run log.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/consultorio/clinicdb/internal/domain/consultation"
	"github.com/consultorio/clinicdb/internal/domain/ingestrun"
	"github.com/consultorio/clinicdb/internal/platform/textnorm"
)

const displayDate = "02/01/2006"

// DailyReport holds consultation counts per day for a date range.
type DailyReport struct {
	From  string                    `json:"from,omitempty"`
	To    string                    `json:"to,omitempty"`
	Days  []consultation.DailyCount `json:"days"`
	Total int                       `json:"total"`
}

// Daily builds a report from store counts. When both bounds are given,
// days without consultations are listed with a zero count.
func Daily(counts []consultation.DailyCount, from, to string) (*DailyReport, error) {
	r := &DailyReport{From: from, To: to}
	for _, c := range counts {
		r.Total += c.Count
	}
	if from == "" || to == "" {
		r.Days = counts
		return r, nil
	}

	start, err := textnorm.ParseISO(from)
	if err != nil {
		return nil, fmt.Errorf("parse from date: %w", err)
	}
	end, err := textnorm.ParseISO(to)
	if err != nil {
		return nil, fmt.Errorf("parse to date: %w", err)
	}

	byDate := make(map[string]int, len(counts))
	for _, c := range counts {
		byDate[c.Date] = c.Count
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		r.Days = append(r.Days, consultation.DailyCount{Date: key, Count: byDate[key]})
	}
	return r, nil
}

// Render writes the report as a table with a total footer.
func (r *DailyReport) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Fecha", "Consultas"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, d := range r.Days {
		table.Append([]string{displayDay(d.Date), strconv.Itoa(d.Count)})
	}
	table.SetFooter([]string{"Total", strconv.Itoa(r.Total)})
	table.Render()
}

// RenderRuns writes the ingest run log, newest first as given.
func RenderRuns(w io.Writer, runs []*ingestrun.Run) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Mode", "Source", "Started", "Duration",
		"Rows", "Patients", "Consultations", "Duplicates", "Columns"})
	table.SetAutoWrapText(false)
	for _, r := range runs {
		table.Append([]string{
			r.ID.String()[:8],
			r.Mode,
			r.Source,
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(r.RowsRead),
			strconv.Itoa(r.PatientsCreated),
			strconv.Itoa(r.ConsultationsInserted),
			strconv.Itoa(r.DuplicatesSkipped),
			strconv.Itoa(r.ColumnsAdded),
		})
	}
	table.Render()
}

func displayDay(iso string) string {
	t, err := textnorm.ParseISO(iso)
	if err != nil {
		return iso
	}
	return t.Format(displayDate)
}
