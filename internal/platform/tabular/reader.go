// Package tabular loads the consultation log CSV into memory with
// normalized column names.
package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/consultorio/clinicdb/internal/platform/textnorm"
)

// Batch is one input file: its normalized header and raw rows.
type Batch struct {
	Source  string
	Columns []string
	Rows    []Row

	index map[string]int
}

// Row holds the raw cells of one record, aligned with Batch.Columns.
type Row struct {
	Line   int
	values []string
	index  map[string]int
}

// Load opens path and reads it with Read.
func Load(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, path)
}

// Read parses a header line followed by records. A UTF-8 BOM is skipped,
// short records are padded with empty cells and surplus cells are dropped.
func Read(r io.Reader, source string) (*Batch, error) {
	bufReader := bufio.NewReaderSize(r, 256*1024)

	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header of %s: file is empty", source)
		}
		return nil, fmt.Errorf("read header of %s: %w", source, err)
	}

	b := &Batch{
		Source:  source,
		Columns: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
	}
	for i, h := range header {
		col := textnorm.Column(h)
		b.Columns[i] = col
		// first occurrence wins for lookups
		if _, dup := b.index[col]; !dup {
			b.index[col] = i
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		values := make([]string, len(b.Columns))
		copy(values, record)
		b.Rows = append(b.Rows, Row{Line: line, values: values, index: b.index})
	}

	return b, nil
}

// Has reports whether the batch carries column col.
func (b *Batch) Has(col string) bool {
	_, ok := b.index[col]
	return ok
}

// Get returns the raw value of col, or "" when the column is absent.
func (r Row) Get(col string) string {
	i, ok := r.index[col]
	if !ok {
		return ""
	}
	return r.values[i]
}

// Values returns the raw cells in file column order.
func (r Row) Values() []string {
	return r.values
}

func isBlank(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}
