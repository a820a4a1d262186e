package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pbaille/decklist/internal/domain"
)

// DefaultFilename is the name offered for downloads and used by batch mode
const DefaultFilename = "decklist_analysis.csv"

// Columns is the header row of the exported table
var Columns = []string{
	"Card Name", "Mana Cost", "CMC", "Type", "Oracle Text", "Power",
	"Toughness", "Rarity", "Price (USD)", "Role", "Quantity", "Category",
}

// CSVWriter writes conversion tables as CSV.
type CSVWriter struct{}

// WriteToFile writes the table to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, table *domain.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}

	if err := w.Write(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes the header and one record per row.
func (w *CSVWriter) Write(out io.Writer, table *domain.Table) error {
	writer := csv.NewWriter(out)

	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range table.Rows {
		if err := writer.Write(Record(row)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// Bytes renders the table as CSV in memory.
func (w *CSVWriter) Bytes(table *domain.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Record returns the row's cells in Columns order.
func Record(row domain.OutputRow) []string {
	return []string{
		row.Name,
		row.ManaCost,
		row.CMC,
		row.TypeLine,
		row.OracleText,
		row.Power,
		row.Toughness,
		row.Rarity,
		row.PriceUSD,
		string(row.Role),
		strconv.Itoa(row.Quantity),
		string(row.Category),
	}
}
