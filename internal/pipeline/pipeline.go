package pipeline

import (
	"github.com/pbaille/decklist/internal/classifier"
	"github.com/pbaille/decklist/internal/decklist"
	"github.com/pbaille/decklist/internal/domain"
	"go.uber.org/zap"
)

// CardFetcher resolves a card name to its metadata
type CardFetcher interface {
	Fetch(name string) (*domain.CardRecord, error)
}

// Pipeline converts decklists into tables
type Pipeline struct {
	fetcher CardFetcher
	log     *zap.Logger
}

// New creates a Pipeline
func New(f CardFetcher, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{fetcher: f, log: log}
}

// Convert parses lines and resolves each entry in order, one lookup at a time.
// Entries whose lookup fails are logged and left out of the table.
func (p *Pipeline) Convert(lines []string) *domain.Table {
	entries := decklist.Parse(lines, p.log)
	table := &domain.Table{Rows: make([]domain.OutputRow, 0, len(entries))}

	for _, e := range entries {
		rec, err := p.fetcher.Fetch(e.CardName)
		if err != nil {
			p.log.Warn("error fetching card",
				zap.String("card", e.CardName),
				zap.String("section", string(e.Section)),
				zap.Error(err),
			)
			table.Skipped++
			continue
		}

		row := domain.OutputRow{
			CardRecord: *rec,
			Quantity:   e.Quantity,
			Category:   e.Section,
		}
		row.Role = classifier.Classify(rec.TypeLine, rec.OracleText)
		table.Rows = append(table.Rows, row)
	}

	p.log.Info("decklist converted",
		zap.Int("entries", len(entries)),
		zap.Int("rows", len(table.Rows)),
		zap.Int("skipped", table.Skipped),
	)
	return table
}
