package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/decklist/internal/domain"
)

//go:embed schema.sql
var schema string

// ErrRunNotFound is returned when no archived run matches an id
var ErrRunNotFound = errors.New("run not found")

// Store archives finished conversions
type Store struct {
	db *sql.DB
}

// New opens (or creates) the archive at the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun archives a conversion table under a new id
func (s *Store) SaveRun(source string, table *domain.Table) (*domain.Run, error) {
	run := &domain.Run{
		ID:        uuid.New().String(),
		Source:    source,
		Rows:      table.Rows,
		Skipped:   table.Skipped,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO runs (id, source, skipped, created_at) VALUES (?, ?, ?, ?)",
		run.ID, run.Source, run.Skipped, run.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_rows (run_id, position, name, mana_cost, cmc, type_line, oracle_text,
			power, toughness, rarity, price_usd, role, quantity, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range table.Rows {
		if _, err := stmt.Exec(
			run.ID, i, r.Name, r.ManaCost, r.CMC, r.TypeLine, r.OracleText,
			r.Power, r.Toughness, r.Rarity, r.PriceUSD, string(r.Role), r.Quantity, string(r.Category),
		); err != nil {
			return nil, fmt.Errorf("insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by full id with its rows in original order
func (s *Store) GetRun(id string) (*domain.Run, error) {
	var run domain.Run
	err := s.db.QueryRow(
		"SELECT id, source, skipped, created_at FROM runs WHERE id = ?",
		id,
	).Scan(&run.ID, &run.Source, &run.Skipped, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := s.GetRunRows(id)
	if err != nil {
		return nil, err
	}
	run.Rows = rows

	return &run, nil
}

// FindRun resolves an id prefix to a single run
func (s *Store) FindRun(prefix string) (*domain.Run, error) {
	prefix = stripWildcards(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}

	rows, err := s.db.Query(
		"SELECT id FROM runs WHERE id LIKE ? ORDER BY created_at DESC, rowid DESC LIMIT 2",
		prefix+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}

	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return s.GetRun(ids[0])
	default:
		return nil, fmt.Errorf("ambiguous run id prefix: %s", prefix)
	}
}

// GetRunRows returns the archived rows of a run
func (s *Store) GetRunRows(runID string) ([]domain.OutputRow, error) {
	rows, err := s.db.Query(`
		SELECT name, mana_cost, cmc, type_line, oracle_text, power, toughness,
			rarity, price_usd, role, quantity, category
		FROM run_rows
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get run rows: %w", err)
	}
	defer rows.Close()

	var out []domain.OutputRow
	for rows.Next() {
		var r domain.OutputRow
		var role, category string
		if err := rows.Scan(&r.Name, &r.ManaCost, &r.CMC, &r.TypeLine, &r.OracleText, &r.Power,
			&r.Toughness, &r.Rarity, &r.PriceUSD, &role, &r.Quantity, &category); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Role = domain.Role(role)
		r.Category = domain.Section(category)
		out = append(out, r)
	}

	return out, rows.Err()
}

// ListRuns returns recent runs without their rows
func (s *Store) ListRuns(limit, offset int) ([]domain.Run, error) {
	rows, err := s.db.Query(
		"SELECT id, source, skipped, created_at FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var r domain.Run
		if err := rows.Scan(&r.ID, &r.Source, &r.Skipped, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

func stripWildcards(s string) string {
	s = strings.ReplaceAll(s, "%", "")
	return strings.ReplaceAll(s, "_", "")
}
