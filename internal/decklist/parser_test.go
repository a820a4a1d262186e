package decklist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pbaille/decklist/internal/domain"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []domain.DeckEntry
	}{
		{
			name:  "three sections",
			lines: []string{"Commander", "1 Atraxa, Praetors' Voice", "Deck", "10 Forest", "Sideboard", "1 Negate"},
			want: []domain.DeckEntry{
				{Section: domain.SectionCommander, Quantity: 1, CardName: "Atraxa, Praetors' Voice"},
				{Section: domain.SectionDeck, Quantity: 10, CardName: "Forest"},
				{Section: domain.SectionSideboard, Quantity: 1, CardName: "Negate"},
			},
		},
		{
			name:  "missing quantity defaults to one",
			lines: []string{"Deck", "  Sol Ring  "},
			want: []domain.DeckEntry{
				{Section: domain.SectionDeck, Quantity: 1, CardName: "Sol Ring"},
			},
		},
		{
			name:  "headers are case-insensitive",
			lines: []string{"COMMANDER", "Kenrith, the Returned King", "sideBOARD", "2 Duress"},
			want: []domain.DeckEntry{
				{Section: domain.SectionCommander, Quantity: 1, CardName: "Kenrith, the Returned King"},
				{Section: domain.SectionSideboard, Quantity: 2, CardName: "Duress"},
			},
		},
		{
			name:  "partial header is a card name",
			lines: []string{"Deck", "Decks", "Commander's Sphere"},
			want: []domain.DeckEntry{
				{Section: domain.SectionDeck, Quantity: 1, CardName: "Decks"},
				{Section: domain.SectionDeck, Quantity: 1, CardName: "Commander's Sphere"},
			},
		},
		{
			name:  "blank lines ignored",
			lines: []string{"", "Deck", "   ", "4 Island", ""},
			want: []domain.DeckEntry{
				{Section: domain.SectionDeck, Quantity: 4, CardName: "Island"},
			},
		},
		{
			name:  "repeated headers split sections",
			lines: []string{"Deck", "1 Opt", "Sideboard", "1 Negate", "Deck", "2 Ponder"},
			want: []domain.DeckEntry{
				{Section: domain.SectionDeck, Quantity: 1, CardName: "Opt"},
				{Section: domain.SectionSideboard, Quantity: 1, CardName: "Negate"},
				{Section: domain.SectionDeck, Quantity: 2, CardName: "Ponder"},
			},
		},
		{
			name:  "internal whitespace in name preserved",
			lines: []string{"Deck", "1 Borborygmos  Enraged"},
			want: []domain.DeckEntry{
				{Section: domain.SectionDeck, Quantity: 1, CardName: "Borborygmos  Enraged"},
			},
		},
		{
			name:  "signed and fractional counts stay in the name",
			lines: []string{"Deck", "-1 Opt", "1.5 Opt"},
			want: []domain.DeckEntry{
				{Section: domain.SectionDeck, Quantity: 1, CardName: "-1 Opt"},
				{Section: domain.SectionDeck, Quantity: 1, CardName: "1.5 Opt"},
			},
		},
		{
			name:  "leading number is always a count",
			lines: []string{"Deck", "1996 World Champion"},
			want: []domain.DeckEntry{
				{Section: domain.SectionDeck, Quantity: 1996, CardName: "World Champion"},
			},
		},
		{
			name:  "no-break space and tab separators",
			lines: []string{"Deck", "2\u00a0Forest", "2\tIsland", "3\u2009Swamp"},
			want: []domain.DeckEntry{
				{Section: domain.SectionDeck, Quantity: 2, CardName: "Forest"},
				{Section: domain.SectionDeck, Quantity: 2, CardName: "Island"},
				{Section: domain.SectionDeck, Quantity: 3, CardName: "Swamp"},
			},
		},
		{
			name:  "non-ASCII digits are counts",
			lines: []string{"Deck", "\uff14 Plains", "\u0661\u0662 Mountain"},
			want: []domain.DeckEntry{
				{Section: domain.SectionDeck, Quantity: 4, CardName: "Plains"},
				{Section: domain.SectionDeck, Quantity: 12, CardName: "Mountain"},
			},
		},
		{
			name:  "overflowing count stays in the name",
			lines: []string{"Deck", "99999999999999999999 Forest"},
			want: []domain.DeckEntry{
				{Section: domain.SectionDeck, Quantity: 1, CardName: "99999999999999999999 Forest"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.lines, zap.NewNop())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDropsLinesBeforeHeader(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	got := Parse([]string{"1 Sol Ring", "Arcane Signet", "Deck", "1 Forest"}, log)

	want := []domain.DeckEntry{
		{Section: domain.SectionDeck, Quantity: 1, CardName: "Forest"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}

	warned := logs.FilterField(zap.String("line", "1 Sol Ring")).Len() +
		logs.FilterField(zap.String("line", "Arcane Signet")).Len()
	if warned != 2 {
		t.Errorf("expected 2 warnings for orphan lines, got %d", warned)
	}
}

func TestParseNilLogger(t *testing.T) {
	got := Parse([]string{"Opt"}, nil)
	if len(got) != 0 {
		t.Errorf("expected no entries, got %v", got)
	}
}

func TestParseSection(t *testing.T) {
	tests := []struct {
		in     string
		want   domain.Section
		wantOK bool
	}{
		{"Commander", domain.SectionCommander, true},
		{"deck", domain.SectionDeck, true},
		{"SIDEBOARD", domain.SectionSideboard, true},
		{"Maybeboard", "", false},
		{"Deck:", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseSection(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseSection(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("\ufeffDeck\r\n1 Forest\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := Parse(lines, nil)
	want := []domain.DeckEntry{{Section: domain.SectionDeck, Quantity: 1, CardName: "Forest"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decklist.txt")
	if err := os.WriteFile(path, []byte("Commander\n1 Atraxa, Praetors' Voice\n"), 0644); err != nil {
		t.Fatal(err)
	}

	lines, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
