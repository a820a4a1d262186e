package decklist

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/pbaille/decklist/internal/domain"
	"go.uber.org/zap"
)

// quantityRe accepts any Unicode decimal digits and separator, so pasted
// lines such as "2\u00a0Forest" still split.
var quantityRe = regexp.MustCompile(`^(\p{Nd}+)[\s\p{Z}]+(.+)$`)

// state is the accumulator carried through the fold over input lines
type state struct {
	section domain.Section
	entries []domain.DeckEntry
}

// Parse turns decklist lines into entries in input order.
// Lines that appear before any section header are logged and dropped.
func Parse(lines []string, log *zap.Logger) []domain.DeckEntry {
	if log == nil {
		log = zap.NewNop()
	}

	st := state{}
	for _, line := range lines {
		st = step(st, line, log)
	}
	return st.entries
}

func step(st state, raw string, log *zap.Logger) state {
	line := strings.TrimSpace(raw)
	if line == "" {
		return st
	}

	if section, ok := ParseSection(line); ok {
		st.section = section
		return st
	}

	if st.section == "" {
		log.Warn("card appears before a section header, skipping",
			zap.String("line", line),
			zap.Any("headers", domain.Sections),
		)
		return st
	}

	quantity, name := splitQuantity(line)
	st.entries = append(st.entries, domain.DeckEntry{
		Section:  st.section,
		Quantity: quantity,
		CardName: name,
	})
	return st
}

// ParseSection matches a trimmed line against the section headers, ignoring case
func ParseSection(s string) (domain.Section, bool) {
	for _, section := range domain.Sections {
		if strings.EqualFold(s, string(section)) {
			return section, true
		}
	}
	return "", false
}

// splitQuantity separates an optional leading count from the card name.
// A count that does not fit in an int is treated as part of the name.
func splitQuantity(line string) (int, string) {
	m := quantityRe.FindStringSubmatch(line)
	if m == nil {
		return 1, line
	}
	n, ok := parseCount(m[1])
	if !ok {
		return 1, line
	}
	return n, m[2]
}

// parseCount converts a run of decimal digits from any script, failing on overflow
func parseCount(digits string) (int, bool) {
	n := 0
	for _, r := range digits {
		d := digitValue(r)
		if n > (math.MaxInt-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return n, true
}

// digitValue relies on every Nd block running contiguously from its zero
func digitValue(r rune) int {
	n := 0
	for unicode.IsDigit(r - rune(n) - 1) {
		n++
	}
	return n % 10
}

// ReadLines reads every line from r, dropping a leading byte order mark
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if len(lines) == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read decklist: %w", err)
	}
	return lines, nil
}

// LoadFile reads a decklist file
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open decklist: %w", err)
	}
	defer f.Close()

	return ReadLines(f)
}
