package fetcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pbaille/decklist/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://api.scryfall.com/cards/named"
	DefaultDelay     = 100 * time.Millisecond
	DefaultUserAgent = "decklist/1.0 (deck-analysis)"
)

// ErrNotFound is returned when the card database has no card with the exact name
var ErrNotFound = errors.New("card not found")

// Config holds the lookup endpoint and pacing
type Config struct {
	BaseURL   string
	Delay     time.Duration
	UserAgent string
	Client    *http.Client
}

// Scryfall looks up cards by exact name, one request at a time
type Scryfall struct {
	baseURL   string
	delay     time.Duration
	userAgent string
	client    *http.Client
	log       *zap.Logger
}

// New creates a Scryfall fetcher. Zero config values fall back to defaults,
// except Delay, where zero means no pause.
func New(cfg Config, log *zap.Logger) *Scryfall {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Scryfall{
		baseURL:   cfg.BaseURL,
		delay:     cfg.Delay,
		userAgent: cfg.UserAgent,
		client:    cfg.Client,
		log:       log,
	}
}

// cardResponse is the subset of the Scryfall card object we read
type cardResponse struct {
	Object     string   `json:"object"`
	Name       string   `json:"name"`
	ManaCost   string   `json:"mana_cost"`
	CMC        *float64 `json:"cmc"`
	TypeLine   string   `json:"type_line"`
	OracleText string   `json:"oracle_text"`
	Power      string   `json:"power"`
	Toughness  string   `json:"toughness"`
	Rarity     string   `json:"rarity"`
	Prices     struct {
		USD string `json:"usd"`
	} `json:"prices"`

	// error object fields
	Code    string `json:"code"`
	Details string `json:"details"`
}

// Fetch retrieves metadata for the card with exactly this name.
// Every call, successful or not, is followed by the configured pause.
func (s *Scryfall) Fetch(name string) (*domain.CardRecord, error) {
	defer s.pause()

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("exact", name)
	u.RawQuery = q.Encode()

	req, err := http.NewRequest("GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	s.log.Debug("fetching card", zap.String("card", name), zap.String("url", u.String()))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	// Read body with size limit (1MB)
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var card cardResponse
	decodeErr := json.Unmarshal(body, &card)

	if resp.StatusCode != http.StatusOK {
		detail := resp.Status
		if decodeErr == nil && card.Details != "" {
			detail = card.Details
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, detail)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, detail)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("unmarshal response: %w", decodeErr)
	}
	if card.Object == "error" {
		return nil, fmt.Errorf("api error (%s): %s", card.Code, card.Details)
	}

	return toRecord(card), nil
}

func (s *Scryfall) pause() {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
}

func toRecord(c cardResponse) *domain.CardRecord {
	return &domain.CardRecord{
		Name:       c.Name,
		ManaCost:   c.ManaCost,
		CMC:        formatCMC(c.CMC),
		TypeLine:   c.TypeLine,
		OracleText: c.OracleText,
		Power:      c.Power,
		Toughness:  c.Toughness,
		Rarity:     Capitalize(c.Rarity),
		PriceUSD:   c.Prices.USD,
	}
}

func formatCMC(cmc *float64) string {
	if cmc == nil {
		return ""
	}
	return strconv.FormatFloat(*cmc, 'f', -1, 64)
}

// Capitalize upper-cases the first letter and lower-cases the rest
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
