package fetcher

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pbaille/decklist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forestJSON = `{
  "object": "card",
  "name": "Forest",
  "mana_cost": "",
  "cmc": 0.0,
  "type_line": "Basic Land — Forest",
  "oracle_text": "({T}: Add {G}.)",
  "rarity": "common",
  "prices": {"usd": "0.25", "usd_foil": "1.10", "eur": null},
  "legalities": {"commander": "legal"}
}`

const grizzlyJSON = `{
  "object": "card",
  "name": "Grizzly Bears",
  "mana_cost": "{1}{G}",
  "cmc": 2.0,
  "type_line": "Creature — Bear",
  "oracle_text": "",
  "power": "2",
  "toughness": "2",
  "rarity": "COMMON",
  "prices": {"usd": null}
}`

const notFoundJSON = `{
  "object": "error",
  "code": "not_found",
  "status": 404,
  "details": "No cards found matching “Not A Card”"
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fuzzy") != "" {
			t.Errorf("fuzzy lookup requested: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("exact") {
		case "Forest":
			w.Write([]byte(forestJSON))
		case "Grizzly Bears":
			w.Write([]byte(grizzlyJSON))
		case "Broken":
			w.Write([]byte(`{"object": "card", "name": `))
		case "Boom":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("upstream exploded"))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(notFoundJSON))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := newTestServer(t)
	f := New(Config{BaseURL: srv.URL}, nil)

	rec, err := f.Fetch("Forest")
	require.NoError(t, err)
	assert.Equal(t, "Forest", rec.Name)
	assert.Equal(t, "", rec.ManaCost)
	assert.Equal(t, "0", rec.CMC)
	assert.Equal(t, "Basic Land — Forest", rec.TypeLine)
	assert.Equal(t, "({T}: Add {G}.)", rec.OracleText)
	assert.Equal(t, "", rec.Power)
	assert.Equal(t, "", rec.Toughness)
	assert.Equal(t, "Common", rec.Rarity)
	assert.Equal(t, "0.25", rec.PriceUSD)
	assert.Equal(t, domain.Role(""), rec.Role, "role is assigned by the classifier")
}

func TestFetchCreature(t *testing.T) {
	srv := newTestServer(t)
	f := New(Config{BaseURL: srv.URL}, nil)

	rec, err := f.Fetch("Grizzly Bears")
	require.NoError(t, err)
	assert.Equal(t, "{1}{G}", rec.ManaCost)
	assert.Equal(t, "2", rec.CMC)
	assert.Equal(t, "2", rec.Power)
	assert.Equal(t, "2", rec.Toughness)
	assert.Equal(t, "Common", rec.Rarity)
	assert.Equal(t, "", rec.PriceUSD, "null price maps to empty")
}

func TestFetchErrors(t *testing.T) {
	srv := newTestServer(t)
	f := New(Config{BaseURL: srv.URL}, nil)

	_, err := f.Fetch("Not A Card")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "No cards found")

	_, err = f.Fetch("Boom")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "HTTP 500")

	_, err = f.Fetch("Broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := New(Config{BaseURL: url}, nil)
	_, err := f.Fetch("Forest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch:")
}

func TestFetchSendsExactNameAndUserAgent(t *testing.T) {
	var gotName, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName = r.URL.Query().Get("exact")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(forestJSON))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, UserAgent: "test-agent/0.1"}, nil)
	_, err := f.Fetch("Atraxa, Praetors' Voice & Co")
	require.NoError(t, err)
	assert.Equal(t, "Atraxa, Praetors' Voice & Co", gotName)
	assert.Equal(t, "test-agent/0.1", gotUA)
}

func TestFetchPausesAfterEveryAttempt(t *testing.T) {
	srv := newTestServer(t)
	delay := 20 * time.Millisecond
	f := New(Config{BaseURL: srv.URL, Delay: delay}, nil)

	start := time.Now()
	_, _ = f.Fetch("Forest")
	_, _ = f.Fetch("Not A Card")
	assert.GreaterOrEqual(t, time.Since(start), 2*delay)
}

func TestCapitalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"common", "Common"},
		{"MYTHIC", "Mythic"},
		{"", ""},
		{"s", "S"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Capitalize(tt.in), "Capitalize(%q)", tt.in)
	}
}
