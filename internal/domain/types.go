package domain

import "time"

// Section is a decklist grouping header
type Section string

const (
	SectionCommander Section = "Commander"
	SectionDeck      Section = "Deck"
	SectionSideboard Section = "Sideboard"
)

// Sections lists the recognized headers in display order
var Sections = []Section{SectionCommander, SectionDeck, SectionSideboard}

// Role is the functional category derived for a card
type Role string

const (
	RoleLand             Role = "Land"
	RoleRamp             Role = "Ramp"
	RoleTutor            Role = "Tutor"
	RoleSweeper          Role = "Sweeper"
	RoleCounterspell     Role = "Counterspell"
	RoleCardDraw         Role = "Card Draw"
	RoleDirectDamage     Role = "Direct Damage"
	RoleSacrificeSynergy Role = "Sacrifice Synergy"
	RoleRemoval          Role = "Removal"
	RoleOther            Role = "Other"
)

// DeckEntry is one parsed decklist line
type DeckEntry struct {
	Section  Section `json:"section"`
	Quantity int     `json:"quantity"`
	CardName string  `json:"card_name"`
}

// CardRecord holds the metadata looked up for a card name.
// Absent upstream fields are empty strings so every record has the same shape.
type CardRecord struct {
	Name       string `json:"name"`
	ManaCost   string `json:"mana_cost"`
	CMC        string `json:"cmc"`
	TypeLine   string `json:"type_line"`
	OracleText string `json:"oracle_text"`
	Power      string `json:"power"`
	Toughness  string `json:"toughness"`
	Rarity     string `json:"rarity"`
	PriceUSD   string `json:"price_usd"`
	Role       Role   `json:"role"`
}

// OutputRow is a resolved card together with its decklist position
type OutputRow struct {
	CardRecord
	Quantity int     `json:"quantity"`
	Category Section `json:"category"`
}

// Table is the result of one conversion
type Table struct {
	Rows    []OutputRow `json:"rows"`
	Skipped int         `json:"skipped"`
}

// Run is an archived conversion
type Run struct {
	ID        string      `json:"id"`
	Source    string      `json:"source"`
	Rows      []OutputRow `json:"rows,omitempty"`
	Skipped   int         `json:"skipped"`
	CreatedAt time.Time   `json:"created_at"`
}
