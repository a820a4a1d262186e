package classifier

import (
	"strings"

	"github.com/pbaille/decklist/internal/domain"
)

// Rule assigns Role when Match reports true for the lower-cased type line and oracle text
type Rule struct {
	Role  domain.Role
	Match func(typeLine, oracle string) bool
}

// Rules is evaluated top to bottom; the first match wins.
// Reordering changes the result for cards that match more than one rule.
var Rules = []Rule{
	{domain.RoleLand, typeContains("land")},
	{domain.RoleRamp, oracleContainsAny(
		"{t}: add",
		"add {",
		"create a treasure token",
		"search your library for a land card and put it onto the battlefield",
	)},
	{domain.RoleTutor, oracleContainsAny("search your library")},
	{domain.RoleSweeper, oracleContainsAny("destroy all", "each creature")},
	{domain.RoleCounterspell, oracleContainsAny("counter target spell")},
	{domain.RoleCardDraw, oracleContainsAll("draw", "card")},
	{domain.RoleDirectDamage, oracleContainsAll("deal", "damage")},
	{domain.RoleSacrificeSynergy, oracleContainsAny("sacrifice")},
	{domain.RoleRemoval, oracleContainsAny("exile target")},
}

// Classify returns the role of the first rule matching the card
func Classify(typeLine, oracleText string) domain.Role {
	t := strings.ToLower(typeLine)
	o := strings.ToLower(oracleText)

	for _, r := range Rules {
		if r.Match(t, o) {
			return r.Role
		}
	}
	return domain.RoleOther
}

// Roles lists every role Classify can return, in rule order
func Roles() []domain.Role {
	roles := make([]domain.Role, 0, len(Rules)+1)
	for _, r := range Rules {
		roles = append(roles, r.Role)
	}
	return append(roles, domain.RoleOther)
}

// Summarize totals card quantities per role
func Summarize(rows []domain.OutputRow) map[domain.Role]int {
	counts := make(map[domain.Role]int)
	for _, row := range rows {
		counts[row.Role] += row.Quantity
	}
	return counts
}

func typeContains(sub string) func(string, string) bool {
	return func(typeLine, _ string) bool {
		return strings.Contains(typeLine, sub)
	}
}

func oracleContainsAny(subs ...string) func(string, string) bool {
	return func(_, oracle string) bool {
		for _, s := range subs {
			if strings.Contains(oracle, s) {
				return true
			}
		}
		return false
	}
}

func oracleContainsAll(subs ...string) func(string, string) bool {
	return func(_, oracle string) bool {
		for _, s := range subs {
			if !strings.Contains(oracle, s) {
				return false
			}
		}
		return true
	}
}
