// ABOUTME: Deterministic content truncation with an ellipsis marker
// ABOUTME: Idempotent: re-truncating an already-short string is a no-op

package format

// DefaultBudget is the character budget applied to long content.
const DefaultBudget = 1000

const ellipsis = "..."

// Truncate clips s to at most budget characters, replacing the tail with
// "...". The result never exceeds budget, so Truncate(Truncate(s)) ==
// Truncate(s). Budgets smaller than the ellipsis return the bare ellipsis.
func Truncate(s string, budget int) string {
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	if budget <= len(ellipsis) {
		return ellipsis
	}
	return string(runes[:budget-len(ellipsis)]) + ellipsis
}
