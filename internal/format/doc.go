// Package format holds the stateless display-formatting rules for timeline
// entries.
//
// Rules are a lookup table keyed by (phase, kind): action-phase rules
// produce the initial content of a new entry, observation-phase rules
// rewrite an existing entry's content and decide its success verdict.
// The tables double as the allow-list — a kind without a rule never
// creates or mutates an entry.
//
// All functions are pure; long content is clipped with Truncate, which is
// deterministic and idempotent.
package format
