// Package timeline reconstructs a coherent, mutable conversation timeline
// from the raw agent event stream.
//
// # Store
//
// The Store is an ordered, append-mostly collection of entries indexed by
// the event id of the action that created them. Entries keep their arrival
// position for life; observations mutate them in place.
//
// # Correlator
//
// The Correlator is the single ingest point:
//
//   - user messages replace any stale pending entry, then append
//   - assistant messages append
//   - allow-listed actions append an entry keyed by the action id, with
//     content from the action-phase format rule
//   - observations mutate the entry whose event id equals their cause;
//     unmatched observations are dropped and counted
//   - error observations and synthetic errors append dedicated entries
//
// # Subscriptions
//
// The Broadcaster fans out every appended or mutated entry to read-only
// subscribers. Publishing never blocks ingest; slow subscribers miss
// notifications and catch up from Store.Snapshot.
//
// The correlator, store and broadcaster are constructed once and handed to
// every consumer explicitly — there is no global registry.
package timeline
