// ABOUTME: Timeline entry model — the mutable unit of the conversation view
// ABOUTME: Entries are created by actions and mutated in place by observations

package timeline

// NoEventID marks an entry with no correlation key (plain thoughts and
// synthetic errors). Backend event ids start at zero, so absence needs a
// sentinel outside the id space.
const NoEventID = -1

// EntryType categorizes a timeline entry.
type EntryType string

const (
	EntryThought EntryType = "thought"
	EntryAction  EntryType = "action"
	EntryError   EntryType = "error"
)

// Sender identifies which side of the conversation produced an entry.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Entry is one row of the conversation timeline. Content, TranslationID and
// Success are mutated by correlated observations; position never changes
// after insertion.
type Entry struct {
	Type          EntryType
	Sender        Sender
	Content       string
	TranslationID string
	EventID       int   // correlation key; NoEventID when absent
	Success       *bool // tri-state: nil until an observation decides
	Timestamp     string
	Pending       bool // optimistic user entries only
}
