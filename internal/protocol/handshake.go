// ABOUTME: Handshake message sent to the backend on transport connect
// ABOUTME: Carries session settings, credentials, and the optional resume cursor

package protocol

// Handshake is the init event the client sends as soon as the transport
// reports connected. LatestEventID is the resume cursor: when set, the
// backend replays only events with a higher id.
type Handshake struct {
	Action        string         `json:"action"`
	Args          map[string]any `json:"args"`
	Token         string         `json:"token,omitempty"`
	GitHubToken   string         `json:"github_token,omitempty"`
	LatestEventID *int           `json:"latest_event_id,omitempty"`
}

// NewHandshake builds an init handshake. A negative cursor means "no resume
// point" and leaves latest_event_id unset.
func NewHandshake(settings map[string]any, token, githubToken string, cursor int) Handshake {
	h := Handshake{
		Action:      ActionInit,
		Args:        settings,
		Token:       token,
		GitHubToken: githubToken,
	}
	if h.Args == nil {
		h.Args = map[string]any{}
	}
	if cursor >= 0 {
		c := cursor
		h.LatestEventID = &c
	}
	return h
}
