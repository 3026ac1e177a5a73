// ABOUTME: Minimal fake conversation backend for E2E testing — serves the event stream over websocket.
// ABOUTME: Usage: fake-backend [-addr localhost:8700] [-path /events]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", "localhost:8700", "listen address")
	path := flag.String("path", "/events", "websocket path")
	flag.Parse()

	http.HandleFunc(*path, handleSession)
	log.Printf("fake backend listening on ws://%s%s", *addr, *path)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

// event is the wire shape of one stream event.
type event struct {
	ID          int            `json:"id"`
	Source      string         `json:"source,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Action      string         `json:"action,omitempty"`
	Observation string         `json:"observation,omitempty"`
	Cause       int            `json:"cause,omitempty"`
	Args        map[string]any `json:"args,omitempty"`
	Extras      map[string]any `json:"extras,omitempty"`
	Content     string         `json:"content,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// session replays history past the client's cursor and echoes user messages
// as a message/run/observation triple.
type session struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	nextID int
	log    []event
}

func handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s := &session{conn: conn}

	// First frame must be the init handshake.
	var handshake struct {
		Action        string         `json:"action"`
		Args          map[string]any `json:"args,omitempty"`
		Token         string         `json:"token,omitempty"`
		LatestEventID *int           `json:"latest_event_id,omitempty"`
	}
	if err := conn.ReadJSON(&handshake); err != nil {
		log.Printf("reading handshake: %v", err)
		return
	}
	if handshake.Action != "init" {
		log.Printf("expected init handshake, got %q", handshake.Action)
		return
	}

	cursor := -1
	if handshake.LatestEventID != nil {
		cursor = *handshake.LatestEventID
	}
	log.Printf("session started (cursor=%d, token=%t)", cursor, handshake.Token != "")

	s.seedHistory()
	s.replay(cursor)

	for {
		var msg struct {
			Action string         `json:"action"`
			Args   map[string]any `json:"args,omitempty"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("session closed: %v", err)
			return
		}
		if msg.Action != "message" {
			continue
		}
		content, _ := msg.Args["content"].(string)
		log.Printf("received message: %s", content)
		s.echo(content)
	}
}

// seedHistory fills the log with the fixed session prologue once.
func (s *session) seedHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.log) > 0 {
		return
	}
	s.appendLocked(event{
		Source:      "agent",
		Observation: "agent_state_changed",
		Extras:      map[string]any{"agent_state": "init"},
	})
	s.appendLocked(event{
		Source: "agent",
		Action: "message",
		Args:   map[string]any{"content": "Hello! I am a **fake** agent. Say something and I will echo it."},
	})
}

func (s *session) appendLocked(ev event) event {
	ev.ID = s.nextID
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	s.nextID++
	s.log = append(s.log, ev)
	return ev
}

// replay sends every logged event with an id greater than the cursor.
func (s *session) replay(cursor int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.log {
		if ev.ID > cursor {
			s.sendLocked(ev)
		}
	}
}

// echo responds to a user message with the echo script: the echoed user
// event, a reply, then a command with its delayed observation.
func (s *session) echo(content string) {
	s.mu.Lock()
	s.sendLocked(s.appendLocked(event{
		Source: "user",
		Action: "message",
		Args:   map[string]any{"content": content},
	}))
	s.sendLocked(s.appendLocked(event{
		Source: "agent",
		Action: "message",
		Args:   map[string]any{"content": echoReply(content)},
	}))
	cmd := s.appendLocked(event{
		Source: "agent",
		Action: "run",
		Args: map[string]any{
			"command": fmt.Sprintf("echo %q", content),
			"thought": "Echoing through the shell for good measure.",
		},
	})
	s.sendLocked(cmd)
	s.mu.Unlock()

	// Small delay to simulate command execution
	time.Sleep(50 * time.Millisecond)

	s.mu.Lock()
	s.sendLocked(s.appendLocked(event{
		Source:      "agent",
		Observation: "run",
		Cause:       cmd.ID,
		Content:     content + "\n",
		Extras:      map[string]any{"exit_code": 0},
	}))
	s.mu.Unlock()
}

func (s *session) sendLocked(ev event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("marshaling event %d: %v", ev.ID, err)
		return
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("sending event %d: %v", ev.ID, err)
	}
}

func echoReply(input string) string {
	lower := strings.ToLower(input)
	if strings.Contains(lower, "markdown") || strings.Contains(lower, "bullet") || strings.Contains(lower, "list") {
		return "Here is a **markdown** response:\n\n- First item\n- Second item with `code`\n- Third item\n\n> This is a blockquote.\n"
	}
	return fmt.Sprintf("Echo: **%s**", input)
}
