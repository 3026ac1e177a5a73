// ABOUTME: Terminal renderer for timeline entries
// ABOUTME: Prints correlated entries with per-sender colors and outcome markers

package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/coven-console/internal/timeline"
)

// renderer prints timeline entries to a terminal. An entry that is
// re-published after an observation lands prints again with its outcome, so
// the scrollback reads as command-then-result.
type renderer struct {
	mu  sync.Mutex
	out io.Writer

	user      *color.Color
	assistant *color.Color
	errColor  *color.Color
	pending   *color.Color
	meta      *color.Color
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{
		out:       out,
		user:      color.New(color.FgCyan, color.Bold),
		assistant: color.New(color.FgWhite),
		errColor:  color.New(color.FgRed),
		pending:   color.New(color.FgHiBlack),
		meta:      color.New(color.FgHiBlack),
	}
}

func (r *renderer) render(e timeline.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out)
	r.meta.Fprintf(r.out, "── %s ──\n", r.headline(e))

	c := r.bodyColor(e)
	for _, line := range strings.Split(e.Content, "\n") {
		c.Fprintln(r.out, line)
	}
}

func (r *renderer) headline(e timeline.Entry) string {
	var parts []string

	switch e.Sender {
	case timeline.SenderUser:
		parts = append(parts, "you")
	default:
		parts = append(parts, "agent")
	}
	parts = append(parts, string(e.Type))

	if e.Pending {
		parts = append(parts, "sending…")
	}
	if e.Success != nil {
		if *e.Success {
			parts = append(parts, "✓")
		} else {
			parts = append(parts, "✗")
		}
	}
	return strings.Join(parts, " · ")
}

func (r *renderer) bodyColor(e timeline.Entry) *color.Color {
	switch {
	case e.Type == timeline.EntryError:
		return r.errColor
	case e.Pending:
		return r.pending
	case e.Sender == timeline.SenderUser:
		return r.user
	default:
		return r.assistant
	}
}
