// ABOUTME: Pure display-formatting rules keyed by (phase, kind)
// ABOUTME: Maps actions to initial entry text and observations to content plus a success verdict

package format

import (
	"strings"

	"github.com/2389/coven-console/internal/protocol"
)

// implSourceACI marks observations produced by the ACI-backed editor, which
// reports failures with a structured "ERROR:\n" prefix rather than free text.
const implSourceACI = "oh_aci"

// noOutputPlaceholder stands in for empty command output so the fenced block
// is never blank.
const noOutputPlaceholder = "[command produced no output]"

// Result is the outcome of applying an observation rule to an entry.
type Result struct {
	Content string
	Success bool
}

// ActionRule produces the initial content for an entry created by an action.
type ActionRule func(ev protocol.Event) string

// ObservationRule rewrites an entry's content and recomputes its success
// verdict. prev is the entry's current content (the action-phase text).
type ObservationRule func(prev string, ev protocol.Event) Result

// Adding a new kind is a one-line table entry in actionRules or
// observationRules; the correlator treats table membership as the
// allow-list.
var actionRules = map[string]ActionRule{
	protocol.ActionRun:               runAction,
	protocol.ActionRunIPython:        runIPythonAction,
	protocol.ActionWrite:             writeAction,
	protocol.ActionRead:              readAction,
	protocol.ActionEdit:              thoughtAction,
	protocol.ActionBrowse:            thoughtAction,
	protocol.ActionBrowseInteractive: thoughtAction,
	protocol.ActionThink:             thoughtAction,
	protocol.ActionFinish:            thoughtAction,
	protocol.ActionDelegate:          thoughtAction,
	protocol.ActionReject:            thoughtAction,
}

var observationRules = map[string]ObservationRule{
	protocol.ObsRun:        runObservation,
	protocol.ObsRunIPython: runIPythonObservation,
	protocol.ObsRead:       readObservation,
	protocol.ObsEdit:       editObservation,
	protocol.ObsBrowse:     browseObservation,
	protocol.ObsDelegate:   delegateObservation,
}

// Action applies the action-phase rule for the event's kind. The second
// return is false for kinds with no rule (not allow-listed).
func Action(ev protocol.Event) (string, bool) {
	rule, ok := actionRules[ev.Action]
	if !ok {
		return "", false
	}
	return rule(ev), true
}

// Observation applies the observation-phase rule for the event's kind.
// The second return is false for kinds with no rule.
func Observation(prev string, ev protocol.Event) (Result, bool) {
	rule, ok := observationRules[ev.Observation]
	if !ok {
		return Result{}, false
	}
	return rule(prev, ev), true
}

// TranslationID derives the display label key for an action kind.
func TranslationID(kind string) string {
	return "ACTION_MESSAGE$" + strings.ToUpper(kind)
}

// RiskText renders the declared security risk of a command awaiting
// confirmation. Returns "" when no risk level is declared.
func RiskText(ev protocol.Event) string {
	level, ok := ev.ArgInt("security_risk")
	if !ok {
		if s := ev.ArgString("security_risk"); s != "" {
			return "\n\nSecurity risk: " + strings.ToLower(s)
		}
		return ""
	}
	switch level {
	case 0:
		return "\n\nSecurity risk: low"
	case 1:
		return "\n\nSecurity risk: medium"
	case 2:
		return "\n\nSecurity risk: high"
	default:
		return "\n\nSecurity risk: unknown"
	}
}

func fenced(lang, body string) string {
	return "```" + lang + "\n" + body + "\n```"
}

func withThought(ev protocol.Event, text string) string {
	if th := ev.ArgString("thought"); th != "" {
		return th + "\n\n" + text
	}
	return text
}

func runAction(ev protocol.Event) string {
	return withThought(ev, "Command:\n"+fenced("shell", ev.ArgString("command")))
}

func runIPythonAction(ev protocol.Event) string {
	return withThought(ev, fenced("python", ev.ArgString("code")))
}

func writeAction(ev protocol.Event) string {
	return ev.ArgString("path") + "\n" + Truncate(ev.ArgString("content"), DefaultBudget)
}

func readAction(ev protocol.Event) string {
	if th := ev.ArgString("thought"); th != "" {
		return th
	}
	return ev.ArgString("path")
}

func thoughtAction(ev protocol.Event) string {
	return ev.Thought()
}

func runObservation(prev string, ev protocol.Event) Result {
	code, ok := ev.ExtraInt("exit_code")
	out := ev.Content
	if out == "" {
		out = noOutputPlaceholder
	}
	return Result{
		Content: prev + "\n\nOutput:\n" + fenced("", Truncate(out, DefaultBudget)),
		Success: ok && code == 0,
	}
}

func runIPythonObservation(prev string, ev protocol.Event) Result {
	out := ev.Content
	if out == "" {
		out = noOutputPlaceholder
	}
	return Result{
		Content: prev + "\n\nOutput:\n" + fenced("", Truncate(out, DefaultBudget)),
		Success: !strings.Contains(strings.ToLower(ev.Content), "error:"),
	}
}

func readObservation(_ string, ev protocol.Event) Result {
	failed := false
	if ev.ExtraString("impl_source") == implSourceACI {
		failed = strings.HasPrefix(ev.Content, "ERROR:\n")
	} else {
		failed = strings.Contains(strings.ToLower(ev.Content), "error:")
	}
	return Result{
		Content: fenced("", Truncate(ev.Content, DefaultBudget)),
		Success: len(ev.Content) > 0 && !failed,
	}
}

func editObservation(_ string, ev protocol.Event) Result {
	if strings.Contains(strings.ToLower(ev.Content), "error:") {
		return Result{Content: ev.Content, Success: false}
	}
	return Result{
		Content: fenced("diff", ev.ExtraString("diff")),
		Success: true,
	}
}

func browseObservation(_ string, ev protocol.Event) Result {
	hasErr, errText := browseError(ev)

	var b strings.Builder
	b.WriteString("URL: " + ev.ExtraString("url"))
	if hasErr {
		b.WriteString("\n\nError:\n")
		if errText != "" {
			b.WriteString(errText + "\n")
		}
	} else {
		b.WriteString("\n\nOutput:\n")
	}
	b.WriteString(ev.Content)

	return Result{
		Content: Truncate(b.String(), DefaultBudget),
		Success: !hasErr,
	}
}

func delegateObservation(prev string, ev protocol.Event) Result {
	return Result{
		Content: prev + "\n\n" + Truncate(ev.Content, DefaultBudget),
		Success: true,
	}
}

// browseError normalizes extras.error, which backends emit either as a
// boolean flag or as error text.
func browseError(ev protocol.Event) (bool, string) {
	if ev.Extras == nil {
		return false, ""
	}
	switch v := ev.Extras["error"].(type) {
	case bool:
		return v, ""
	case string:
		return v != "", v
	}
	return false, ""
}
