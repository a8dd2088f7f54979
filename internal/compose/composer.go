// Package compose builds the spoken wake-up script from a user's
// personalization. It implements the dispatch.Composer contract; a hosted
// LLM-backed composer can replace it behind the same interface.
package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/mliyanage/kickass-morning-sub000/internal/dispatch"
	"github.com/mliyanage/kickass-morning-sub000/internal/domain"
)

// DefaultVoiceID is used when personalization carries no voice choice.
const DefaultVoiceID = "voice-morning-01"

var goalPhrases = map[string]string{
	"exercise":   "get that workout in before the day takes over",
	"study":      "put in focused study time while your mind is fresh",
	"work":       "get a head start on your most important work",
	"meditation": "take a quiet moment to center yourself",
	"family":     "be present for the people who matter most",
}

var strugglePhrases = map[string]string{
	"snoozing":        "the snooze button is not your friend today",
	"late-nights":     "last night is done; this morning is yours",
	"low-motivation":  "motivation follows action, so just get your feet on the floor",
	"inconsistency":   "showing up today is how streaks are built",
	"procrastination": "the hardest part is the first five minutes",
}

// Composer is a pure template composer.
type Composer struct{}

// New returns a template Composer.
func New() *Composer { return &Composer{} }

// Compose renders the script for one call.
func (c *Composer) Compose(_ context.Context, u *domain.User, p *domain.Personalization, s *domain.Schedule) (dispatch.Script, error) {
	if p == nil {
		return dispatch.Script{}, fmt.Errorf("compose: nil personalization")
	}

	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = "there"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Good morning, %s! It's %s — time to rise.", name, domain.FormatMinute(s.WakeMinute))

	if line := goalLine(p); line != "" {
		b.WriteString(" Today you wanted to ")
		b.WriteString(line)
		b.WriteString(".")
	}
	if line := struggleLine(p); line != "" {
		b.WriteString(" Remember: ")
		b.WriteString(line)
		b.WriteString(".")
	}
	if extra := strings.TrimSpace(p.ExtraContext); extra != "" {
		b.WriteString(" ")
		b.WriteString(extra)
	}
	b.WriteString(" Let's make it count.")

	voice := p.VoiceID
	if voice == "" {
		voice = DefaultVoiceID
	}
	return dispatch.Script{Text: b.String(), VoiceID: voice}, nil
}

func goalLine(p *domain.Personalization) string {
	var parts []string
	for _, g := range p.Goals {
		if phrase, ok := goalPhrases[strings.ToLower(g)]; ok {
			parts = append(parts, phrase)
		}
	}
	if custom := strings.TrimSpace(p.CustomGoal); custom != "" {
		parts = append(parts, custom)
	}
	return joinNatural(parts)
}

func struggleLine(p *domain.Personalization) string {
	var parts []string
	for _, s := range p.Struggles {
		if phrase, ok := strugglePhrases[strings.ToLower(s)]; ok {
			parts = append(parts, phrase)
		}
	}
	if custom := strings.TrimSpace(p.CustomStruggle); custom != "" {
		parts = append(parts, custom)
	}
	return joinNatural(parts)
}

func joinNatural(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}
