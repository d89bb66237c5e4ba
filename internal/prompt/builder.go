package prompt

import (
	"fmt"
	"strings"

	"github.com/moviebarn/rothbot/internal/config"
	"github.com/moviebarn/rothbot/internal/history"
)

// Builder constructs the system and user prompts for a generation request.
type Builder struct {
	personality    config.PersonalityConfig
	maxLength      int
	includeVideo   bool
	includeHistory bool
}

// NewBuilder creates a prompt builder from the loaded config.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{
		personality:    cfg.Personality,
		maxLength:      cfg.Message.MaxMessageLength,
		includeVideo:   cfg.Context.IncludeVideo(),
		includeHistory: cfg.Context.IncludeHistory(),
	}
}

// System builds the character system prompt. styleOverride, when non-empty,
// replaces the configured response style for this one request.
func (b *Builder) System(styleOverride string) string {
	p := b.personality
	style := p.ResponseStyle
	if styleOverride != "" {
		style = styleOverride
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, %s.\n\n", p.CharacterName, p.CharacterDescription)
	fmt.Fprintf(&sb, "Personality traits: %s\n", strings.Join(p.PersonalityTraits, ", "))
	fmt.Fprintf(&sb, "Areas of expertise: %s\n\n", strings.Join(p.Expertise, ", "))
	fmt.Fprintf(&sb, "Response style: %s\n\n", style)
	fmt.Fprintf(&sb, "Important rules:\n")
	fmt.Fprintf(&sb, "- Keep responses under %d characters\n", b.maxLength)
	sb.WriteString("- Stay in character\n")
	sb.WriteString("- Be natural and conversational\n")
	sb.WriteString("- Do not use markdown formatting\n")
	sb.WriteString("- Do not start responses with your character name")
	return sb.String()
}

// User builds the user prompt: the cleaned message plus optional trigger
// context, now-playing line, and recent chat lines from the snapshot.
func (b *Builder) User(username, message, triggerContext string, snap history.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s says: %s", username, message)

	if triggerContext != "" {
		fmt.Fprintf(&sb, "\n\nContext: %s", triggerContext)
	}

	if b.includeVideo && snap.Video != nil {
		fmt.Fprintf(&sb, "\n\nNow playing: %s (queued by %s)", snap.Video.Title, snap.Video.QueuedBy)
	}

	if b.includeHistory && len(snap.History) > 0 {
		sb.WriteString("\n\nRecent chat:")
		for _, e := range snap.History {
			fmt.Fprintf(&sb, "\n%s: %s", e.Username, e.Message)
		}
	}

	return sb.String()
}
