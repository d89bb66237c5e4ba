package format

import (
	"regexp"
	"strings"

	"github.com/moviebarn/rothbot/internal/config"
)

// Formatter shapes raw generated text into sendable chat parts.
type Formatter struct {
	maxLength   int
	filterEmoji bool
	maxEmoji    int
	selfRefs    []*regexp.Regexp
}

// New builds a formatter for the configured character and message limits.
// Self-reference patterns are compiled once here.
func New(cfg *config.Config) *Formatter {
	name := regexp.QuoteMeta(cfg.Personality.CharacterName)
	return &Formatter{
		maxLength:   cfg.Message.MaxMessageLength,
		filterEmoji: cfg.Message.FilterEmoji,
		maxEmoji:    cfg.Message.MaxEmojiPerMessage,
		selfRefs: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^As ` + name + `,?\s*`),
			regexp.MustCompile(`(?i)^As ` + name + `\s+I\s+`),
		},
	}
}

// Format trims the response, strips leading self-references, optionally
// caps emoji, and splits overlong text into parts with "..." continuation
// markers. An empty result means the response is unusable; the caller
// treats that like a failed generation.
func (f *Formatter) Format(response string) []string {
	text := strings.TrimSpace(response)
	if text == "" {
		return nil
	}

	for _, re := range f.selfRefs {
		text = re.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if f.filterEmoji {
		text = capEmoji(text, f.maxEmoji)
	}

	return f.split(text)
}

// split chops text into parts no longer than maxLength runes, reserving
// room for the "..." markers that join consecutive parts.
func (f *Formatter) split(text string) []string {
	runes := []rune(text)
	if len(runes) <= f.maxLength {
		return []string{text}
	}

	var parts []string
	for len(runes) > 0 {
		lead := ""
		if len(parts) > 0 {
			lead = "..."
		}
		budget := f.maxLength - len(lead)
		if len(runes) <= budget {
			parts = append(parts, lead+string(runes))
			break
		}
		budget -= 3 // trailing marker
		parts = append(parts, lead+string(runes[:budget])+"...")
		runes = runes[budget:]
	}
	return parts
}

// capEmoji removes emoji beyond the configured per-message cap.
func capEmoji(text string, max int) string {
	var sb strings.Builder
	count := 0
	for _, r := range text {
		if isEmoji(r) {
			count++
			if count > max {
				continue
			}
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	}
	return false
}
