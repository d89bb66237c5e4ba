package trigger

import (
	"log/slog"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/moviebarn/rothbot/internal/bus"
)

// Kind classifies what activated a response.
type Kind string

const (
	KindNone        Kind = "none"
	KindMention     Kind = "mention"
	KindTriggerWord Kind = "trigger_word"
)

// MentionPriority is the fixed priority of name mentions. Mentions always
// outrank trigger words.
const MentionPriority = 10

// Definition is one configured trigger word, validated and compiled at load.
// Read-only at runtime.
type Definition struct {
	Name          string
	Patterns      []Pattern // OR-combined, first match wins
	Probability   float64   // [0,1] chance of responding on a pattern match
	Cooldown      time.Duration
	Context       string // extra context injected into the generation prompt
	ResponseStyle string // optional response-style override
	MaxPerHour    int
	Priority      int // 1..10, higher evaluated first
	Enabled       bool
	Provider      string // optional provider override
}

// Outcome is the activation decision for one inbound message.
type Outcome struct {
	Triggered     bool
	Kind          Kind
	Name          string // matched alias or trigger name
	CleanedText   string // message with the activator removed
	Context       string
	ResponseStyle string
	Provider      string
	Priority      int // mention=10, trigger word=definition priority, none=0
}

// alias is one mention matcher: the reported name plus its compiled
// case-folding matcher. Matching runs against the original message text so
// the reported offsets are always valid slice bounds into it.
type alias struct {
	name string
	re   *regexp.Regexp
}

// Engine decides whether a message activates the bot: by name mention or by
// configured trigger word. Pure except for the injected random source.
type Engine struct {
	aliases []alias      // character name + variations, in config order
	defs    []Definition // priority descending, config order preserved on ties
	rng     func() float64
}

// NewEngine builds a trigger engine. rng returns a uniform draw in [0,1);
// pass nil to use math/rand. Definitions are re-ordered by priority
// descending with ties kept in configuration order.
func NewEngine(characterName string, nameVariations []string, defs []Definition, rng func() float64) *Engine {
	aliases := make([]alias, 0, len(nameVariations)+1)
	addAlias := func(v string) {
		if v == "" {
			return
		}
		aliases = append(aliases, alias{
			name: strings.ToLower(v),
			re:   regexp.MustCompile("(?i)" + regexp.QuoteMeta(v)),
		})
	}
	addAlias(characterName)
	for _, v := range nameVariations {
		addAlias(v)
	}

	sorted := make([]Definition, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	if rng == nil {
		rng = rand.Float64
	}
	return &Engine{aliases: aliases, defs: sorted, rng: rng}
}

// Evaluate checks a message against mention aliases first, then trigger
// words in priority order. A mention short-circuits trigger evaluation
// unconditionally. A trigger whose probability roll fails does not stop the
// scan: lower-priority triggers still get a chance.
func (e *Engine) Evaluate(msg bus.ChatMessage) Outcome {
	if out, ok := e.checkMention(msg.Text); ok {
		return out
	}

	for _, def := range e.defs {
		if !def.Enabled {
			continue
		}
		start, end, ok := e.findPattern(def, msg.Text)
		if !ok {
			continue
		}
		if e.rng() >= def.Probability {
			slog.Debug("trigger roll failed", "trigger", def.Name, "probability", def.Probability)
			continue
		}
		return Outcome{
			Triggered:     true,
			Kind:          KindTriggerWord,
			Name:          def.Name,
			CleanedText:   cleanActivator(msg.Text, start, end),
			Context:       def.Context,
			ResponseStyle: def.ResponseStyle,
			Provider:      def.Provider,
			Priority:      def.Priority,
		}
	}

	return Outcome{Kind: KindNone}
}

func (e *Engine) checkMention(text string) (Outcome, bool) {
	for _, a := range e.aliases {
		loc := a.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		return Outcome{
			Triggered:   true,
			Kind:        KindMention,
			Name:        a.name,
			CleanedText: cleanActivator(text, loc[0], loc[1]),
			Priority:    MentionPriority,
		}, true
	}
	return Outcome{}, false
}

func (e *Engine) findPattern(def Definition, text string) (start, end int, ok bool) {
	for _, p := range def.Patterns {
		if s, en, found := p.Find(text); found {
			return s, en, true
		}
	}
	return 0, 0, false
}

// greetings are filler words dropped when they directly precede the
// activator, so "hey cynthia, how are you?" cleans to "how are you?".
var greetings = map[string]bool{
	"hey": true, "hi": true, "hello": true, "yo": true, "ok": true, "okay": true,
}

// cleanActivator removes the matched span from text along with immediately
// adjacent punctuation and any greeting word just before it, then collapses
// runs of whitespace and trims.
func cleanActivator(text string, start, end int) string {
	before := text[:start]
	after := text[end:]

	// Drop punctuation hugging the removed span.
	after = strings.TrimLeft(after, ",.!?:; ")
	before = strings.TrimRight(before, " ")
	before = strings.TrimRight(before, ",.!?:;")

	// Drop a greeting word directly before the activator.
	word, cut := before, 0
	if i := strings.LastIndexByte(before, ' '); i >= 0 {
		word, cut = before[i+1:], i+1
	}
	if greetings[strings.ToLower(word)] {
		before = before[:cut]
	}

	cleaned := strings.TrimSpace(before + " " + after)
	return strings.Join(strings.Fields(cleaned), " ")
}
