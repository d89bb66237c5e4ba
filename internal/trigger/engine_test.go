package trigger

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/moviebarn/rothbot/internal/bus"
)

func mustPatterns(t *testing.T, raw ...string) []Pattern {
	t.Helper()
	ps, err := CompilePatterns(raw)
	if err != nil {
		t.Fatalf("CompilePatterns: %v", err)
	}
	return ps
}

func testEngine(t *testing.T, rng func() float64) *Engine {
	t.Helper()
	defs := []Definition{
		{
			Name:        "toddy",
			Patterns:    mustPatterns(t, "toddy", "robert z'dar"),
			Probability: 1.0,
			Context:     "Respond enthusiastically about Robert Z'Dar",
			Priority:    8,
			Enabled:     true,
		},
		{
			Name:        "kung_fu",
			Patterns:    mustPatterns(t, "kung.?fu"),
			Probability: 1.0,
			Priority:    5,
			Enabled:     true,
		},
		{
			Name:        "movie",
			Patterns:    mustPatterns(t, "movie"),
			Probability: 1.0,
			Priority:    3,
			Enabled:     true,
		},
		{
			Name:        "disabled",
			Patterns:    mustPatterns(t, "disabled pattern"),
			Probability: 1.0,
			Priority:    9,
			Enabled:     false,
		},
	}
	return NewEngine("CynthiaRothbot", []string{"cynthia", "rothrock"}, defs, rng)
}

func chat(text string) bus.ChatMessage {
	return bus.ChatMessage{Username: "testuser", Text: text, Rank: 1}
}

func TestEvaluate_MentionCasing(t *testing.T) {
	e := testEngine(t, nil)
	tests := []struct {
		name string
		text string
	}{
		{name: "lowercase", text: "hey cynthia, how are you?"},
		{name: "uppercase", text: "CYNTHIA can you help?"},
		{name: "mixed case", text: "Hey CyNtHiA, what's up?"},
		{name: "alternative alias", text: "yo rothrock, thoughts on the new movie?"},
		{name: "middle of message", text: "I think cynthia would know the answer"},
		{name: "end of message", text: "What do you think, cynthia?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.Evaluate(chat(tt.text))
			if !out.Triggered || out.Kind != KindMention {
				t.Fatalf("Evaluate(%q) = %+v, want mention", tt.text, out)
			}
			if out.Priority != MentionPriority {
				t.Errorf("priority = %d, want %d", out.Priority, MentionPriority)
			}
			lower := strings.ToLower(out.CleanedText)
			if strings.Contains(lower, "cynthia") || strings.Contains(lower, "rothrock") {
				t.Errorf("cleaned text still contains the alias: %q", out.CleanedText)
			}
		})
	}
}

func TestEvaluate_CleanedText(t *testing.T) {
	e := testEngine(t, nil)
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "greeting and punctuation dropped", text: "hey cynthia, how are you?", want: "how are you?"},
		{name: "leading punctuation dropped", text: "Cynthia, can you help?", want: "can you help?"},
		{name: "whitespace collapsed", text: "hey   cynthia     what's up?", want: "what's up?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.Evaluate(chat(tt.text))
			if out.CleanedText != tt.want {
				t.Errorf("Evaluate(%q).CleanedText = %q, want %q", tt.text, out.CleanedText, tt.want)
			}
		})
	}
}

func TestEvaluate_MentionBeatsTriggerWord(t *testing.T) {
	e := testEngine(t, nil)
	out := e.Evaluate(chat("hey cynthia, I love kung fu!"))
	if out.Kind != KindMention {
		t.Fatalf("kind = %q, want mention", out.Kind)
	}
	if out.Name != "cynthia" || out.Priority != MentionPriority {
		t.Errorf("got name=%q priority=%d, want cynthia/10", out.Name, out.Priority)
	}
	if out.Context != "" {
		t.Errorf("mentions carry no trigger context, got %q", out.Context)
	}
}

func TestEvaluate_TriggerWordOutcome(t *testing.T) {
	e := testEngine(t, nil)
	out := e.Evaluate(chat("praise toddy!"))
	if !out.Triggered || out.Kind != KindTriggerWord {
		t.Fatalf("Evaluate = %+v, want trigger_word", out)
	}
	if out.Name != "toddy" || out.Priority != 8 {
		t.Errorf("got name=%q priority=%d, want toddy/8", out.Name, out.Priority)
	}
	if out.Context != "Respond enthusiastically about Robert Z'Dar" {
		t.Errorf("context = %q", out.Context)
	}
	if strings.Contains(strings.ToLower(out.CleanedText), "toddy") {
		t.Errorf("cleaned text still contains trigger: %q", out.CleanedText)
	}
}

func TestEvaluate_NoMatch(t *testing.T) {
	e := testEngine(t, nil)
	out := e.Evaluate(chat("just chatting about nothing"))
	if out.Triggered || out.Kind != KindNone || out.Priority != 0 {
		t.Errorf("Evaluate = %+v, want none outcome with priority 0", out)
	}
}

func TestEvaluate_Probability(t *testing.T) {
	always := []Definition{{
		Name: "always", Patterns: mustPatterns(t, "word"),
		Probability: 1.0, Priority: 5, Enabled: true,
	}}
	never := []Definition{{
		Name: "never", Patterns: mustPatterns(t, "word"),
		Probability: 0.0, Priority: 5, Enabled: true,
	}}

	e := NewEngine("bot", nil, always, nil)
	for i := 0; i < 1000; i++ {
		if out := e.Evaluate(chat("a word here")); !out.Triggered {
			t.Fatalf("probability 1.0 failed to trigger on trial %d", i)
		}
	}

	e = NewEngine("bot", nil, never, nil)
	for i := 0; i < 1000; i++ {
		if out := e.Evaluate(chat("a word here")); out.Triggered {
			t.Fatalf("probability 0.0 triggered on trial %d", i)
		}
	}
}

func TestEvaluate_DisabledSkipped(t *testing.T) {
	e := testEngine(t, nil)
	out := e.Evaluate(chat("this is a disabled pattern test"))
	if out.Triggered {
		t.Errorf("disabled trigger matched: %+v", out)
	}
}

func TestEvaluate_PriorityOrdering(t *testing.T) {
	// "kung fu movie" matches both kung_fu (5) and movie (3);
	// the higher-priority definition wins.
	e := testEngine(t, func() float64 { return 0 })
	out := e.Evaluate(chat("I love kung fu movies!"))
	if out.Name != "kung_fu" {
		t.Errorf("trigger = %q, want kung_fu", out.Name)
	}
}

func TestEvaluate_FailedRollContinuesToLowerPriority(t *testing.T) {
	// First draw fails kung_fu's 0.5 roll, second draw admits movie.
	draws := []float64{0.9, 0.0}
	i := 0
	rng := func() float64 {
		v := draws[i%len(draws)]
		i++
		return v
	}
	defs := []Definition{
		{Name: "kung_fu", Patterns: mustPatterns(t, "kung.?fu"), Probability: 0.5, Priority: 5, Enabled: true},
		{Name: "movie", Patterns: mustPatterns(t, "movie"), Probability: 1.0, Priority: 3, Enabled: true},
	}
	e := NewEngine("bot", nil, defs, rng)

	out := e.Evaluate(chat("I love kung fu movies!"))
	if !out.Triggered || out.Name != "movie" {
		t.Errorf("Evaluate = %+v, want fallthrough to movie", out)
	}
}

func TestEvaluate_MentionAfterLengthChangingRunes(t *testing.T) {
	// İ and Ⱥ change byte length under case folding; cleaning must still
	// slice the original text on rune boundaries.
	e := testEngine(t, nil)
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "dotted capital I prefix", text: "İİİİ cynthia hello", want: "İİİİ hello"},
		{name: "glottal A prefix", text: "ȺȺȺȺȺȺȺȺ cynthia", want: "ȺȺȺȺȺȺȺȺ"},
		{name: "mixed case alias after multibyte", text: "ȺȺ hey CYNTHIA, got a minute?", want: "ȺȺ got a minute?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.Evaluate(chat(tt.text))
			if !out.Triggered || out.Kind != KindMention {
				t.Fatalf("Evaluate(%q) = %+v, want mention", tt.text, out)
			}
			if out.CleanedText != tt.want {
				t.Errorf("cleaned = %q, want %q", out.CleanedText, tt.want)
			}
			if !utf8.ValidString(out.CleanedText) {
				t.Errorf("cleaned text is not valid UTF-8: %q", out.CleanedText)
			}
			if strings.Contains(strings.ToLower(out.CleanedText), "cynthia") {
				t.Errorf("alias left in cleaned text: %q", out.CleanedText)
			}
		})
	}
}
