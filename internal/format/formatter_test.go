package format

import (
	"strings"
	"testing"

	"github.com/moviebarn/rothbot/internal/config"
)

func testFormatter(maxLen int, filterEmoji bool, maxEmoji int) *Formatter {
	cfg := config.Default()
	cfg.Message.MaxMessageLength = maxLen
	cfg.Message.FilterEmoji = filterEmoji
	cfg.Message.MaxEmojiPerMessage = maxEmoji
	return New(cfg)
}

func TestFormat_Basic(t *testing.T) {
	f := testFormatter(240, false, 0)
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "fits in one part", in: "Short and punchy.", want: []string{"Short and punchy."}},
		{name: "whitespace trimmed", in: "  padded  ", want: []string{"padded"}},
		{name: "empty", in: "", want: nil},
		{name: "whitespace only", in: "   \n\t ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Format(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Format(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("part %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFormat_SelfReferencesStripped(t *testing.T) {
	f := testFormatter(240, false, 0)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "as name comma", in: "As CynthiaRothbot, I think kicks win fights.", want: "I think kicks win fights."},
		{name: "as name I", in: "As CynthiaRothbot I prefer the roundhouse.", want: "I prefer the roundhouse."},
		{name: "case-insensitive", in: "as cynthiarothbot, let's talk.", want: "let's talk."},
		{name: "mid-sentence untouched", in: "People call me CynthiaRothbot sometimes.", want: "People call me CynthiaRothbot sometimes."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Format(tt.in)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("Format(%q) = %v, want [%q]", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormat_OnlySelfReference(t *testing.T) {
	f := testFormatter(240, false, 0)
	if got := f.Format("As CynthiaRothbot, "); got != nil {
		t.Errorf("Format = %v, want nil for text that strips to nothing", got)
	}
}

func TestFormat_SplitsLongText(t *testing.T) {
	f := testFormatter(50, false, 0)
	text := strings.Repeat("abcde ", 40) // 240 chars

	parts := f.Format(text)
	if len(parts) < 2 {
		t.Fatalf("expected multiple parts, got %d", len(parts))
	}
	for i, p := range parts {
		if n := len([]rune(p)); n > 50 {
			t.Errorf("part %d is %d runes, exceeds max 50: %q", i, n, p)
		}
		if i > 0 && !strings.HasPrefix(p, "...") {
			t.Errorf("part %d missing leading continuation marker: %q", i, p)
		}
		if i < len(parts)-1 && !strings.HasSuffix(p, "...") {
			t.Errorf("part %d missing trailing continuation marker: %q", i, p)
		}
	}

	// Reassembling the parts recovers the original text.
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(strings.TrimSuffix(strings.TrimPrefix(p, "..."), "..."))
	}
	if sb.String() != text {
		t.Error("joined parts do not reconstruct the original text")
	}
}

func TestFormat_EmojiCap(t *testing.T) {
	f := testFormatter(240, true, 2)
	got := f.Format("wow \U0001F600\U0001F600\U0001F600\U0001F600 nice")
	if len(got) != 1 {
		t.Fatalf("Format = %v", got)
	}
	if n := strings.Count(got[0], "\U0001F600"); n != 2 {
		t.Errorf("emoji count = %d, want 2 (got %q)", n, got[0])
	}
}

func TestFormat_EmojiKeptWhenFilterOff(t *testing.T) {
	f := testFormatter(240, false, 2)
	got := f.Format("wow \U0001F600\U0001F600\U0001F600 nice")
	if n := strings.Count(got[0], "\U0001F600"); n != 3 {
		t.Errorf("emoji count = %d, want all 3 kept", n)
	}
}
