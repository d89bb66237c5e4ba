package config

import (
	"time"

	"github.com/moviebarn/rothbot/internal/trigger"
)

// Config is the root configuration for the rothbot service.
type Config struct {
	Personality     PersonalityConfig         `json:"personality"`
	Providers       map[string]ProviderConfig `json:"providers"`
	DefaultProvider string                    `json:"default_provider"`
	Triggers        []TriggerConfig           `json:"triggers,omitempty"`
	RateLimits      RateLimitsConfig          `json:"rate_limits"`
	Message         MessageConfig             `json:"message"`
	Context         ContextConfig             `json:"context"`
	Room            RoomConfig                `json:"room"`
	Testing         TestingConfig             `json:"testing"`
	Audit           AuditConfig               `json:"audit"`
}

// PersonalityConfig describes the bot character.
type PersonalityConfig struct {
	CharacterName        string   `json:"character_name"`
	CharacterDescription string   `json:"character_description"`
	PersonalityTraits    []string `json:"personality_traits,omitempty"`
	Expertise            []string `json:"expertise,omitempty"`
	ResponseStyle        string   `json:"response_style"`
	NameVariations       []string `json:"name_variations,omitempty"`
}

// ProviderConfig configures one text-generation backend.
// API keys come from env only (ROTHBOT_<NAME>_API_KEY), never from the file.
type ProviderConfig struct {
	Type           string  `json:"type"` // "openai_compatible", "openrouter", "anthropic"
	BaseURL        string  `json:"base_url"`
	APIKey         string  `json:"-"`
	Model          string  `json:"model"`
	MaxTokens      int     `json:"max_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"`
	Fallback       string  `json:"fallback,omitempty"` // provider to try on failure
}

// TriggerConfig is one trigger-word definition as written in the file.
// Pointer fields distinguish "absent" from an explicit zero: cooldown 0
// means no cooldown and a 0 hourly cap blocks the trigger outright, so
// neither may be silently rewritten to its default.
type TriggerConfig struct {
	Name                string   `json:"name"`
	Patterns            []string `json:"patterns"`
	Probability         *float64 `json:"probability,omitempty"`      // default 1.0
	CooldownSeconds     *int     `json:"cooldown_seconds,omitempty"` // default 300
	Context             string   `json:"context,omitempty"`
	ResponseStyle       string   `json:"response_style,omitempty"`
	MaxResponsesPerHour *int     `json:"max_responses_per_hour,omitempty"` // default 10
	Priority            *int     `json:"priority,omitempty"`               // default 5
	Enabled             *bool    `json:"enabled,omitempty"`                // default true
	Provider            string   `json:"provider,omitempty"`
}

// RateLimitsConfig mirrors ratelimit.Limits in file form.
type RateLimitsConfig struct {
	GlobalMaxPerMinute      int     `json:"global_max_per_minute"`
	GlobalMaxPerHour        int     `json:"global_max_per_hour"`
	GlobalCooldownSeconds   int     `json:"global_cooldown_seconds"`
	UserMaxPerHour          int     `json:"user_max_per_hour"`
	UserCooldownSeconds     int     `json:"user_cooldown_seconds"`
	MentionCooldownSeconds  int     `json:"mention_cooldown_seconds"`
	AdminCooldownMultiplier float64 `json:"admin_cooldown_multiplier"`
	AdminLimitMultiplier    float64 `json:"admin_limit_multiplier"`
	AdminRankThreshold      int     `json:"admin_rank_threshold"`
}

// MessageConfig controls outbound message shaping.
type MessageConfig struct {
	MaxMessageLength   int  `json:"max_message_length"`
	SplitDelaySeconds  int  `json:"split_delay_seconds"`
	FilterEmoji        bool `json:"filter_emoji,omitempty"`
	MaxEmojiPerMessage int  `json:"max_emoji_per_message,omitempty"`
}

// ContextConfig controls the conversational-state buffer.
type ContextConfig struct {
	ChatHistoryBuffer   int   `json:"chat_history_buffer"`
	PromptHistoryItems  int   `json:"prompt_history_items"`
	IncludeVideoContext *bool `json:"include_video_context,omitempty"` // default true
	IncludeChatHistory  *bool `json:"include_chat_history,omitempty"`  // default true
	MaxVideoTitleLength int   `json:"max_video_title_length"`
}

// RoomConfig points at the shared-video room. Password from env only.
type RoomConfig struct {
	URL      string `json:"url"`
	Channel  string `json:"channel"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// TestingConfig covers dry-run and response logging switches.
type TestingConfig struct {
	DryRun       bool   `json:"dry_run,omitempty"`
	LogResponses bool   `json:"log_responses"`
	SendToChat   bool   `json:"send_to_chat"`
	LogFile      string `json:"log_file,omitempty"`
}

// AuditConfig selects the audit sink backend.
type AuditConfig struct {
	Backend string `json:"backend"` // "jsonl" (default) or "sqlite"
	Path    string `json:"path"`
}

// IncludeVideo reports whether video context goes into prompts.
func (c ContextConfig) IncludeVideo() bool {
	return c.IncludeVideoContext == nil || *c.IncludeVideoContext
}

// IncludeHistory reports whether chat history goes into prompts.
func (c ContextConfig) IncludeHistory() bool {
	return c.IncludeChatHistory == nil || *c.IncludeChatHistory
}

// SplitDelay returns the inter-part send delay as a duration.
func (c MessageConfig) SplitDelay() time.Duration {
	return time.Duration(c.SplitDelaySeconds) * time.Second
}

// BuildTriggers compiles the configured triggers into runtime definitions.
// Pattern compilation errors surface here; Validate calls this so invalid
// regexes are fatal at startup.
func (c *Config) BuildTriggers() ([]trigger.Definition, error) {
	defs := make([]trigger.Definition, 0, len(c.Triggers))
	for _, tc := range c.Triggers {
		patterns, err := trigger.CompilePatterns(tc.Patterns)
		if err != nil {
			return nil, err
		}
		probability := 1.0
		if tc.Probability != nil {
			probability = *tc.Probability
		}
		cooldown := 300
		if tc.CooldownSeconds != nil {
			cooldown = *tc.CooldownSeconds
		}
		maxPerHour := 10
		if tc.MaxResponsesPerHour != nil {
			maxPerHour = *tc.MaxResponsesPerHour
		}
		priority := 5
		if tc.Priority != nil {
			priority = *tc.Priority
		}
		enabled := tc.Enabled == nil || *tc.Enabled
		defs = append(defs, trigger.Definition{
			Name:          tc.Name,
			Patterns:      patterns,
			Probability:   probability,
			Cooldown:      time.Duration(cooldown) * time.Second,
			Context:       tc.Context,
			ResponseStyle: tc.ResponseStyle,
			MaxPerHour:    maxPerHour,
			Priority:      priority,
			Enabled:       enabled,
			Provider:      tc.Provider,
		})
	}
	return defs, nil
}
