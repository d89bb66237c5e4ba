package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Personality: PersonalityConfig{
			CharacterName:        "CynthiaRothbot",
			CharacterDescription: "legendary martial artist and actress",
			PersonalityTraits:    []string{"confident", "action-oriented", "pithy", "martial arts expert"},
			Expertise:            []string{"kung fu", "action movies", "martial arts", "B-movies"},
			ResponseStyle:        "short and punchy",
			NameVariations:       []string{"cynthia", "rothrock", "cynthiarothbot"},
		},
		DefaultProvider: "local",
		RateLimits: RateLimitsConfig{
			GlobalMaxPerMinute:      2,
			GlobalMaxPerHour:        20,
			GlobalCooldownSeconds:   15,
			UserMaxPerHour:          5,
			UserCooldownSeconds:     60,
			MentionCooldownSeconds:  120,
			AdminCooldownMultiplier: 0.5,
			AdminLimitMultiplier:    2.0,
			AdminRankThreshold:      2,
		},
		Message: MessageConfig{
			MaxMessageLength:   240,
			SplitDelaySeconds:  2,
			MaxEmojiPerMessage: 3,
		},
		Context: ContextConfig{
			ChatHistoryBuffer:   30,
			PromptHistoryItems:  10,
			MaxVideoTitleLength: 200,
		},
		Testing: TestingConfig{
			LogResponses: true,
			SendToChat:   true,
			LogFile:      "logs/responses.jsonl",
		},
		Audit: AuditConfig{
			Backend: "jsonl",
			Path:    "logs/responses.jsonl",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays secrets from the environment. Env vars always
// win over file values.
func (c *Config) applyEnvOverrides() {
	for name, pc := range c.Providers {
		key := "ROTHBOT_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_API_KEY"
		if v := os.Getenv(key); v != "" {
			pc.APIKey = v
			c.Providers[name] = pc
		}
	}
	if v := os.Getenv("ROTHBOT_ROOM_PASSWORD"); v != "" {
		c.Room.Password = v
	}
	if v := os.Getenv("ROTHBOT_ROOM_URL"); v != "" {
		c.Room.URL = v
	}
	if v := os.Getenv("ROTHBOT_ROOM_CHANNEL"); v != "" {
		c.Room.Channel = v
	}
}

// Validate checks cross-references and numeric ranges. Any error here is
// fatal at startup: the service refuses to run on a bad config.
func (c *Config) Validate() error {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if c.Personality.CharacterName == "" {
		fail("personality.character_name must not be empty")
	}

	if len(c.Providers) == 0 {
		fail("at least one provider must be configured")
	}
	if _, ok := c.Providers[c.DefaultProvider]; !ok {
		fail("default provider %q not found in providers", c.DefaultProvider)
	}
	for name, pc := range c.Providers {
		switch pc.Type {
		case "openai_compatible", "openrouter", "anthropic":
		default:
			fail("provider %q has unknown type %q", name, pc.Type)
		}
		if pc.Fallback != "" {
			if _, ok := c.Providers[pc.Fallback]; !ok {
				fail("provider %q has invalid fallback %q", name, pc.Fallback)
			}
		}
		if pc.TimeoutSeconds < 0 || pc.TimeoutSeconds > 60 {
			fail("provider %q timeout_seconds must be in [0,60]", name)
		}
		if pc.Temperature < 0 || pc.Temperature > 2 {
			fail("provider %q temperature must be in [0,2]", name)
		}
	}

	seen := make(map[string]bool)
	for _, t := range c.Triggers {
		if t.Name == "" {
			fail("trigger with empty name")
			continue
		}
		if seen[t.Name] {
			fail("duplicate trigger name %q", t.Name)
		}
		seen[t.Name] = true
		if len(t.Patterns) == 0 {
			fail("trigger %q has no patterns", t.Name)
		}
		if t.Probability != nil && (*t.Probability < 0 || *t.Probability > 1) {
			fail("trigger %q probability must be in [0,1]", t.Name)
		}
		if t.CooldownSeconds != nil && *t.CooldownSeconds < 0 {
			fail("trigger %q cooldown_seconds must be >= 0", t.Name)
		}
		if t.Priority != nil && (*t.Priority < 1 || *t.Priority > 10) {
			fail("trigger %q priority must be in [1,10]", t.Name)
		}
		if t.MaxResponsesPerHour != nil && *t.MaxResponsesPerHour < 0 {
			fail("trigger %q max_responses_per_hour must be >= 0", t.Name)
		}
		if t.Provider != "" {
			if _, ok := c.Providers[t.Provider]; !ok {
				fail("trigger %q has invalid provider %q", t.Name, t.Provider)
			}
		}
	}
	// Invalid regex patterns are startup failures, not runtime faults.
	if _, err := c.BuildTriggers(); err != nil {
		fail("%v", err)
	}

	rl := c.RateLimits
	if rl.AdminCooldownMultiplier < 0 || rl.AdminCooldownMultiplier > 1 {
		fail("rate_limits.admin_cooldown_multiplier must be in [0,1]")
	}
	if rl.AdminLimitMultiplier < 1 {
		fail("rate_limits.admin_limit_multiplier must be >= 1")
	}
	for field, v := range map[string]int{
		"global_max_per_minute":    rl.GlobalMaxPerMinute,
		"global_max_per_hour":      rl.GlobalMaxPerHour,
		"global_cooldown_seconds":  rl.GlobalCooldownSeconds,
		"user_max_per_hour":        rl.UserMaxPerHour,
		"user_cooldown_seconds":    rl.UserCooldownSeconds,
		"mention_cooldown_seconds": rl.MentionCooldownSeconds,
	} {
		if v < 0 {
			fail("rate_limits.%s must be >= 0", field)
		}
	}

	if c.Message.MaxMessageLength < 1 || c.Message.MaxMessageLength > 255 {
		fail("message.max_message_length must be in [1,255]")
	}
	if c.Message.SplitDelaySeconds < 0 || c.Message.SplitDelaySeconds > 10 {
		fail("message.split_delay_seconds must be in [0,10]")
	}
	if c.Context.ChatHistoryBuffer < 0 || c.Context.ChatHistoryBuffer > 100 {
		fail("context.chat_history_buffer must be in [0,100]")
	}
	if c.Context.MaxVideoTitleLength < 1 {
		fail("context.max_video_title_length must be >= 1")
	}

	switch c.Audit.Backend {
	case "", "jsonl", "sqlite":
	default:
		fail("audit.backend must be \"jsonl\" or \"sqlite\"")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
