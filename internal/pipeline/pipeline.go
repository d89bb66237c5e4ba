// Package pipeline sequences the response-admission flow for each inbound
// chat message: trigger evaluation, rate-limit check, prompt construction,
// generation, formatting, dispatch, rate-limit commit, and audit logging.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/moviebarn/rothbot/internal/audit"
	"github.com/moviebarn/rothbot/internal/bus"
	"github.com/moviebarn/rothbot/internal/format"
	"github.com/moviebarn/rothbot/internal/history"
	"github.com/moviebarn/rothbot/internal/prompt"
	"github.com/moviebarn/rothbot/internal/ratelimit"
	"github.com/moviebarn/rothbot/internal/trigger"
)

// Sender dispatches one formatted chat part to the room.
type Sender interface {
	SendChat(ctx context.Context, text string) error
}

// Generator produces a reply for the given prompts, optionally via a named
// provider. It returns the text and the provider that produced it.
type Generator interface {
	Generate(ctx context.Context, providerName, systemPrompt, userPrompt string) (string, string, error)
}

// Options wires a Pipeline.
type Options struct {
	Engine        *trigger.Engine
	Limiter       *ratelimit.Limiter
	History       *history.Manager
	Prompts       *prompt.Builder
	Formatter     *format.Formatter
	Generator     Generator
	Sender        Sender
	Audit         audit.Sink
	CharacterName string
	SplitDelay    time.Duration
	PromptItems   int // history entries injected into prompts
	DryRun        bool
	SendToChat    bool
}

// Pipeline owns per-message ordering: each chat message runs the full
// sequence to completion before its audit record is written. Media events
// bypass the sequence entirely and only touch the history manager.
type Pipeline struct {
	opts  Options
	sleep func(ctx context.Context, d time.Duration)
}

// New builds a pipeline from its collaborators.
func New(opts Options) *Pipeline {
	return &Pipeline{
		opts: opts,
		sleep: func(ctx context.Context, d time.Duration) {
			if d <= 0 {
				return
			}
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		},
	}
}

// HandleMedia updates the now-playing snapshot. Never blocks on I/O, so it
// is safe to run concurrently with an in-flight chat pipeline.
func (p *Pipeline) HandleMedia(ev bus.MediaChange) {
	p.opts.History.OnMediaChange(ev)
	slog.Debug("media changed", "title", ev.Title, "type", ev.Type, "queueby", ev.QueuedBy)
}

// HandleChat runs the admission pipeline for one chat message.
func (p *Pipeline) HandleChat(ctx context.Context, msg bus.ChatMessage) {
	// The incoming line joins the rolling buffer whatever happens below;
	// the manager itself filters out the bot's own messages.
	defer p.opts.History.RecordChat(msg.Username, msg.Text)

	if strings.TrimSpace(msg.Text) == "" || strings.EqualFold(msg.Username, p.opts.CharacterName) {
		return
	}

	outcome := p.opts.Engine.Evaluate(msg)
	if !outcome.Triggered {
		return
	}
	slog.Info("triggered", "kind", outcome.Kind, "name", outcome.Name,
		"username", msg.Username, "priority", outcome.Priority)

	rec := audit.NewRecord()
	rec.Username = msg.Username
	rec.TriggerKind = string(outcome.Kind)
	rec.TriggerName = outcome.Name
	rec.Message = msg.Text

	decision := p.opts.Limiter.Check(msg.Username, msg.Rank, outcome)
	rec.Allowed = decision.Allowed
	rec.Reason = string(decision.Reason)
	rec.RetryAfterSeconds = decision.RetryAfter.Seconds()

	if !decision.Allowed {
		slog.Info("rate limit blocked response",
			"reason", decision.Reason, "retry_after", decision.RetryAfter,
			"username", msg.Username)
		p.writeAudit(rec)
		return
	}

	snap := p.opts.History.Snapshot(p.opts.PromptItems)
	systemPrompt := p.opts.Prompts.System(outcome.ResponseStyle)
	userPrompt := p.opts.Prompts.User(msg.Username, outcome.CleanedText, outcome.Context, snap)

	text, providerName, err := p.opts.Generator.Generate(ctx, outcome.Provider, systemPrompt, userPrompt)
	rec.Provider = providerName
	if err != nil {
		slog.Error("generation failed", "provider", outcome.Provider, "error", err)
		p.writeAudit(rec)
		return
	}
	rec.RawResponse = text

	parts := p.opts.Formatter.Format(text)
	if len(parts) == 0 {
		slog.Error("formatter produced no output", "username", msg.Username)
		p.writeAudit(rec)
		return
	}
	rec.Parts = parts

	sent := p.dispatch(ctx, parts)
	rec.Sent = sent

	// Dry-run runs never consume rate-limit budget; outside dry-run the
	// attempt counts even when nothing went out.
	if sent || !p.opts.DryRun {
		p.opts.Limiter.Commit(msg.Username, outcome)
	}

	// Record the reply; the manager's self-message filter applies.
	p.opts.History.RecordChat(p.opts.CharacterName, strings.Join(parts, " "))

	p.writeAudit(rec)
	slog.Info("message processed",
		"username", msg.Username, "kind", outcome.Kind, "name", outcome.Name,
		"parts", len(parts), "sent", sent)
}

func (p *Pipeline) dispatch(ctx context.Context, parts []string) bool {
	sent := false
	for i, part := range parts {
		if p.opts.DryRun || !p.opts.SendToChat {
			slog.Info("[dry run] would send", "part", i+1, "total", len(parts), "text", part)
		} else if err := p.opts.Sender.SendChat(ctx, part); err != nil {
			slog.Error("send failed", "part", i+1, "error", err)
		} else {
			sent = true
		}
		if i < len(parts)-1 {
			p.sleep(ctx, p.opts.SplitDelay)
		}
	}
	return sent
}

func (p *Pipeline) writeAudit(rec audit.Record) {
	if err := p.opts.Audit.Write(rec); err != nil {
		slog.Warn("audit write failed", "error", err)
	}
}
