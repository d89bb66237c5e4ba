package ratelimit

import (
	"sync"
	"time"

	"github.com/moviebarn/rothbot/internal/trigger"
)

// Scope identifies one independently tracked rate-limit dimension.
type Scope string

const (
	ScopeGlobalCooldown  Scope = "global-cooldown"
	ScopeGlobalPerMinute Scope = "global-per-minute"
	ScopeGlobalPerHour   Scope = "global-per-hour"
	ScopeUserPerHour     Scope = "user-per-hour"
	ScopeUserCooldown    Scope = "user-cooldown"
	ScopeMentionCooldown Scope = "mention-cooldown"
	ScopeTriggerCooldown Scope = "trigger-cooldown"
	ScopeTriggerPerHour  Scope = "trigger-per-hour"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

// Decision is the result of an admission check.
type Decision struct {
	Allowed    bool
	Reason     Scope         // first scope that blocked, empty when allowed
	RetryAfter time.Duration // remaining wait of the blocking scope
}

// Limits holds the configured thresholds shared by all scopes.
type Limits struct {
	GlobalMaxPerMinute int
	GlobalMaxPerHour   int
	GlobalCooldown     time.Duration
	UserMaxPerHour     int
	UserCooldown       time.Duration
	MentionCooldown    time.Duration

	// Admins (rank >= AdminRankThreshold) get shorter cooldowns and higher
	// caps: strictly less restricted, never more.
	AdminCooldownMultiplier float64 // <= 1
	AdminLimitMultiplier    float64 // >= 1
	AdminRankThreshold      int
}

// triggerPolicy is the per-trigger cooldown and hourly cap, taken from the
// trigger definitions at construction.
type triggerPolicy struct {
	cooldown   time.Duration
	maxPerHour int
}

// Limiter enforces multi-scope admission control over bot responses.
// All scope state lives in this one struct, guarded by a single mutex, so
// concurrent messages can never both slip past the last remaining slot.
type Limiter struct {
	mu       sync.Mutex
	limits   Limits
	triggers map[string]triggerPolicy
	now      func() time.Time

	globalLast  time.Time
	globalSends []time.Time // sliding 1h window, pruned on every touch

	userLast  map[string]time.Time
	userSends map[string][]time.Time

	mentionLast map[string]time.Time

	triggerLast  map[string]time.Time
	triggerSends map[string][]time.Time
}

// New builds a limiter with fresh state. Per-trigger thresholds are read
// from defs. now is an injectable clock; pass nil for time.Now.
func New(limits Limits, defs []trigger.Definition, now func() time.Time) *Limiter {
	policies := make(map[string]triggerPolicy, len(defs))
	for _, d := range defs {
		policies[d.Name] = triggerPolicy{cooldown: d.Cooldown, maxPerHour: d.MaxPerHour}
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		limits:       limits,
		triggers:     policies,
		now:          now,
		userLast:     make(map[string]time.Time),
		userSends:    make(map[string][]time.Time),
		mentionLast:  make(map[string]time.Time),
		triggerLast:  make(map[string]time.Time),
		triggerSends: make(map[string][]time.Time),
	}
}

// Check evaluates every applicable scope in fixed order and short-circuits
// at the first violation. It never mutates send state; pair it with Commit.
func (l *Limiter) Check(username string, rank int, out trigger.Outcome) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	cdMult, capMult := l.multipliers(rank)

	// 1. Global cooldown since the last send.
	if wait, blocked := cooldownWait(l.globalLast, scaleDur(l.limits.GlobalCooldown, cdMult), now); blocked {
		return Decision{Reason: ScopeGlobalCooldown, RetryAfter: wait}
	}
	// 2. Global trailing-minute count.
	if wait, blocked := windowWait(l.globalSends, minuteWindow, scaleCap(l.limits.GlobalMaxPerMinute, capMult), now); blocked {
		return Decision{Reason: ScopeGlobalPerMinute, RetryAfter: wait}
	}
	// 3. Global trailing-hour count.
	if wait, blocked := windowWait(l.globalSends, hourWindow, scaleCap(l.limits.GlobalMaxPerHour, capMult), now); blocked {
		return Decision{Reason: ScopeGlobalPerHour, RetryAfter: wait}
	}
	// 4. Per-user trailing-hour count.
	if wait, blocked := windowWait(l.userSends[username], hourWindow, scaleCap(l.limits.UserMaxPerHour, capMult), now); blocked {
		return Decision{Reason: ScopeUserPerHour, RetryAfter: wait}
	}
	// 5. Per-user cooldown.
	if wait, blocked := cooldownWait(l.userLast[username], scaleDur(l.limits.UserCooldown, cdMult), now); blocked {
		return Decision{Reason: ScopeUserCooldown, RetryAfter: wait}
	}
	// 6. Mention cooldown, per user.
	if out.Kind == trigger.KindMention {
		if wait, blocked := cooldownWait(l.mentionLast[username], scaleDur(l.limits.MentionCooldown, cdMult), now); blocked {
			return Decision{Reason: ScopeMentionCooldown, RetryAfter: wait}
		}
	}
	// 7. The matched trigger's own cooldown and hourly cap.
	if out.Kind == trigger.KindTriggerWord {
		policy := l.triggers[out.Name]
		if wait, blocked := cooldownWait(l.triggerLast[out.Name], scaleDur(policy.cooldown, cdMult), now); blocked {
			return Decision{Reason: ScopeTriggerCooldown, RetryAfter: wait}
		}
		if wait, blocked := windowWait(l.triggerSends[out.Name], hourWindow, scaleCap(policy.maxPerHour, capMult), now); blocked {
			return Decision{Reason: ScopeTriggerPerHour, RetryAfter: wait}
		}
	}

	return Decision{Allowed: true}
}

// Commit records a dispatched response against every scope the outcome
// touches. Call only after a response was actually sent.
func (l *Limiter) Commit(username string, out trigger.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	l.globalLast = now
	l.globalSends = append(l.globalSends, now)
	l.userLast[username] = now
	l.userSends[username] = append(l.userSends[username], now)

	switch out.Kind {
	case trigger.KindMention:
		l.mentionLast[username] = now
	case trigger.KindTriggerWord:
		l.triggerLast[out.Name] = now
		l.triggerSends[out.Name] = append(l.triggerSends[out.Name], now)
	}
}

func (l *Limiter) multipliers(rank int) (cooldown, limit float64) {
	if rank >= l.limits.AdminRankThreshold && l.limits.AdminRankThreshold > 0 {
		return l.limits.AdminCooldownMultiplier, l.limits.AdminLimitMultiplier
	}
	return 1, 1
}

// prune drops timestamps that fell out of the widest (1h) window.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-hourWindow)
	l.globalSends = pruneBefore(l.globalSends, cutoff)
	for user, sends := range l.userSends {
		if pruned := pruneBefore(sends, cutoff); len(pruned) > 0 {
			l.userSends[user] = pruned
		} else {
			delete(l.userSends, user)
		}
	}
	for name, sends := range l.triggerSends {
		if pruned := pruneBefore(sends, cutoff); len(pruned) > 0 {
			l.triggerSends[name] = pruned
		} else {
			delete(l.triggerSends, name)
		}
	}
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

// cooldownWait reports the remaining wait when a cooldown is still active.
func cooldownWait(last time.Time, cooldown time.Duration, now time.Time) (time.Duration, bool) {
	if last.IsZero() || cooldown <= 0 {
		return 0, false
	}
	elapsed := now.Sub(last)
	if elapsed >= cooldown {
		return 0, false
	}
	return cooldown - elapsed, true
}

// windowWait reports how long until a sliding-window cap frees a slot.
// sends must be in chronological order.
func windowWait(sends []time.Time, window time.Duration, limit int, now time.Time) (time.Duration, bool) {
	cutoff := now.Add(-window)
	inWindow := sends
	for len(inWindow) > 0 && !inWindow[0].After(cutoff) {
		inWindow = inWindow[1:]
	}
	if len(inWindow) < limit {
		return 0, false
	}
	if len(inWindow) == 0 {
		// limit is zero and nothing recorded: blocked with a full-window wait.
		return window, true
	}
	// Blocked until the (count-limit+1)-th oldest send leaves the window.
	idx := len(inWindow) - limit
	if idx < 0 {
		idx = 0
	} else if idx >= len(inWindow) {
		idx = len(inWindow) - 1
	}
	return inWindow[idx].Add(window).Sub(now), true
}

func scaleDur(d time.Duration, mult float64) time.Duration {
	if mult == 1 {
		return d
	}
	return time.Duration(float64(d) * mult)
}

func scaleCap(limit int, mult float64) int {
	if mult == 1 {
		return limit
	}
	return int(float64(limit) * mult)
}
