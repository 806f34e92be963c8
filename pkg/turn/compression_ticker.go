package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ninetwolabs/agentrt/pkg/clock"
	"github.com/ninetwolabs/agentrt/pkg/convo"
)

var compressionCronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CompressionTicker periodically calls TryCompress(ctx, false) on a session
// so long-idle conversations get summarized even without a new turn
// arriving to trigger the scheduler's own pre-turn compression check.
type CompressionTicker struct {
	session  *convo.Session
	schedule cron.Schedule
	clock    clock.Clock
	onTick   func(*convo.CompressionSnapshot, error)
}

// NewCompressionTicker parses spec as a standard cron expression (or
// descriptor such as "@every 5m") and returns a ticker bound to session.
// onTick is optional and receives the result of every TryCompress call,
// including nil-nil no-op ticks where the token threshold wasn't reached.
func NewCompressionTicker(spec string, session *convo.Session, onTick func(*convo.CompressionSnapshot, error)) (*CompressionTicker, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("turn: compression ticker spec is empty")
	}
	schedule, err := compressionCronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("turn: invalid compression schedule %q: %w", spec, err)
	}
	return &CompressionTicker{
		session:  session,
		schedule: schedule,
		clock:    clock.SystemClock{},
		onTick:   onTick,
	}, nil
}

// Run blocks, firing TryCompress at each scheduled tick until ctx is done.
func (t *CompressionTicker) Run(ctx context.Context) {
	for {
		next := t.schedule.Next(t.clock.Now())
		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			snap, err := t.session.TryCompress(ctx, false)
			if t.onTick != nil {
				t.onTick(snap, err)
			}
		}
	}
}
