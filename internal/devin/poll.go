package devin

import (
	"context"
	"time"
)

const (
	// DefaultPollInterval is the fixed delay between session fetches.
	DefaultPollInterval = 5 * time.Second

	// DefaultPollTimeout is the hard wall-clock budget for one session.
	DefaultPollTimeout = 30 * time.Minute

	// DefaultHeartbeatEvery is how often a progress line is logged while
	// waiting, so an operator can see the remote session is still running.
	DefaultHeartbeatEvery = 30 * time.Second
)

// PollOptions tune PollUntilTerminal. Zero values select the defaults.
type PollOptions struct {
	Interval       time.Duration
	Timeout        time.Duration
	HeartbeatEvery time.Duration
}

func (o PollOptions) withDefaults() PollOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultPollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultPollTimeout
	}
	if o.HeartbeatEvery <= 0 {
		o.HeartbeatEvery = DefaultHeartbeatEvery
	}
	return o
}

// PollUntilTerminal fetches the session at a fixed interval until its
// status reaches the terminal set or the session exposes a pull-request
// URL. A PR appearing early is itself a sufficient completion signal and
// is accepted at first sight even if a later poll would disagree.
//
// Exceeding the wall-clock budget returns *TimeoutError carrying the
// session ID. Context cancellation is honored at each iteration boundary;
// there is no other abort path.
func (c *Client) PollUntilTerminal(ctx context.Context, sessionID string, opts PollOptions) (*Session, error) {
	opts = opts.withDefaults()

	L := c.logger.With("session_id", sessionID)
	started := time.Now()
	hb := newHeartbeat(started, opts.HeartbeatEvery)

	for time.Since(started) < opts.Timeout {
		session, err := c.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session.Terminal() {
			return session, nil
		}
		if session.PullRequest() != "" {
			L.Info(ctx, "session exposed a pull request before terminal status, accepting",
				"status", session.NormalizedStatus(),
				"pr_url", session.PullRequest(),
			)
			return session, nil
		}

		if hb.due(time.Now()) {
			L.Info(ctx, "still waiting for session",
				"status", session.NormalizedStatus(),
				"elapsed", time.Since(started).Round(time.Second).String(),
				"url", session.URL,
			)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Interval):
		}
	}

	return nil, &TimeoutError{SessionID: sessionID, Elapsed: time.Since(started)}
}

// heartbeat rate-limits the progress log line. The marker is seeded with
// the poll start time, so the first line appears only after a full
// interval of elapsed wait, not on the first iteration.
type heartbeat struct {
	last  time.Time
	every time.Duration
}

func newHeartbeat(started time.Time, every time.Duration) *heartbeat {
	return &heartbeat{last: started, every: every}
}

// due reports whether a progress line should be logged now, and advances
// the marker when it is.
func (h *heartbeat) due(now time.Time) bool {
	if now.Sub(h.last) < h.every {
		return false
	}
	h.last = now
	return true
}
