package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/pion/logging"
)

// Session is one connection lifetime. It returns when the connection ends or
// ctx is done.
type Session func(ctx context.Context) error

// Supervise runs session until ctx is done. After every return, clean or not,
// it waits delay and starts the session again. A panicking session counts as
// a failed one. There is no retry limit and no backoff.
func Supervise(ctx context.Context, name string, delay time.Duration, log logging.LeveledLogger, session Session) {
	for attempt := 1; ; attempt++ {
		err := runSession(ctx, session)
		if ctx.Err() != nil {
			log.Infof("%s channel stopped", name)
			return
		}
		if err != nil {
			log.Warnf("%s channel lost (attempt %d): %v; reconnecting in %v", name, attempt, err, delay)
		} else {
			log.Infof("%s channel closed by relay; reconnecting in %v", name, delay)
		}

		select {
		case <-ctx.Done():
			log.Infof("%s channel stopped", name)
			return
		case <-time.After(delay):
		}
	}
}

// runSession runs one session, turning a panic into an error so the channel
// reconnects and shutdown still runs.
func runSession(ctx context.Context, session Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session panic: %v\n%s", r, debug.Stack())
		}
	}()
	return session(ctx)
}
