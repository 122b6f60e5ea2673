package uploader

import (
	"context"
	"time"

	"github.com/malekbenamor02/AyachiProd/internal/upload"
)

// Policy is the single retry abstraction shared by every step the driver
// takes: a fixed attempt budget with a fixed inter-attempt delay. Only
// transient storage errors are retried; everything else fails fast.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay):
			}
		}
		if err = op(); err == nil {
			return nil
		}
		if !upload.IsTransient(err) {
			return err
		}
	}
	return err
}
