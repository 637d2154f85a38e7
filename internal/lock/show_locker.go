package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/pkg/metrics"
)

// ShowLocker serializes booking writers of one show across instances.
type ShowLocker struct {
	mgr      *Manager
	ttl      time.Duration
	attempts int
	delay    time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewShowLocker returns a locker holding each show lock for at most ttl.
// m and log may be nil.
func NewShowLocker(mgr *Manager, ttl time.Duration, m *metrics.Metrics, log *zap.Logger) *ShowLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ShowLocker{mgr: mgr, ttl: ttl, attempts: 10, delay: 50 * time.Millisecond, metrics: m, log: log}
}

// ShowKey is the lock name of a show.
func ShowKey(k model.ShowKey) string {
	return fmt.Sprintf("show:%d:%d:%d", k.ShowID, k.MovieID, k.TheatreID)
}

// Lock implements booking.Locker.  A show still locked after all retries
// yields booking.ErrShowBusy.
func (s *ShowLocker) Lock(ctx context.Context, key model.ShowKey) (func(), error) {
	start := time.Now()
	l, err := s.mgr.AcquireWithRetry(ctx, ShowKey(key), s.ttl, s.attempts, s.delay)
	switch {
	case errors.Is(err, ErrNotAcquired):
		s.metrics.ObserveLock("acquire", "busy", time.Since(start).Seconds())
		return nil, booking.ErrShowBusy
	case err != nil:
		s.metrics.ObserveLock("acquire", "error", time.Since(start).Seconds())
		return nil, err
	}
	s.metrics.ObserveLock("acquire", "ok", time.Since(start).Seconds())

	stop, done := make(chan struct{}), make(chan struct{})
	go s.renew(l, stop, done)

	return func() {
		close(stop)
		<-done
		start := time.Now()
		// the request ctx may already be canceled
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		status := "ok"
		if err := l.Release(ctx); err != nil {
			status = "error"
			s.log.Warn("release show lock", zap.String("key", l.Key()), zap.Error(err))
		}
		s.metrics.ObserveLock("release", status, time.Since(start).Seconds())
	}, nil
}

// renew extends l every half ttl until stop is closed, so a slow
// transaction keeps the show locked.  It gives up once the lock is lost.
func (s *ShowLocker) renew(l *Lock, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(s.ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			start := time.Now()
			ctx, cancel := context.WithTimeout(context.Background(), s.ttl/2)
			err := l.Extend(ctx, s.ttl)
			cancel()
			if err != nil {
				s.metrics.ObserveLock("extend", "error", time.Since(start).Seconds())
				s.log.Warn("extend show lock", zap.String("key", l.Key()), zap.Error(err))
				return
			}
			s.metrics.ObserveLock("extend", "ok", time.Since(start).Seconds())
		}
	}
}
