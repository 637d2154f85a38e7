// Package booking implements the booking workflow: every create, update and
// delete of a booking moves seats in or out of the show inventory inside one
// transaction, so that for every show
//
//	available seats + seats of its CONFIRMED bookings == theatre capacity
//
// holds after any serial sequence of operations.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/pkg/metrics"
	"github.com/iliyamo/cinema-booking/internal/pkg/telemetry"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// TxRunner runs fn inside one atomic unit of work.  Stores called with the
// ctx handed to fn take part in it.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ShowStore is the show inventory.
type ShowStore interface {
	GetForUpdate(ctx context.Context, key model.ShowKey) (*model.Show, error)
	AdjustSeats(ctx context.Context, key model.ShowKey, delta int) (*model.Show, error)
	SetAvailableSeats(ctx context.Context, key model.ShowKey, n int) (*model.Show, error)
}

// UserStore answers whether a user exists.
type UserStore interface {
	Exists(ctx context.Context, id uint64) (bool, error)
}

// Ledger is the booking store.
type Ledger interface {
	GetForUpdate(ctx context.Context, key model.BookingKey) (*model.Booking, error)
	Insert(ctx context.Context, b *model.Booking) error
	Replace(ctx context.Context, b *model.Booking) error
	Remove(ctx context.Context, key model.BookingKey) (*model.Booking, error)
}

// Locker serializes writers of one show across processes.  Lock returns
// ErrShowBusy when the show stays locked by someone else.
type Locker interface {
	Lock(ctx context.Context, key model.ShowKey) (unlock func(), err error)
}

// Publisher receives booking events after commit.
type Publisher interface {
	PublishBooking(ctx context.Context, ev queue.BookingEvent) error
}

// Draft is the input of Create.
type Draft struct {
	BookingID     uint64 // zero lets the store assign one
	Show          model.ShowKey
	UserID        uint64
	SeatNumbers   string
	NumberOfSeats int
	TotalCents    *int64              // nil means price x seats
	Status        model.BookingStatus // empty means CONFIRMED
	BookingDate   *time.Time          // nil means now
}

// Changes is the input of Update.  The booking key itself never changes.
type Changes struct {
	SeatNumbers   string
	NumberOfSeats int
	TotalCents    *int64              // nil means price x seats
	Status        model.BookingStatus // empty keeps the current status
	BookingDate   *time.Time          // nil keeps the current date
}

// Service is the booking workflow orchestrator.  It is role-agnostic:
// callers authorize the actor before invoking it.
type Service struct {
	tx      TxRunner
	shows   ShowStore
	users   UserStore
	ledger  Ledger
	locker  Locker
	events  Publisher
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

func WithLocker(l Locker) Option            { return func(s *Service) { s.locker = l } }
func WithPublisher(p Publisher) Option      { return func(s *Service) { s.events = p } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService wires the orchestrator.  It panics if a required store is nil.
func NewService(tx TxRunner, shows ShowStore, users UserStore, ledger Ledger, opts ...Option) *Service {
	if tx == nil || shows == nil || users == nil || ledger == nil {
		panic("nil dependency passed to booking.NewService")
	}
	s := &Service{
		tx:     tx,
		shows:  shows,
		users:  users,
		ledger: ledger,
		log:    zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates the draft, takes seats from the show when the booking
// is CONFIRMED and inserts it.  Inventory and ledger commit together.
func (s *Service) Create(ctx context.Context, d Draft) (_ *model.Booking, err error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.Create", attribute.String("show", d.Show.String()))
	defer func() { telemetry.End(span, err); s.metrics.ObserveBooking("create", outcome(err)) }()

	status, err := resolveStatus(d.Status, model.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, d.Show)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		rec       *model.Booking
		delta     int
		available int
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		show, err := s.shows.GetForUpdate(ctx, d.Show)
		if err != nil {
			return translate(err)
		}
		if d.UserID == 0 {
			return ErrUserNotFound
		}
		ok, err := s.users.Exists(ctx, d.UserID)
		if err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !ok {
			return ErrUserNotFound
		}
		if err := ValidateSeats(d.SeatNumbers, d.NumberOfSeats); err != nil {
			return err
		}

		available = show.AvailableSeats
		if status.Confirmed() {
			delta = -d.NumberOfSeats
			updated, err := s.shows.AdjustSeats(ctx, d.Show, delta)
			if err != nil {
				return translate(err)
			}
			available = updated.AvailableSeats
		}

		rec = &model.Booking{
			BookingKey: model.BookingKey{
				BookingID: d.BookingID,
				ShowID:    d.Show.ShowID,
				MovieID:   d.Show.MovieID,
				TheatreID: d.Show.TheatreID,
				UserID:    d.UserID,
			},
			SeatNumbers:   d.SeatNumbers,
			NumberOfSeats: d.NumberOfSeats,
			BookingDate:   s.dateOr(d.BookingDate, time.Time{}),
			TotalCents:    totalOr(d.TotalCents, show.PriceCents, d.NumberOfSeats),
			Status:        status,
		}
		if err := s.ledger.Insert(ctx, rec); err != nil {
			return translate(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSeats(delta)
	s.log.Info("booking created",
		zap.String("booking", rec.Key().String()),
		zap.String("status", string(rec.Status)),
		zap.Int("seats", rec.NumberOfSeats),
		zap.Int("available_seats", available),
	)
	evType := queue.EventBookingConfirmed
	if !rec.Status.Confirmed() {
		evType = queue.EventBookingCanceled
	}
	s.publish(ctx, evType, rec, available)
	return rec, nil
}

// Update applies changes to an existing booking and moves the seat
// difference between ledger and inventory.
func (s *Service) Update(ctx context.Context, key model.BookingKey, c Changes) (_ *model.Booking, err error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.Update", attribute.String("booking", key.String()))
	defer func() { telemetry.End(span, err); s.metrics.ObserveBooking("update", outcome(err)) }()

	next, err := resolveStatus(c.Status, "")
	if err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, key.Show())
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		rec       *model.Booking
		prev      model.BookingStatus
		delta     int
		available int
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.ledger.GetForUpdate(ctx, key)
		if err != nil {
			return translate(err)
		}
		show, err := s.shows.GetForUpdate(ctx, key.Show())
		if err != nil {
			return translate(err)
		}
		if err := ValidateSeats(c.SeatNumbers, c.NumberOfSeats); err != nil {
			return err
		}

		prev = cur.Status
		status := cur.Status
		if next != "" {
			status = next
		}
		delta = SeatDelta(cur.Status, status, cur.NumberOfSeats, c.NumberOfSeats)
		available = show.AvailableSeats
		if delta != 0 {
			updated, err := s.shows.AdjustSeats(ctx, key.Show(), delta)
			if err != nil {
				return translate(err)
			}
			available = updated.AvailableSeats
		}

		rec = &model.Booking{
			BookingKey:    key,
			SeatNumbers:   c.SeatNumbers,
			NumberOfSeats: c.NumberOfSeats,
			BookingDate:   s.dateOr(c.BookingDate, cur.BookingDate),
			TotalCents:    totalOr(c.TotalCents, show.PriceCents, c.NumberOfSeats),
			Status:        status,
		}
		if err := s.ledger.Replace(ctx, rec); err != nil {
			return translate(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSeats(delta)
	s.log.Info("booking updated",
		zap.String("booking", key.String()),
		zap.String("from", string(prev)),
		zap.String("to", string(rec.Status)),
		zap.Int("delta", delta),
		zap.Int("available_seats", available),
	)
	evType := queue.EventBookingUpdated
	switch {
	case prev.Confirmed() && !rec.Status.Confirmed():
		evType = queue.EventBookingCanceled
	case !prev.Confirmed() && rec.Status.Confirmed():
		evType = queue.EventBookingConfirmed
	}
	s.publish(ctx, evType, rec, available)
	return rec, nil
}

// Delete removes a booking and, when it was CONFIRMED, returns its seats to
// the show.  A show that no longer exists is skipped silently.
func (s *Service) Delete(ctx context.Context, key model.BookingKey) (_ *model.Booking, err error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.Delete", attribute.String("booking", key.String()))
	defer func() { telemetry.End(span, err); s.metrics.ObserveBooking("delete", outcome(err)) }()

	unlock, err := s.lock(ctx, key.Show())
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		removed   *model.Booking
		delta     int
		available = -1
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.ledger.Remove(ctx, key)
		if err != nil {
			return translate(err)
		}
		removed = b
		if !b.Status.Confirmed() {
			return nil
		}
		updated, err := s.shows.AdjustSeats(ctx, key.Show(), b.NumberOfSeats)
		if errors.Is(err, repository.ErrShowNotFound) {
			s.log.Debug("show gone, seats not restored", zap.String("booking", key.String()))
			return nil
		}
		if err != nil {
			return translate(err)
		}
		delta = b.NumberOfSeats
		available = updated.AvailableSeats
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSeats(delta)
	s.log.Info("booking deleted",
		zap.String("booking", key.String()),
		zap.String("status", string(removed.Status)),
		zap.Int("released", delta),
	)
	s.publish(ctx, queue.EventBookingDeleted, removed, available)
	return removed, nil
}

// SetAvailableSeats overwrites the seat counter of a show, as an admin
// correction.  It serializes with booking writers through the show lock and
// the row lock; the counter is not reconciled with the ledger.
func (s *Service) SetAvailableSeats(ctx context.Context, key model.ShowKey, n int) (_ *model.Show, err error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.SetAvailableSeats", attribute.String("show", key.String()))
	defer func() { telemetry.End(span, err) }()

	if n < 0 {
		return nil, ErrInvalidSeatCount
	}
	unlock, err := s.lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var before int
	var updated *model.Show
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.shows.GetForUpdate(ctx, key)
		if err != nil {
			return translate(err)
		}
		before = cur.AvailableSeats
		if updated, err = s.shows.SetAvailableSeats(ctx, key, n); err != nil {
			return translate(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("show seat counter set",
		zap.String("show", key.String()),
		zap.Int("from", before),
		zap.Int("to", updated.AvailableSeats),
	)
	return updated, nil
}

// lock takes the show lock when a Locker is configured.  A busy show or a
// finished ctx is an error; an unreachable lock backend is logged and the
// row lock taken inside the transaction still serializes writers.
func (s *Service) lock(ctx context.Context, key model.ShowKey) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		if errors.Is(err, ErrShowBusy) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.Warn("show lock unavailable, continuing with row lock",
			zap.String("show", key.String()), zap.Error(err))
		return func() {}, nil
	}
	return unlock, nil
}

func (s *Service) publish(ctx context.Context, evType string, b *model.Booking, available int) {
	if s.events == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:           evType,
		BookingID:      b.BookingID,
		ShowID:         b.ShowID,
		MovieID:        b.MovieID,
		TheatreID:      b.TheatreID,
		UserID:         b.UserID,
		Seats:          SplitSeats(b.SeatNumbers),
		NumberOfSeats:  b.NumberOfSeats,
		TotalCents:     b.TotalCents,
		Status:         string(b.Status),
		AvailableSeats: available,
		OccurredAt:     s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishBooking(ctx, ev); err != nil {
		s.log.Warn("publish booking event failed",
			zap.String("type", evType), zap.String("booking", b.Key().String()), zap.Error(err))
	}
}

func (s *Service) dateOr(d *time.Time, fallback time.Time) time.Time {
	if d != nil && !d.IsZero() {
		return d.UTC()
	}
	if !fallback.IsZero() {
		return fallback
	}
	return s.now().UTC()
}

func totalOr(total *int64, priceCents int64, seats int) int64 {
	if total != nil {
		return *total
	}
	return priceCents * int64(seats)
}

func resolveStatus(st, def model.BookingStatus) (model.BookingStatus, error) {
	if st == "" {
		return def, nil
	}
	parsed, ok := model.ParseBookingStatus(string(st))
	if !ok {
		return "", ErrInvalidStatus
	}
	return parsed, nil
}

// translate maps store errors onto workflow errors.
func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrShowNotFound):
		return ErrShowNotFound
	case errors.Is(err, repository.ErrBookingNotFound):
		return ErrBookingNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrInsufficientSeats):
		return ErrInsufficientSeats
	case errors.Is(err, repository.ErrDuplicate):
		return ErrBookingExists
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrShowBusy):
		return "busy"
	case errors.Is(err, ErrShowNotFound), errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrUserNotFound):
		return "not_found"
	case IsValidation(err), errors.Is(err, ErrBookingExists):
		return "rejected"
	}
	return "error"
}
