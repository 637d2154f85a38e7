package booking

import (
	"context"
	"sync"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// memStore is an in-memory show inventory, user set and booking ledger.
// WithinTx snapshots all three and restores them when fn fails.
type memStore struct {
	mu       sync.Mutex
	shows    map[model.ShowKey]model.Show
	users    map[uint64]bool
	bookings map[model.BookingKey]model.Booking
	nextID   uint64
	capacity map[model.ShowKey]int
}

func newMemStore() *memStore {
	return &memStore{
		shows:    map[model.ShowKey]model.Show{},
		users:    map[uint64]bool{},
		bookings: map[model.BookingKey]model.Booking{},
		capacity: map[model.ShowKey]int{},
		nextID:   1,
	}
}

func (m *memStore) addShow(key model.ShowKey, capacity, available int, price int64) {
	m.shows[key] = model.Show{ShowKey: key, AvailableSeats: available, PriceCents: price}
	m.capacity[key] = capacity
}

func (m *memStore) available(key model.ShowKey) int { return m.shows[key].AvailableSeats }

func (m *memStore) confirmedSeats(key model.ShowKey) int {
	n := 0
	for k, b := range m.bookings {
		if k.Show() == key && b.Status.Confirmed() {
			n += b.NumberOfSeats
		}
	}
	return n
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	shows := make(map[model.ShowKey]model.Show, len(m.shows))
	for k, v := range m.shows {
		shows[k] = v
	}
	bookings := make(map[model.BookingKey]model.Booking, len(m.bookings))
	for k, v := range m.bookings {
		bookings[k] = v
	}
	nextID := m.nextID

	if err := fn(ctx); err != nil {
		m.shows, m.bookings, m.nextID = shows, bookings, nextID
		return err
	}
	return nil
}

type memShows struct{ m *memStore }

func (s memShows) GetForUpdate(_ context.Context, key model.ShowKey) (*model.Show, error) {
	sh, ok := s.m.shows[key]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	return &sh, nil
}

func (s memShows) AdjustSeats(_ context.Context, key model.ShowKey, delta int) (*model.Show, error) {
	sh, ok := s.m.shows[key]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	if sh.AvailableSeats+delta < 0 {
		return nil, repository.ErrInsufficientSeats
	}
	sh.AvailableSeats += delta
	s.m.shows[key] = sh
	return &sh, nil
}

func (s memShows) SetAvailableSeats(_ context.Context, key model.ShowKey, n int) (*model.Show, error) {
	sh, ok := s.m.shows[key]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	sh.AvailableSeats = n
	s.m.shows[key] = sh
	return &sh, nil
}

type memUsers struct{ m *memStore }

func (u memUsers) Exists(_ context.Context, id uint64) (bool, error) { return u.m.users[id], nil }

type memLedger struct{ m *memStore }

func (l memLedger) GetForUpdate(_ context.Context, key model.BookingKey) (*model.Booking, error) {
	b, ok := l.m.bookings[key]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (l memLedger) Insert(_ context.Context, b *model.Booking) error {
	if b.BookingID == 0 {
		b.BookingID = l.m.nextID
		l.m.nextID++
	}
	if _, ok := l.m.bookings[b.BookingKey]; ok {
		return repository.ErrDuplicate
	}
	if b.BookingID >= l.m.nextID {
		l.m.nextID = b.BookingID + 1
	}
	l.m.bookings[b.BookingKey] = *b
	return nil
}

func (l memLedger) Replace(_ context.Context, b *model.Booking) error {
	if _, ok := l.m.bookings[b.BookingKey]; !ok {
		return repository.ErrBookingNotFound
	}
	l.m.bookings[b.BookingKey] = *b
	return nil
}

func (l memLedger) Remove(_ context.Context, key model.BookingKey) (*model.Booking, error) {
	b, ok := l.m.bookings[key]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	delete(l.m.bookings, key)
	return &b, nil
}

type recordingPublisher struct {
	events []queue.BookingEvent
	err    error
}

func (p *recordingPublisher) PublishBooking(_ context.Context, ev queue.BookingEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

type stubLocker struct {
	err      error
	onLock   func()
	calls    int
	locked   int
	unlocked int
}

func (l *stubLocker) Lock(context.Context, model.ShowKey) (func(), error) {
	l.calls++
	if l.onLock != nil {
		l.onLock()
	}
	if l.err != nil {
		return nil, l.err
	}
	l.locked++
	return func() { l.unlocked++ }, nil
}
