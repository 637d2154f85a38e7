package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConsumerConfig configures the booking audit consumer.
type ConsumerConfig struct {
	URL      string
	LogPath  string // audit file, one line per event
	Prefetch int
}

// StartBookingConsumer consumes BookingQueue and appends every event to the
// audit file.  It reconnects with exponential backoff and returns only when
// ctx is done.
func StartBookingConsumer(ctx context.Context, cfg ConsumerConfig, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 50
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join("logs", "booking.log")
	}
	log = log.With(zap.String("component", "booking-consumer"))

	backoff := time.Second
	for {
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consume(ctx, conn, cfg, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consume(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		log.Warn("set qos failed", zap.Error(err))
	}
	if err := declareBookingQueue(ch); err != nil {
		return err
	}
	msgs, err := ch.Consume(BookingQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := appendEvent(cfg.LogPath, d.Body); err != nil {
				log.Error("handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // poison message, do not requeue
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func appendEvent(path string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return handleMessage(f, body)
}

// handleMessage decodes one delivery and writes its audit line to w.
func handleMessage(w io.Writer, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if _, err := io.WriteString(w, formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev BookingEvent) string {
	return fmt.Sprintf("[%s] %s | booking=%d | show=%d/%d/%d | user_id=%d | status=%s | seats=[%s] (%d) | total=%d cents | available=%d\n",
		ev.OccurredAt, ev.Type, ev.BookingID, ev.ShowID, ev.MovieID, ev.TheatreID, ev.UserID,
		ev.Status, strings.Join(ev.Seats, ","), ev.NumberOfSeats, ev.TotalCents, ev.AvailableSeats)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
