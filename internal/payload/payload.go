// Package payload produces the bytes a beacon puts on air and feeds them to
// an advertising channel at a fixed rate.
package payload

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/bleadv/internal/comm"
	"github.com/srg/bleadv/internal/status"
)

// Source yields successive payloads. io.EOF ends the stream.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
}

// Static repeats the same payload
type Static struct {
	Data []byte
}

func (s *Static) Next(context.Context) ([]byte, error) {
	return s.Data, nil
}

// Counter appends a big-endian sequence number of Width bytes (1, 2 or 4)
// to Prefix. The number wraps at the width.
type Counter struct {
	Prefix []byte
	Width  int

	mu sync.Mutex
	n  uint32
}

func NewCounter(prefix []byte, width int) (*Counter, error) {
	switch width {
	case 1, 2, 4:
	default:
		return nil, fmt.Errorf("counter width must be 1, 2 or 4 bytes, got %d", width)
	}
	return &Counter{Prefix: append([]byte{}, prefix...), Width: width}, nil
}

func (c *Counter) Next(context.Context) ([]byte, error) {
	c.mu.Lock()
	n := c.n
	c.n++
	c.mu.Unlock()

	out := append(make([]byte, 0, len(c.Prefix)+c.Width), c.Prefix...)
	switch c.Width {
	case 1:
		out = append(out, byte(n))
	case 2:
		out = binary.BigEndian.AppendUint16(out, uint16(n))
	default:
		out = binary.BigEndian.AppendUint32(out, n)
	}
	return out, nil
}

// Sender is the part of comm.Port the feeder uses
type Sender interface {
	Send(msg *comm.Message) error
}

// Feeder sends one payload per interval until the source ends or the
// context is canceled
type Feeder struct {
	src      Source
	dst      Sender
	interval time.Duration
	logger   *logrus.Logger

	mu      sync.Mutex
	sent    uint64
	skipped uint64
}

func NewFeeder(src Source, dst Sender, interval time.Duration, logger *logrus.Logger) *Feeder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Feeder{src: src, dst: dst, interval: interval, logger: logger}
}

// Run blocks until ctx is done, the source returns io.EOF (nil error) or a
// send fails with anything but InvalidState. InvalidState means advertising
// was stopped under us; the payload is skipped and feeding continues.
func (f *Feeder) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		b, err := f.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			f.logger.Debug("Payload source exhausted")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("payload source failed: %w", err)
		}

		if err := f.dst.Send(&comm.Message{Data: b}); err != nil {
			if !status.IsKind(err, status.InvalidState) {
				return err
			}
			f.mu.Lock()
			f.skipped++
			f.mu.Unlock()
			f.logger.WithError(err).Warn("Advertising not active, payload skipped")
		} else {
			f.mu.Lock()
			f.sent++
			f.mu.Unlock()
			f.logger.WithField("len", len(b)).Debug("Payload queued for advertising")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Counts returns how many payloads were sent and skipped
func (f *Feeder) Counts() (sent, skipped uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent, f.skipped
}
