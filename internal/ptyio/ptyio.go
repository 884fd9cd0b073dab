// Package ptyio exposes a pseudo-terminal whose input becomes advertising
// payloads. A program writes to the slave side (for example
// `echo -n hello > /dev/pts/5`); the bytes are buffered in a ring and handed
// out in chunks no longer than one manufacturer data field.
//
//	p, err := ptyio.Open(nil)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//	fmt.Println("write payloads to", p.TTYName())
//	chunk, err := p.Next(ctx)
package ptyio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"syscall"

	"github.com/creack/pty"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
	"github.com/srg/bleadv/internal/groutine"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Options configures Open. Zero fields take their defaults.
type Options struct {
	ReadCap       int `default:"1024"` // ring capacity for bytes read from the slave
	ChunkSize     int `default:"24"`   // longest chunk returned by Next
	PollTimeoutMs int `default:"50"`   // bounds shutdown latency of the read loop
	Logger        *logrus.Logger
}

// Stats are runtime counters of a PTY
type Stats struct {
	Buffered     int
	ReadTotal    uint64
	DroppedTotal uint64
}

// PTY is the master side of a pseudo-terminal pair
type PTY struct {
	opts    Options
	logger  *logrus.Logger
	master  *os.File
	slave   *os.File
	ttyName string

	buf    *ringbuffer.RingBuffer
	notify chan struct{}
	run    *groutine.Group

	closed  atomic.Bool
	read    atomic.Uint64
	dropped atomic.Uint64
}

// Open creates a PTY pair with the slave in raw mode and starts reading
func Open(opts *Options) (*PTY, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	defaults.SetDefaults(&o)
	if o.ChunkSize <= 0 || o.ReadCap <= 0 {
		return nil, fmt.Errorf("invalid PTY options: chunk size %d, read capacity %d", o.ChunkSize, o.ReadCap)
	}

	logger := o.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	master, slave, err := openRaw()
	if err != nil {
		return nil, err
	}

	p := &PTY{
		opts:    o,
		logger:  logger,
		master:  master,
		slave:   slave,
		ttyName: slave.Name(),
		buf:     ringbuffer.New(o.ReadCap),
		notify:  make(chan struct{}, 1),
		run:     groutine.NewGroup(context.Background()),
	}
	p.run.Go("pty-read-loop", p.readLoop)

	logger.WithField("tty", p.ttyName).Info("PTY opened")
	return p, nil
}

func openRaw() (master, slave *os.File, err error) {
	master, slave, err = pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create PTY (check permissions and available PTY devices): %w", err)
	}

	fail := func(step string, cause error) (*os.File, *os.File, error) {
		name := slave.Name()
		_ = master.Close()
		_ = slave.Close()
		return nil, nil, fmt.Errorf("failed to set PTY %s to %s: %w", name, step, cause)
	}

	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		return fail("raw mode", err)
	}
	if err := unix.SetNonblock(int(master.Fd()), true); err != nil {
		return fail("nonblocking mode", err)
	}
	return master, slave, nil
}

func (p *PTY) readLoop(ctx context.Context) {
	master := p.master
	pollFd := []unix.PollFd{{Fd: int32(master.Fd()), Events: unix.POLLIN}}
	tmp := make([]byte, 512)

	for ctx.Err() == nil {
		ready, err := unix.Poll(pollFd, p.opts.PollTimeoutMs)
		if err != nil && !errors.Is(err, syscall.EINTR) {
			p.logger.WithError(err).Warn("PTY poll failed")
			continue
		}
		if ready == 0 {
			continue
		}

		n, err := master.Read(tmp)
		if n > 0 {
			written, werr := p.buf.Write(tmp[:n])
			if werr != nil && !errors.Is(werr, ringbuffer.ErrIsFull) {
				p.logger.WithError(werr).Warn("PTY ring write failed")
			}
			if written < n {
				p.dropped.Add(uint64(n - written))
				p.logger.WithFields(logrus.Fields{
					"received": n,
					"buffered": written,
				}).Warn("PTY ring full, bytes dropped")
			}
			p.read.Add(uint64(written))
			select {
			case p.notify <- struct{}{}:
			default:
			}
		}

		switch {
		case err == nil,
			errors.Is(err, syscall.EAGAIN),
			errors.Is(err, syscall.EINTR):
		case errors.Is(err, io.EOF), errors.Is(err, syscall.EIO), errors.Is(err, os.ErrClosed), errors.Is(err, syscall.EBADF):
			// EIO: every slave fd was closed
			p.logger.WithError(err).Debug("PTY read loop exiting")
			return
		default:
			p.logger.WithError(err).Error("PTY read failed")
			return
		}
	}
}

// Read copies buffered bytes into b without blocking. Returns EAGAIN when
// nothing is buffered.
func (p *PTY) Read(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, os.ErrClosed
	}
	if len(b) == 0 {
		return 0, nil
	}
	n, err := p.buf.TryRead(b)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return 0, err
	}
	if n == 0 {
		return 0, syscall.EAGAIN
	}
	return n, nil
}

// Next blocks until input is available and returns at most ChunkSize bytes
func (p *PTY) Next(ctx context.Context) ([]byte, error) {
	chunk := make([]byte, p.opts.ChunkSize)
	for {
		n, err := p.Read(chunk)
		if n > 0 {
			if !p.buf.IsEmpty() {
				// more input is waiting, keep the signal armed
				select {
				case p.notify <- struct{}{}:
				default:
				}
			}
			return chunk[:n], nil
		}
		if !errors.Is(err, syscall.EAGAIN) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.run.Context().Done():
			return nil, io.EOF
		case <-p.notify:
		}
	}
}

// Write sends b to the slave side. The master is nonblocking, a full
// terminal queue yields a short write.
func (p *PTY) Write(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, os.ErrClosed
	}
	n, err := p.master.Write(b)
	if errors.Is(err, syscall.EAGAIN) {
		return n, nil
	}
	return n, err
}

// TTYName is the slave device path, e.g. /dev/pts/5
func (p *PTY) TTYName() string {
	return p.ttyName
}

func (p *PTY) Stats() Stats {
	return Stats{
		Buffered:     p.buf.Length(),
		ReadTotal:    p.read.Load(),
		DroppedTotal: p.dropped.Load(),
	}
}

// Close stops the read loop and closes both ends
func (p *PTY) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.run.Stop()

	var errs []error
	if err := p.master.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close PTY master: %w", err))
	}
	if err := p.slave.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close PTY slave: %w", err))
	}
	return errors.Join(errs...)
}
