package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/srg/bleadv/internal/advertising"
	"github.com/srg/bleadv/internal/comm"
	"github.com/srg/bleadv/internal/groutine"
	"github.com/srg/bleadv/internal/radio"
	"github.com/srg/bleadv/internal/radio/goble"
	"github.com/srg/bleadv/internal/radio/softdevice"
	"github.com/srg/bleadv/internal/ringchan"
	"github.com/srg/bleadv/pkg/config"
)

// eventQueueSize bounds channel events waiting for the consumer, older
// events are dropped once it fills
const eventQueueSize = 64

// backend is an opened radio stack
type backend struct {
	stack radio.Stack
	sim   *softdevice.Stack // nil for the host backend
	close func() error
}

// BackendFactory opens the radio stack named by cfg.Backend (can be
// overridden in tests). activity receives the stack's radio events.
//
//nolint:revive // BackendFactory name is intentional for test mocking
var BackendFactory = func(cfg *config.Config, autoTransmit bool, activity radio.ActivityHandler, logger *logrus.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendHost:
		st, err := goble.New(logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRadioUnavailable, err)
		}
		st.SetActivityHandler(activity)
		return &backend{stack: st, close: st.Close}, nil
	default:
		sd := softdevice.New(&softdevice.Options{
			Activity:     activity,
			AutoTransmit: autoTransmit,
		}, logger)
		return &backend{stack: sd, sim: sd, close: func() error {
			sd.Close()
			return nil
		}}, nil
	}
}

// session wires a backend, the radio arbiter, a channel port and the
// advertising controller bound to it
type session struct {
	logger  *logrus.Logger
	backend *backend
	arbiter *radio.Arbiter
	port    *comm.Port
	ctrl    *advertising.Controller

	events  *ringchan.RingChannel[comm.Event]
	sent    atomic.Uint64
	workers *groutine.Group
	txPower int8
}

// openSession initializes the controller and applies the radio settings of
// cfg. The session must be closed.
func openSession(ctx context.Context, cfg *config.Config, autoTransmit bool, logger *logrus.Logger) (*session, error) {
	if logger == nil {
		logger = logrus.New()
	}
	arbiter := radio.NewArbiter(logger)
	be, err := BackendFactory(cfg, autoTransmit, arbiter.Notify, logger)
	if err != nil {
		return nil, err
	}

	s := &session{
		logger:  logger,
		backend: be,
		arbiter: arbiter,
		port:    comm.NewPort(),
		ctrl:    advertising.New(be.stack, arbiter, logger),
		events:  ringchan.New[comm.Event](eventQueueSize),
		workers: groutine.NewGroup(ctx),
	}

	if err := s.ctrl.Init(s.port); err != nil {
		_ = be.close()
		return nil, fmt.Errorf("failed to initialize advertising: %w", err)
	}

	// events arrive on the radio's activity path, never block it
	s.port.SetOnEvent(func(evt comm.Event, _ []byte) {
		s.events.Send(evt)
	})
	s.workers.Go("channel-events", s.consumeEvents)

	if err := s.configure(cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-s.events.C():
			if evt == comm.EventSent {
				s.sent.Add(1)
			}
			s.logger.WithField("event", evt).Debug("Channel event")
		}
	}
}

func (s *session) configure(cfg *config.Config) error {
	typ, err := advertising.ParseType(cfg.Type)
	if err != nil {
		return err
	}

	if err := s.ctrl.SetInterval(cfg.IntervalMs); err != nil {
		return fmt.Errorf("failed to set interval %d ms: %w", cfg.IntervalMs, err)
	}
	if err := s.ctrl.SetType(typ); err != nil {
		return fmt.Errorf("failed to set type %s: %w", typ, err)
	}
	if len(cfg.Channels) > 0 {
		var ch advertising.Channels
		for _, n := range cfg.Channels {
			switch n {
			case 37:
				ch.Ch37 = true
			case 38:
				ch.Ch38 = true
			case 39:
				ch.Ch39 = true
			}
		}
		if err := s.ctrl.SetChannels(ch); err != nil {
			return fmt.Errorf("failed to enable channels %v: %w", cfg.Channels, err)
		}
	}
	if err := s.ctrl.SetManufacturerID(cfg.ManufacturerID); err != nil {
		return fmt.Errorf("failed to set manufacturer id: %w", err)
	}

	applied, err := s.ctrl.SetTxPower(cfg.TxPower)
	if err != nil {
		return fmt.Errorf("failed to set tx power %d dBm: %w", cfg.TxPower, err)
	}
	s.txPower = applied
	if applied != cfg.TxPower {
		s.logger.WithFields(logrus.Fields{
			"requested_dbm": cfg.TxPower,
			"applied_dbm":   applied,
		}).Info("TX power rounded down to a supported level")
	}

	var name *string
	if cfg.DeviceName != "" {
		name = &cfg.DeviceName
	}
	if err := s.ctrl.SetupScanResponse(name, cfg.AdvertiseNUS); err != nil {
		return fmt.Errorf("failed to set up scan response: %w", err)
	}
	return nil
}

// SentEvents is the number of Sent events seen so far
func (s *session) SentEvents() uint64 {
	return s.sent.Load()
}

// Close releases the controller, stops the backend and the event consumer
func (s *session) Close() error {
	var errs []error
	if err := s.ctrl.Uninit(s.port); err != nil {
		errs = append(errs, fmt.Errorf("failed to release advertising: %w", err))
	}
	if err := s.backend.close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close radio: %w", err))
	}
	s.workers.Stop()
	return errors.Join(errs...)
}
