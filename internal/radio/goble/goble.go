// Package goble runs the advertising stack API on a host Bluetooth controller
// through go-ble. The host API advertises one manufacturer data record per
// call and keeps advertising until its context is canceled, so every data
// update restarts the advertiser with the new record.
package goble

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/bleadv/internal/advdata"
	"github.com/srg/bleadv/internal/groutine"
	"github.com/srg/bleadv/internal/radio"
	"github.com/srg/bleadv/internal/status"
)

// Advertiser is the part of ble.Device this backend drives
type Advertiser interface {
	AdvertiseMfgData(ctx context.Context, id uint16, b []byte) error
	Stop() error
}

// DeviceFactory opens the host controller (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = newHostDevice

// Stack implements radio.Stack on a host controller. It supports a single
// advertising set with handle 0.
type Stack struct {
	mu     sync.Mutex
	dev    Advertiser
	logger *logrus.Logger

	created     bool
	params      radio.Params
	mfg         *advdata.ManufacturerData
	txPower     int8
	deviceName  []byte
	advertising bool
	activity    atomic.Pointer[radio.ActivityHandler]

	adv          *groutine.Group
	stopActivity context.CancelFunc
}

// New opens the host controller via DeviceFactory
func New(logger *logrus.Logger) (*Stack, error) {
	if logger == nil {
		logger = logrus.New()
	}
	dev, err := DeviceFactory()
	if err != nil {
		return nil, err
	}
	return &Stack{dev: dev, logger: logger}, nil
}

// SetActivityHandler installs the activity observer. The host controller
// does not report radio events, one Before/After pair is emitted per
// advertising interval instead.
func (s *Stack) SetActivityHandler(h radio.ActivityHandler) {
	if h == nil {
		s.activity.Store(nil)
		return
	}
	s.activity.Store(&h)
}

// Configure implements radio.Stack
func (s *Stack) Configure(h *radio.Handle, data *radio.Data, params *radio.Params) status.Code {
	if h == nil {
		return status.CodeNull
	}
	if data != nil && (len(data.Adv) > radio.MaxAdvDataLen || len(data.ScanRsp) > radio.MaxAdvDataLen) {
		return status.CodeInvalidLength
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case *h == radio.HandleNotSet:
		if s.created {
			return status.CodeNoMem
		}
		if params == nil {
			return status.CodeInvalidParam
		}
	case *h != 0 || !s.created:
		return status.CodeNotFound
	}

	if params != nil {
		if s.advertising {
			return status.CodeInvalidState
		}
		if params.Interval == 0 {
			return status.CodeInvalidParam
		}
		s.params = *params
	}

	if !s.created {
		s.created = true
		*h = 0
	}

	if data == nil {
		return status.CodeSuccess
	}

	if len(data.ScanRsp) > 0 {
		s.logger.Debug("Host controller advertiser ignores scan response data")
	}

	if len(data.Adv) == 0 {
		// detached, nothing to put on air
		s.mfg = nil
		if s.advertising {
			s.restartAdvertiserLocked()
		}
		return status.CodeSuccess
	}

	d := advdata.Decode(data.Adv)
	if d.Manufacturer == nil {
		s.logger.WithField("len", len(data.Adv)).Warn("Advertisement carries no manufacturer data")
		return status.CodeInvalidData
	}
	// decoded copy, the caller keeps its buffer
	s.mfg = d.Manufacturer

	if s.advertising {
		s.restartAdvertiserLocked()
	}
	return status.CodeSuccess
}

// Start implements radio.Stack
func (s *Stack) Start(h radio.Handle, connTag uint8) status.Code {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h != 0 || !s.created {
		return status.CodeNotFound
	}
	if s.advertising {
		return status.CodeInvalidState
	}

	s.advertising = true
	s.restartAdvertiserLocked()
	s.startActivityLocked()
	s.logger.WithFields(logrus.Fields{
		"handle":   h,
		"conn_tag": connTag,
	}).Debug("Host advertising started")
	return status.CodeSuccess
}

// restartAdvertiserLocked replaces the running advertiser with one for the
// current record. The host controller advertises one record at a time, so the
// old advertiser has returned before the new one starts.
func (s *Stack) restartAdvertiserLocked() {
	if s.adv != nil {
		s.adv.Stop()
	}
	s.adv = groutine.NewGroup(context.Background())

	mfg := s.mfg
	if mfg == nil {
		return
	}
	dev, logger := s.dev, s.logger
	id, data := mfg.CompanyID, append([]byte{}, mfg.Data...)
	s.adv.Go("goble-advertise", func(ctx context.Context) {
		err := dev.AdvertiseMfgData(ctx, id, data)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Host advertiser failed")
		}
	})
}

// startActivityLocked emits activity edges once per interval. The handler
// may call back into the stack, so nothing waits for this goroutine.
func (s *Stack) startActivityLocked() {
	period := time.Duration(radio.MsFromUnits(s.params.Interval)) * time.Millisecond
	if period <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopActivity = cancel
	groutine.Go(ctx, "goble-activity", func(ctx context.Context) {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if h := s.activity.Load(); h != nil && ctx.Err() == nil {
					(*h)(radio.ActivityBefore)
					(*h)(radio.ActivityAfter)
				}
			}
		}
	})
}

// haltLocked cancels activity reporting and detaches the advertiser, which
// the caller stops once s.mu is released
func (s *Stack) haltLocked() *groutine.Group {
	if s.stopActivity != nil {
		s.stopActivity()
		s.stopActivity = nil
	}
	adv := s.adv
	s.adv = nil
	s.advertising = false
	return adv
}

// Stop implements radio.Stack
func (s *Stack) Stop(h radio.Handle) status.Code {
	s.mu.Lock()
	if h != 0 || !s.created {
		s.mu.Unlock()
		return status.CodeNotFound
	}
	if !s.advertising {
		s.mu.Unlock()
		return status.CodeInvalidState
	}
	adv := s.haltLocked()
	s.mu.Unlock()

	if adv != nil {
		adv.Stop()
	}
	s.logger.WithField("handle", h).Debug("Host advertising stopped")
	return status.CodeSuccess
}

// SetTxPower implements radio.Stack. The host controller picks its own
// power, the level is only recorded.
func (s *Stack) SetTxPower(role radio.Role, h radio.Handle, dbm int8) status.Code {
	if role != radio.RoleAdv {
		return status.CodeNotSupported
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h != 0 || !s.created {
		return status.CodeNotFound
	}
	s.txPower = dbm
	s.logger.WithField("dbm", dbm).Debug("TX power recorded, host controller keeps its own level")
	return status.CodeSuccess
}

// SetDeviceName implements radio.Stack
func (s *Stack) SetDeviceName(_ radio.SecurityMode, name []byte) status.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceName = append(s.deviceName[:0], name...)
	return status.CodeSuccess
}

// DeviceName returns the recorded GAP device name
func (s *Stack) DeviceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.deviceName)
}

// TxPower returns the recorded advertising tx power
func (s *Stack) TxPower() int8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txPower
}

// Advertising reports whether the advertiser runs
func (s *Stack) Advertising() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advertising
}

// Close stops advertising and releases the host controller
func (s *Stack) Close() error {
	s.mu.Lock()
	adv := s.haltLocked()
	s.mu.Unlock()

	if adv != nil {
		adv.Stop()
	}
	return s.dev.Stop()
}

var _ radio.Stack = (*Stack)(nil)
