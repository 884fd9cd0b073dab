// Package softdevice is an in-memory model of the Nordic SoftDevice GAP
// advertising API. It keeps the buffers it was configured with and reads them
// on every simulated radio event, the same way the real stack does, so a
// caller that rewrites a buffer the stack still owns is caught.
package softdevice

import (
	"context"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/sirupsen/logrus"
	"github.com/srg/bleadv/internal/groutine"
	"github.com/srg/bleadv/internal/radio"
	"github.com/srg/bleadv/internal/status"
)

// MaxSets is the number of advertising sets the stack supports
const MaxSets = 1

// MaxDeviceNameLen bounds the GAP device name
const MaxDeviceNameLen = 248

// supportedTxPower lists the levels accepted for the advertising role
var supportedTxPower = map[int8]bool{
	-40: true, -20: true, -16: true, -12: true, -8: true, -4: true, 0: true, 3: true, 4: true,
}

// Transmission is one simulated advertising event
type Transmission struct {
	Handle  radio.Handle
	Adv     []byte
	ScanRsp []byte
	At      time.Time
}

// Options configures the simulated stack
type Options struct {
	// Activity receives the before/after edges of every radio event
	Activity radio.ActivityHandler
	// AutoTransmit runs radio events on a timer at the configured interval.
	// When false, events only happen through Tick.
	AutoTransmit bool
	// LogSize bounds the transmission log, oldest entries are overwritten
	LogSize uint32
}

// DefaultOptions returns options for a manually ticked stack
func DefaultOptions() *Options {
	return &Options{LogSize: 64}
}

type advSet struct {
	params      radio.Params
	data        radio.Data
	txPower     int8
	advertising bool
	cancel      context.CancelFunc
}

// Stack implements radio.Stack
type Stack struct {
	mu         sync.Mutex
	sets       *hashmap.Map[radio.Handle, *advSet]
	deviceName []byte
	nameMode   radio.SecurityMode
	opts       Options
	log        mpmc.RichOverlappedRingBuffer[Transmission]
	logger     *logrus.Logger
}

// New creates a stack with no advertising sets
func New(opts *Options, logger *logrus.Logger) *Stack {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = logrus.New()
	}
	size := opts.LogSize
	if size == 0 {
		size = DefaultOptions().LogSize
	}

	return &Stack{
		sets:   hashmap.New[radio.Handle, *advSet](),
		opts:   *opts,
		log:    mpmc.NewOverlappedRingBuffer[Transmission](size),
		logger: logger,
	}
}

// SetActivityHandler replaces the activity observer
func (s *Stack) SetActivityHandler(h radio.ActivityHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Activity = h
}

// Configure implements radio.Stack
func (s *Stack) Configure(h *radio.Handle, data *radio.Data, params *radio.Params) status.Code {
	if h == nil {
		return status.CodeNull
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if data != nil && (len(data.Adv) > radio.MaxAdvDataLen || len(data.ScanRsp) > radio.MaxAdvDataLen) {
		return status.CodeInvalidLength
	}

	if *h == radio.HandleNotSet {
		if params == nil {
			return status.CodeInvalidParam
		}
		if s.sets.Len() >= MaxSets {
			return status.CodeNoMem
		}
		if code := validateParams(params); code != status.CodeSuccess {
			return code
		}
		set := &advSet{params: *params}
		if data != nil {
			set.data = *data
		}
		*h = radio.Handle(s.sets.Len())
		s.sets.Set(*h, set)
		s.logger.WithField("handle", *h).Debug("Advertising set created")
		return status.CodeSuccess
	}

	set, ok := s.sets.Get(*h)
	if !ok {
		return status.CodeNotFound
	}

	if params != nil {
		if set.advertising {
			return status.CodeInvalidState
		}
		if code := validateParams(params); code != status.CodeSuccess {
			return code
		}
		set.params = *params
	}

	if data != nil {
		if set.advertising && (sameBuffer(data.Adv, set.data.Adv) || sameBuffer(data.ScanRsp, set.data.ScanRsp) && len(data.ScanRsp) > 0) {
			s.logger.WithField("handle", *h).Warn("Advertising data update reuses the buffer in flight")
			return status.CodeInvalidState
		}
		set.data = *data
	}

	return status.CodeSuccess
}

func validateParams(p *radio.Params) status.Code {
	switch p.Type {
	case radio.AdvConnectableScannableUndirected,
		radio.AdvNonconnectableScannableUndirected,
		radio.AdvNonconnectableNonscannableUndirected,
		radio.AdvExtendedConnectableNonscannableUndirected:
	default:
		return status.CodeInvalidParam
	}
	// 20 ms .. 10.24 s
	if p.Interval < 0x0020 || p.Interval > 0x4000 {
		return status.CodeInvalidParam
	}
	if p.ChannelMask&radio.AllChannelsOff == radio.AllChannelsOff {
		return status.CodeInvalidParam
	}
	return status.CodeSuccess
}

// sameBuffer reports whether a and b share a backing array
func sameBuffer(a, b []byte) bool {
	if cap(a) == 0 || cap(b) == 0 {
		return false
	}
	return &a[:cap(a)][cap(a)-1] == &b[:cap(b)][cap(b)-1]
}

// Start implements radio.Stack
func (s *Stack) Start(h radio.Handle, connTag uint8) status.Code {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets.Get(h)
	if !ok {
		return status.CodeNotFound
	}
	if set.advertising {
		return status.CodeInvalidState
	}

	set.advertising = true
	s.logger.WithFields(logrus.Fields{
		"handle":   h,
		"conn_tag": connTag,
		"interval": set.params.Interval,
	}).Debug("Advertising started")

	if s.opts.AutoTransmit {
		ctx, cancel := context.WithCancel(context.Background())
		set.cancel = cancel
		period := time.Duration(radio.MsFromUnits(set.params.Interval)) * time.Millisecond
		groutine.Go(ctx, "softdevice-radio", func(ctx context.Context) {
			ticker := time.NewTicker(period)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.Tick()
				}
			}
		})
	}
	return status.CodeSuccess
}

// Stop implements radio.Stack
func (s *Stack) Stop(h radio.Handle) status.Code {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets.Get(h)
	if !ok {
		return status.CodeNotFound
	}
	if !set.advertising {
		return status.CodeInvalidState
	}

	set.advertising = false
	if set.cancel != nil {
		set.cancel()
		set.cancel = nil
	}
	s.logger.WithField("handle", h).Debug("Advertising stopped")
	return status.CodeSuccess
}

// SetTxPower implements radio.Stack
func (s *Stack) SetTxPower(role radio.Role, h radio.Handle, dbm int8) status.Code {
	if role != radio.RoleAdv {
		return status.CodeNotSupported
	}
	if !supportedTxPower[dbm] {
		return status.CodeInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets.Get(h)
	if !ok {
		return status.CodeNotFound
	}
	set.txPower = dbm
	return status.CodeSuccess
}

// SetDeviceName implements radio.Stack
func (s *Stack) SetDeviceName(mode radio.SecurityMode, name []byte) status.Code {
	if len(name) > MaxDeviceNameLen {
		return status.CodeInvalidParam
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceName = append(s.deviceName[:0], name...)
	s.nameMode = mode
	return status.CodeSuccess
}

// DeviceName returns the GAP device name
func (s *Stack) DeviceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.deviceName)
}

// Advertising reports whether set h is advertising
func (s *Stack) Advertising(h radio.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets.Get(h)
	return ok && set.advertising
}

// Params returns the parameters of set h
func (s *Stack) Params(h radio.Handle) (radio.Params, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets.Get(h)
	if !ok {
		return radio.Params{}, false
	}
	return set.params, true
}

// TxPower returns the advertising tx power of set h
func (s *Stack) TxPower(h radio.Handle) (int8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets.Get(h)
	if !ok {
		return 0, false
	}
	return set.txPower, true
}

// Data returns the buffers set h currently reads from. The slices alias the
// caller's memory.
func (s *Stack) Data(h radio.Handle) (radio.Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets.Get(h)
	if !ok {
		return radio.Data{}, false
	}
	return set.data, true
}

// Tick runs one radio event on every advertising set: the activity observer
// sees Before, the current buffers are put on air (copied to the log), then
// the observer sees After.
func (s *Stack) Tick() {
	s.mu.Lock()
	var aired []Transmission
	now := time.Now()
	s.sets.Range(func(h radio.Handle, set *advSet) bool {
		if !set.advertising {
			return true
		}
		tx := Transmission{
			Handle: h,
			Adv:    append([]byte(nil), set.data.Adv...),
			At:     now,
		}
		if set.params.Type.Scannable() {
			tx.ScanRsp = append([]byte(nil), set.data.ScanRsp...)
		}
		aired = append(aired, tx)
		return true
	})
	activity := s.opts.Activity
	s.mu.Unlock()

	if len(aired) == 0 {
		return
	}

	if activity != nil {
		activity(radio.ActivityBefore)
	}
	for _, tx := range aired {
		if _, err := s.log.EnqueueM(tx); err != nil {
			s.logger.WithError(err).Warn("Transmission log enqueue failed")
		}
	}
	if activity != nil {
		activity(radio.ActivityAfter)
	}
}

// Transmissions drains the transmission log, oldest first
func (s *Stack) Transmissions() []Transmission {
	var out []Transmission
	for !s.log.IsEmpty() {
		tx, err := s.log.Dequeue()
		if err != nil {
			break
		}
		out = append(out, tx)
	}
	return out
}

// Close stops every advertising set
func (s *Stack) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets.Range(func(_ radio.Handle, set *advSet) bool {
		if set.cancel != nil {
			set.cancel()
			set.cancel = nil
		}
		set.advertising = false
		return true
	})
}

var _ radio.Stack = (*Stack)(nil)
