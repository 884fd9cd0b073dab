package advertising

import (
	"sync"
	"sync/atomic"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/bleadv/internal/advdata"
	"github.com/srg/bleadv/internal/comm"
	"github.com/srg/bleadv/internal/radio"
	"github.com/srg/bleadv/internal/status"
)

const (
	IntervalMinMs     uint32 = 100
	IntervalMaxMs     uint32 = 10000
	DefaultIntervalMs uint32 = 1010

	// MaxManufacturerDataLen is what fits next to the flags field in a legacy PDU
	MaxManufacturerDataLen = 24
)

const noSlot = -1

// slot is one fixed advertising buffer
type slot struct {
	buf [radio.MaxAdvDataLen]byte
	n   int
}

func (s *slot) bytes() []byte { return s.buf[:s.n] }

func (s *slot) reset() {
	clear(s.buf[:])
	s.n = 0
}

// Controller drives BLE4 advertising on a radio stack and implements
// comm.Channel so it can be bound to a port.
//
// Advertisement payloads are double-buffered: the stack keeps reading the
// buffer it was last configured with until a later configure call completes,
// so every update is written into the other slot of the pair.
type Controller struct {
	mu      sync.Mutex
	stack   radio.Stack
	arbiter *radio.Arbiter
	logger  *logrus.Logger

	intervalMs     uint32
	txPower        int8
	manufacturerID uint16
	advType        Type
	params         radio.Params
	// handle outlives Uninit, the stack keeps its advertising sets
	handle radio.Handle

	initialized bool
	advertising bool

	adv    [2]slot
	scan   [2]slot
	parity uint8
	// inFlight is the slot index last handed to the stack, kept until the
	// stack is detached from it
	inFlight int

	port atomic.Pointer[comm.Port]
}

// New creates an uninitialized controller for stack. The arbiter decides
// whether advertising may claim the radio.
func New(stack radio.Stack, arbiter *radio.Arbiter, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.New()
	}
	if arbiter == nil {
		arbiter = radio.NewArbiter(logger)
	}
	return &Controller{
		stack:    stack,
		arbiter:  arbiter,
		logger:   logger,
		handle:   radio.HandleNotSet,
		inFlight: noSlot,
	}
}

// Init claims the radio, resets the controller to defaults and binds it to p
func (c *Controller) Init(p *comm.Port) error {
	if p == nil {
		return status.New(status.Null, "init")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return status.New(status.InvalidState, "init")
	}
	if err := c.arbiter.Init(radio.KindAdvertisement); err != nil {
		return err
	}

	params := radio.Params{
		Type:         NonconnNonscan.stackType(),
		Interval:     radio.UnitsFromMs(DefaultIntervalMs),
		Duration:     0, // never time out
		FilterPolicy: radio.FilterAny,
	}

	// a set kept from an earlier cycle may still point into our slots
	var detach *radio.Data
	if c.inFlight != noSlot {
		detach = &radio.Data{}
	}

	code := c.stack.Configure(&c.handle, detach, &params)
	if err := status.FromCode("adv_set_configure", code); err != nil {
		c.logger.WithError(err).Error("Failed to configure advertising set")
		if relErr := c.arbiter.Uninit(radio.KindAdvertisement); relErr != nil {
			c.logger.WithError(relErr).Warn("Failed to release radio")
		}
		return err
	}

	c.inFlight = noSlot
	c.resetLocked()
	c.intervalMs = DefaultIntervalMs
	c.advType = NonconnNonscan
	c.params = params

	c.initialized = true
	c.port.Store(p)
	p.Bind(c)
	p.SetOnEvent(nil)
	c.arbiter.SetActivityHandler(c.ActivityHandler)

	c.logger.WithFields(logrus.Fields{
		"handle":      c.handle,
		"interval_ms": c.intervalMs,
	}).Debug("Advertising initialized")
	return nil
}

// Uninit stops advertising, releases the radio and clears all state.
// Stopping is best-effort; the only reported failure is a radio owned by
// someone else, and local state is cleared even then.
func (c *Controller) Uninit(p *comm.Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bound := c.port.Swap(nil)
	if bound != nil {
		bound.Unbind()
	}
	if p != nil && p != bound {
		p.Unbind()
	}

	if !c.initialized {
		return nil
	}

	if c.advertising {
		if err := status.FromCode("adv_stop", c.stack.Stop(c.handle)); err != nil {
			c.logger.WithError(err).Warn("Failed to stop advertising during uninit")
		}
		c.advertising = false
	}

	if c.inFlight != noSlot {
		if err := status.FromCode("adv_set_configure", c.stack.Configure(&c.handle, &radio.Data{}, nil)); err != nil {
			c.logger.WithError(err).Warn("Stack keeps the last advertising buffer")
		} else {
			c.inFlight = noSlot
		}
	}

	err := c.arbiter.Uninit(radio.KindAdvertisement)
	if err != nil {
		c.logger.WithError(err).Warn("Radio owned by another consumer")
	}

	c.resetLocked()
	c.logger.Debug("Advertising uninitialized")
	return err
}

// resetLocked zeroes everything except the advertising set handle and the
// slot the stack may still read from
func (c *Controller) resetLocked() {
	c.intervalMs = 0
	c.txPower = 0
	c.manufacturerID = 0
	c.advType = NonconnNonscan
	c.params = radio.Params{}
	c.initialized = false
	c.advertising = false
	c.parity = 0
	for i := range c.adv {
		if i == c.inFlight {
			c.parity = uint8(i ^ 1)
			continue
		}
		c.adv[i].reset()
		c.scan[i].reset()
	}
}

// applyParamsLocked pushes params to a running advertiser: stop, configure,
// restart. Idle controllers only stage the values for Start.
func (c *Controller) applyParamsLocked() error {
	if !c.advertising {
		return nil
	}

	if err := status.FromCode("adv_stop", c.stack.Stop(c.handle)); err != nil {
		return err
	}
	c.advertising = false

	err := status.Steps(
		status.Step{Op: "adv_set_configure", Run: func() status.Code {
			return c.stack.Configure(&c.handle, nil, &c.params)
		}},
		status.Step{Op: "adv_start", Run: func() status.Code {
			return c.stack.Start(c.handle, radio.DefaultConnTag)
		}},
	)
	if err != nil {
		c.logger.WithError(err).Warn("Advertising left stopped after failed reconfigure")
		return err
	}
	c.advertising = true
	return nil
}

// SetInterval sets the advertising interval in milliseconds
func (c *Controller) SetInterval(ms uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return status.New(status.InvalidState, "tx_interval_set")
	}
	if ms < IntervalMinMs || ms > IntervalMaxMs {
		return status.New(status.InvalidParam, "tx_interval_set")
	}

	prev := c.params.Interval
	c.params.Interval = radio.UnitsFromMs(ms)
	if err := c.applyParamsLocked(); err != nil {
		c.params.Interval = prev
		return err
	}
	c.intervalMs = ms
	return nil
}

// Interval returns the advertising interval in milliseconds, 0 before Init
func (c *Controller) Interval() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intervalMs
}

// SetChannels restricts advertising to the selected primary channels. At
// least one channel must stay enabled.
func (c *Controller) SetChannels(ch Channels) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return status.New(status.InvalidState, "channels_enable")
	}
	mask := ch.mask()
	if mask == radio.AllChannelsOff {
		return status.New(status.InvalidParam, "channels_enable")
	}

	prev := c.params.ChannelMask
	c.params.ChannelMask = mask
	if err := c.applyParamsLocked(); err != nil {
		c.params.ChannelMask = prev
		return err
	}
	return nil
}

// SetManufacturerID sets the company identifier used from the next payload
// on. Zero puts UnknownCompanyID on air.
func (c *Controller) SetManufacturerID(id uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return status.New(status.InvalidState, "manufacturer_id_set")
	}
	c.manufacturerID = id
	return nil
}

// ManufacturerID returns the configured company identifier
func (c *Controller) ManufacturerID() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manufacturerID
}

// SetType selects the advertising PDU type
func (c *Controller) SetType(t Type) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return status.New(status.InvalidState, "type_set")
	}
	if !t.Valid() {
		return status.New(status.InvalidParam, "type_set")
	}

	prevType, prevParams := c.advType, c.params.Type
	c.advType = t
	c.params.Type = t.stackType()
	if err := c.applyParamsLocked(); err != nil {
		c.advType, c.params.Type = prevType, prevParams
		return err
	}
	return nil
}

// SetTxPower applies the highest ladder level not above dbm and returns it
func (c *Controller) SetTxPower(dbm int8) (int8, error) {
	q, ok := QuantizeTxPower(dbm)
	if !ok {
		return 0, status.New(status.InvalidParam, "tx_power_set")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return 0, status.New(status.InvalidState, "tx_power_set")
	}

	code := c.stack.SetTxPower(radio.RoleAdv, c.handle, q)
	if err := status.FromCode("tx_power_set", code); err != nil {
		return 0, err
	}
	c.txPower = q
	c.logger.WithFields(logrus.Fields{
		"requested_dbm": dbm,
		"applied_dbm":   q,
	}).Debug("TX power set")
	return q, nil
}

// TxPower is not read back from the stack
func (c *Controller) TxPower() (int8, error) {
	return 0, status.New(status.NotImplemented, "tx_power_get")
}

// SetupScanResponse rebuilds the scan response from an optional device name
// and the NUS service UUID. Both scan slots get the same content, so one of
// them is always the one on air; the call is refused while advertising.
func (c *Controller) SetupScanResponse(name *string, advertiseNUS bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized || c.advertising {
		return status.New(status.InvalidState, "scan_response_setup")
	}

	c.scan[0].reset()
	c.scan[1].reset()

	rec := advdata.Record{}
	if name != nil {
		code := c.stack.SetDeviceName(radio.SecurityOpen, []byte(*name))
		if err := status.FromCode("gap_device_name_set", code); err != nil {
			return err
		}
		rec.Name = *name
	}
	if advertiseNUS {
		rec.UUIDs = []ble.UUID{advdata.NUSServiceUUID}
	}

	for i := range c.scan {
		n, err := advdata.Encode(&rec, c.scan[i].buf[:])
		if err != nil {
			return err
		}
		c.scan[i].n = n
	}
	return nil
}

// SetAdvertisementData puts data on air as manufacturer specific data.
// The update is live: advertising is not stopped.
func (c *Controller) SetAdvertisementData(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setAdvertisementDataLocked(data)
}

func (c *Controller) setAdvertisementDataLocked(data []byte) error {
	if data == nil {
		return status.New(status.Null, "data_set")
	}
	if len(data) > MaxManufacturerDataLen {
		return status.New(status.InvalidLength, "data_set")
	}
	if !c.initialized {
		return status.New(status.InvalidState, "data_set")
	}

	// caller's buffer need not outlive the call
	var scratch [MaxManufacturerDataLen]byte
	n := copy(scratch[:], data)

	id := c.manufacturerID
	if id == 0 {
		id = advdata.UnknownCompanyID
	}
	rec := advdata.Record{
		Flags:        advdata.FlagBREDRNotSupported,
		Manufacturer: &advdata.ManufacturerData{CompanyID: id, Data: scratch[:n]},
	}

	idx := int(c.parity)
	c.parity ^= 1
	if idx == c.inFlight {
		// a failed configure left the stack on this slot, take the other one
		c.logger.WithField("slot", idx).Debug("Selected slot is in flight, switching")
		idx ^= 1
		c.parity = uint8(idx ^ 1)
	}

	nEnc, err := advdata.Encode(&rec, c.adv[idx].buf[:])
	if err != nil {
		return err
	}
	c.adv[idx].n = nEnc

	d := &radio.Data{
		Adv:     c.adv[idx].bytes(),
		ScanRsp: c.scan[idx].bytes(),
	}
	if err := status.FromCode("adv_set_configure", c.stack.Configure(&c.handle, d, nil)); err != nil {
		return err
	}
	c.inFlight = idx

	c.logger.WithFields(logrus.Fields{
		"slot":    idx,
		"len":     n,
		"company": id,
	}).Debug("Advertisement data updated")
	return nil
}

// Start pushes the staged parameters and starts advertising
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized || c.advertising {
		return status.New(status.InvalidState, "adv_start")
	}

	err := status.Steps(
		status.Step{Op: "adv_set_configure", Run: func() status.Code {
			return c.stack.Configure(&c.handle, nil, &c.params)
		}},
		status.Step{Op: "adv_start", Run: func() status.Code {
			return c.stack.Start(c.handle, radio.DefaultConnTag)
		}},
	)
	if err != nil {
		return err
	}

	c.advertising = true
	c.logger.WithFields(logrus.Fields{
		"handle":      c.handle,
		"interval_ms": c.intervalMs,
		"type":        c.advType,
	}).Info("Advertising started")
	return nil
}

// Stop stops advertising on the controller's advertising set
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return status.New(status.InvalidState, "adv_stop")
	}
	if err := status.FromCode("adv_stop", c.stack.Stop(c.handle)); err != nil {
		return err
	}

	c.advertising = false
	c.logger.WithField("handle", c.handle).Info("Advertising stopped")
	return nil
}

// NotifyStop records that the stack stopped advertising on its own, for
// example because a central connected. No stack call is made.
func (c *Controller) NotifyStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advertising = false
}

// Advertising reports whether the controller believes it is on air
func (c *Controller) Advertising() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advertising
}

// ActivityHandler observes radio activity. Every After edge is assumed to be
// one of our advertisements and reported to the port as EventSent; the stack
// gives no way to tell which radio user caused it.
func (c *Controller) ActivityHandler(evt radio.Activity) {
	if evt != radio.ActivityAfter {
		return
	}
	if p := c.port.Load(); p != nil {
		p.Dispatch(comm.EventSent, nil)
	}
}

// Send implements comm.Channel. Advertising may have been stopped by an
// external event, so sending while idle fails with InvalidState.
func (c *Controller) Send(msg *comm.Message) error {
	if msg == nil {
		return status.New(status.Null, "send")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.advertising {
		return status.New(status.InvalidState, "send")
	}
	return c.setAdvertisementDataLocked(msg.Data)
}

// Read implements comm.Channel, advertising is transmit only
func (c *Controller) Read(*comm.Message) error {
	return status.New(status.NotImplemented, "read")
}

var _ comm.Channel = (*Controller)(nil)
