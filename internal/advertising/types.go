package advertising

import (
	"fmt"
	"strings"

	"github.com/srg/bleadv/internal/radio"
)

// Type is the advertising PDU type exposed to callers
type Type int

const (
	NonconnNonscan Type = iota
	NonconnScan
	ConnNonscan
	ConnScan
)

var typeNames = [...]string{
	NonconnNonscan: "nonconnectable_nonscannable",
	NonconnScan:    "nonconnectable_scannable",
	ConnNonscan:    "connectable_nonscannable",
	ConnScan:       "connectable_scannable",
}

func (t Type) Valid() bool {
	return t >= NonconnNonscan && t <= ConnScan
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return typeNames[t]
}

// stackType maps to the stack's PDU type. Connectable non-scannable only
// exists as an extended PDU.
func (t Type) stackType() radio.AdvType {
	switch t {
	case NonconnScan:
		return radio.AdvNonconnectableScannableUndirected
	case ConnNonscan:
		return radio.AdvExtendedConnectableNonscannableUndirected
	case ConnScan:
		return radio.AdvConnectableScannableUndirected
	default:
		return radio.AdvNonconnectableNonscannableUndirected
	}
}

// ParseType accepts the names produced by Type.String
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown advertising type %q (valid: %s)", s, strings.Join(typeNames[:], ", "))
}

// Channels selects the primary advertising channels in use
type Channels struct {
	Ch37 bool `json:"ch37"`
	Ch38 bool `json:"ch38"`
	Ch39 bool `json:"ch39"`
}

// AllChannels is the channel selection after Init
var AllChannels = Channels{Ch37: true, Ch38: true, Ch39: true}

func (ch Channels) mask() radio.ChannelMask {
	var m radio.ChannelMask
	if !ch.Ch37 {
		m |= radio.Channel37Off
	}
	if !ch.Ch38 {
		m |= radio.Channel38Off
	}
	if !ch.Ch39 {
		m |= radio.Channel39Off
	}
	return m
}

func channelsFromMask(m radio.ChannelMask) Channels {
	return Channels{
		Ch37: m&radio.Channel37Off == 0,
		Ch38: m&radio.Channel38Off == 0,
		Ch39: m&radio.Channel39Off == 0,
	}
}

// TxPowerLadder lists the supported tx power levels in dBm, ascending
var TxPowerLadder = [...]int8{-40, -20, -16, -12, -8, -4, 0, 4}

// QuantizeTxPower returns the highest ladder level not above dbm. Requests
// above the top level are rejected, requests below the bottom level get it.
func QuantizeTxPower(dbm int8) (int8, bool) {
	top := TxPowerLadder[len(TxPowerLadder)-1]
	if dbm > top {
		return 0, false
	}
	q := TxPowerLadder[0]
	for _, level := range TxPowerLadder {
		if level > dbm {
			break
		}
		q = level
	}
	return q, true
}

// Status is a snapshot of the controller
type Status struct {
	Initialized    bool         `json:"initialized"`
	Advertising    bool         `json:"advertising"`
	Handle         radio.Handle `json:"handle"`
	IntervalMs     uint32       `json:"interval_ms"`
	TxPower        int8         `json:"tx_power_dbm"`
	ManufacturerID uint16       `json:"manufacturer_id"`
	Type           string       `json:"type"`
	Channels       Channels     `json:"channels"`
	InFlight       int          `json:"in_flight_slot"`
	NextSlot       int          `json:"next_slot"`
	AdvLen         [2]int       `json:"adv_len"`
	ScanLen        [2]int       `json:"scan_len"`
}

// Status returns a snapshot of the controller state
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Initialized:    c.initialized,
		Advertising:    c.advertising,
		Handle:         c.handle,
		IntervalMs:     c.intervalMs,
		TxPower:        c.txPower,
		ManufacturerID: c.manufacturerID,
		Type:           c.advType.String(),
		Channels:       channelsFromMask(c.params.ChannelMask),
		InFlight:       c.inFlight,
		NextSlot:       int(c.parity),
		AdvLen:         [2]int{c.adv[0].n, c.adv[1].n},
		ScanLen:        [2]int{c.scan[0].n, c.scan[1].n},
	}
}

// AdvertisementBytes returns a copy of advertisement slot i
func (c *Controller) AdvertisementBytes(i int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.adv) {
		return nil
	}
	return append([]byte{}, c.adv[i].bytes()...)
}

// ScanResponseBytes returns a copy of scan response slot i
func (c *Controller) ScanResponseBytes(i int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.scan) {
		return nil
	}
	return append([]byte{}, c.scan[i].bytes()...)
}
