// Package radio describes the radio stack consumed by the communication
// channels and arbitrates which consumer currently owns the radio.
//
// Stack is the opaque service a channel drives (configure/start/stop/tx power
// and device name). Calls return stack-native status codes and complete
// asynchronously; radio activity is reported back through the Arbiter.
package radio

import (
	"github.com/srg/bleadv/internal/status"
)

// MaxAdvDataLen is the largest legacy advertising PDU payload the stack accepts
const MaxAdvDataLen = 31

// Handle identifies a configured advertising set
type Handle uint8

// HandleNotSet asks Configure to allocate a new advertising set
const HandleNotSet Handle = 0xFF

// DefaultConnTag is the connection configuration tag passed on start
const DefaultConnTag uint8 = 1

// AdvType is the stack-native advertising PDU type
type AdvType uint8

const (
	AdvConnectableScannableUndirected            AdvType = 0x01
	AdvConnectableNonscannableDirectedHighDuty   AdvType = 0x02
	AdvConnectableNonscannableDirected           AdvType = 0x03
	AdvNonconnectableScannableUndirected         AdvType = 0x04
	AdvNonconnectableNonscannableUndirected      AdvType = 0x05
	AdvExtendedConnectableNonscannableUndirected AdvType = 0x06
)

func (t AdvType) String() string {
	switch t {
	case AdvConnectableScannableUndirected:
		return "connectable_scannable_undirected"
	case AdvConnectableNonscannableDirectedHighDuty:
		return "connectable_nonscannable_directed_high_duty"
	case AdvConnectableNonscannableDirected:
		return "connectable_nonscannable_directed"
	case AdvNonconnectableScannableUndirected:
		return "nonconnectable_scannable_undirected"
	case AdvNonconnectableNonscannableUndirected:
		return "nonconnectable_nonscannable_undirected"
	case AdvExtendedConnectableNonscannableUndirected:
		return "extended_connectable_nonscannable_undirected"
	default:
		return "unknown"
	}
}

// Scannable reports whether scanners may request a scan response
func (t AdvType) Scannable() bool {
	return t == AdvConnectableScannableUndirected || t == AdvNonconnectableScannableUndirected
}

// FilterAny accepts scan and connect requests from any device
const FilterAny uint8 = 0x00

// ChannelMask disables primary advertising channels, a set bit turns the
// channel off
type ChannelMask uint8

const (
	Channel37Off ChannelMask = 1 << iota
	Channel38Off
	Channel39Off

	AllChannelsOff = Channel37Off | Channel38Off | Channel39Off
)

// Params are the advertising parameters of a set
type Params struct {
	Type         AdvType
	Interval     uint32 // 0.625 ms units
	Duration     uint16 // 10 ms units, 0 = never time out
	FilterPolicy uint8
	ChannelMask  ChannelMask
}

// Data references the advertising and scan response buffers of a set.
// The stack keeps reading these slices after Configure returns, callers must
// not modify them until a later Configure has replaced them.
type Data struct {
	Adv     []byte
	ScanRsp []byte
}

// Role selects what a tx power setting applies to
type Role uint8

const (
	RoleAdv Role = iota + 1
	RoleScanInit
	RoleConn
)

// SecurityMode protects the GAP device name characteristic
type SecurityMode uint8

const (
	SecurityNoAccess SecurityMode = iota
	SecurityOpen
)

// Stack is the radio service behind the advertising channel
type Stack interface {
	// Configure creates or updates an advertising set. Either data or params
	// may be nil to leave that part unchanged. While the set is advertising,
	// only data may be changed and the update is applied without stopping.
	Configure(h *Handle, data *Data, params *Params) status.Code
	Start(h Handle, connTag uint8) status.Code
	Stop(h Handle) status.Code
	SetTxPower(role Role, h Handle, dbm int8) status.Code
	SetDeviceName(mode SecurityMode, name []byte) status.Code
}

// UnitsFromMs converts milliseconds to 0.625 ms advertising interval units
func UnitsFromMs(ms uint32) uint32 {
	return ms * 1000 / 625
}

// MsFromUnits converts 0.625 ms units back to milliseconds
func MsFromUnits(units uint32) uint32 {
	return units * 625 / 1000
}
