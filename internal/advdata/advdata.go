// Package advdata encodes and decodes BLE advertising data (AD structures).
//
// Encoding is delegated to go-ble's adv.Packet builder; this package decides
// which fields make up an advertisement or scan response and copies the
// result into caller-owned fixed buffers.
package advdata

import (
	"encoding/binary"
	"errors"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux/adv"
	"github.com/srg/bleadv/internal/status"
)

// AD types this package produces or inspects
const (
	typeFlags            = 0x01
	typeCompleteName     = 0x09
	typeManufacturerData = 0xFF
)

// FlagBREDRNotSupported is the only flag a non-discoverable beacon sets
const FlagBREDRNotSupported = adv.FlagLEOnly

// UnknownCompanyID is put on air when no manufacturer ID was configured
const UnknownCompanyID uint16 = 0xFFFF

// NUSServiceUUID is the Nordic UART Service advertised in scan responses
var NUSServiceUUID = ble.MustParse("6e400001-b5a3-f393-e0a9-e50e24dcca9e")

// ManufacturerData is a manufacturer specific data field
type ManufacturerData struct {
	CompanyID uint16
	Data      []byte
}

// Record lists the fields to encode, zero values are left out
type Record struct {
	Flags        byte
	Manufacturer *ManufacturerData
	Name         string
	UUIDs        []ble.UUID // complete list of service UUIDs
}

func (r *Record) fields() []adv.Field {
	var fields []adv.Field
	if r.Flags != 0 {
		fields = append(fields, adv.Flags(r.Flags))
	}
	if r.Name != "" {
		fields = append(fields, adv.CompleteName(r.Name))
	}
	for _, u := range r.UUIDs {
		fields = append(fields, adv.AllUUID(u))
	}
	if r.Manufacturer != nil {
		fields = append(fields, adv.ManufacturerData(r.Manufacturer.CompanyID, r.Manufacturer.Data))
	}
	return fields
}

// Encode writes rec into dst and returns the encoded length. Fails with
// InvalidLength when the fields exceed a legacy PDU and NoMemory when dst is
// smaller than the encoded record. dst is left untouched on failure.
func Encode(rec *Record, dst []byte) (int, error) {
	if rec == nil {
		return 0, status.New(status.Null, "advdata_encode")
	}

	p, err := adv.NewPacket(rec.fields()...)
	if err != nil {
		if errors.Is(err, adv.ErrNotFit) {
			return 0, status.New(status.InvalidLength, "advdata_encode")
		}
		return 0, status.New(status.InvalidParam, "advdata_encode")
	}
	if p.Len() > adv.MaxEIRPacketLength {
		return 0, status.New(status.InvalidLength, "advdata_encode")
	}
	if p.Len() > len(dst) {
		return 0, status.New(status.NoMemory, "advdata_encode")
	}

	n := copy(dst, p.Bytes())
	clear(dst[n:])
	return n, nil
}

// Decoded is the parsed view of an advertising payload
type Decoded struct {
	Flags        byte
	HasFlags     bool
	Manufacturer *ManufacturerData
	Name         string
	UUIDs        []ble.UUID
}

// Decode parses an encoded payload. Unknown fields are ignored.
func Decode(b []byte) *Decoded {
	p := adv.NewRawPacket(b)
	d := &Decoded{
		Name:  string(p.Field(typeCompleteName)),
		UUIDs: p.UUIDs(),
	}

	if f := p.Field(typeFlags); len(f) == 1 {
		d.Flags = f[0]
		d.HasFlags = true
	}

	if md := p.Field(typeManufacturerData); len(md) >= 2 {
		d.Manufacturer = &ManufacturerData{
			CompanyID: binary.LittleEndian.Uint16(md[:2]),
			Data:      append([]byte{}, md[2:]...),
		}
	}

	return d
}
