package entities

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// TableHeaderSize is the encoded size of an ACPI system description table header.
const TableHeaderSize = 36

// TableHeader is the common header of every ACPI system description table.
type TableHeader struct {
	Signature       [4]byte
	Length          uint32
	Revision        uint8
	Checksum        uint8
	OEMID           [6]byte
	OEMTableID      [8]byte
	OEMRevision     uint32
	CreatorID       [4]byte
	CreatorRevision uint32
}

// SignatureString returns the table signature as text, e.g. "DSDT".
func (h TableHeader) SignatureString() string {
	return string(h.Signature[:])
}

// OEMIDString returns the OEM id with trailing padding removed.
func (h TableHeader) OEMIDString() string {
	return strings.TrimRight(string(h.OEMID[:]), " \x00")
}

// MarshalBinary encodes the header in its little-endian firmware layout.
func (h TableHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, TableHeaderSize)
	copy(buf[0:4], h.Signature[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Length)
	buf[8] = h.Revision
	buf[9] = h.Checksum
	copy(buf[10:16], h.OEMID[:])
	copy(buf[16:24], h.OEMTableID[:])
	binary.LittleEndian.PutUint32(buf[24:28], h.OEMRevision)
	copy(buf[28:32], h.CreatorID[:])
	binary.LittleEndian.PutUint32(buf[32:36], h.CreatorRevision)
	return buf, nil
}

// UnmarshalBinary decodes a header from its firmware layout.
func (h *TableHeader) UnmarshalBinary(data []byte) error {
	if len(data) < TableHeaderSize {
		return fmt.Errorf("table header: need %d bytes, got %d", TableHeaderSize, len(data))
	}
	copy(h.Signature[:], data[0:4])
	h.Length = binary.LittleEndian.Uint32(data[4:8])
	h.Revision = data[8]
	h.Checksum = data[9]
	copy(h.OEMID[:], data[10:16])
	copy(h.OEMTableID[:], data[16:24])
	h.OEMRevision = binary.LittleEndian.Uint32(data[24:28])
	copy(h.CreatorID[:], data[28:32])
	h.CreatorRevision = binary.LittleEndian.Uint32(data[32:36])
	return nil
}

// PredefinedName is a predefined namespace object the host may override,
// e.g. _OS_ with the operating system name.
type PredefinedName struct {
	Name  string
	Type  uint8
	Value string
}

// SignalFunction selects the kind of event passed to Signal.
type SignalFunction uint32

const (
	SignalFatal      SignalFunction = 0
	SignalBreakpoint SignalFunction = 1
)

// String returns "fatal", "breakpoint" or "unknown".
func (f SignalFunction) String() string {
	switch f {
	case SignalFatal:
		return "fatal"
	case SignalBreakpoint:
		return "breakpoint"
	default:
		return "unknown"
	}
}

// SignalInfo carries the payload of a Signal call. Fatal signals use Type,
// Code and Argument; breakpoints use Message.
type SignalInfo struct {
	Type     uint32
	Code     uint32
	Argument uint32
	Message  string
}
