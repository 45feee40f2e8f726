package ipc

import "time"

// A Source is any value that can be projected into a wire packet. Timestamp
// reports when the record was captured; Data materializes its payload. Data
// must return bytes the caller may retain, so implementations sharing an
// underlying buffer should return a copy.
//
// Any type satisfying Source gains the canonical wire encoding without
// touching the encoding logic itself; Packet is simply the built-in
// implementation.
type Source interface {
	Timestamp() time.Time
	Data() []byte
}

// A Packet is a timestamped byte payload, the unit of data carried by a
// Link. A Packet belongs to its creator until it is handed to Link.Send,
// after which the sender must not retain or modify its payload.
type Packet struct {
	ts   time.Time
	data []byte
}

// NewPacket constructs a Packet with the given timestamp and payload. The
// packet takes ownership of data.
func NewPacket(ts time.Time, data []byte) Packet { return Packet{ts: ts, data: data} }

// FromSource converts any record-like value into a Packet, copying the
// timestamp and materializing the payload via src.Data.
func FromSource(src Source) Packet {
	return Packet{ts: src.Timestamp(), data: src.Data()}
}

// Timestamp reports when the packet was captured. It implements part of
// Source.
func (p Packet) Timestamp() time.Time { return p.ts }

// Data returns a copy of the packet's payload. It implements part of
// Source.
func (p Packet) Data() []byte {
	cp := make([]byte, len(p.data))
	copy(cp, p.data)
	return cp
}

// IntoData returns the packet's payload without copying. The caller takes
// ownership; the packet must not be used afterward.
func (p Packet) IntoData() []byte { return p.data }
