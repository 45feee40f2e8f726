package ipc

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Frame tags. A data frame carries a batch of packets; the end frame is the
// stream's terminal sentinel and carries nothing.
const (
	tagEnd  = 0x00
	tagData = 0x01
)

// endFrame is the encoded end-of-stream sentinel.
var endFrame = []byte{tagEnd}

// appendPacket appends the wire form of src: zigzag-varint unix seconds,
// varint nanoseconds, and the payload as a single length-prefixed byte
// block (not a per-byte sequence).
func appendPacket(buf []byte, src Source) []byte {
	ts := src.Timestamp()
	buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(ts.Unix()))
	buf = protowire.AppendVarint(buf, uint64(ts.Nanosecond()))
	buf = protowire.AppendBytes(buf, src.Data())
	return buf
}

// consumePacket decodes one packet from the head of buf, returning the
// packet and the number of bytes consumed, or an error if buf is malformed.
// The decoded payload aliases buf; the caller relinquishes buf.
func consumePacket(buf []byte) (Packet, int, error) {
	sec, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		return Packet{}, 0, Errorf(Protocol, "corrupt timestamp seconds: %v", protowire.ParseError(n))
	}
	pos := n
	nsec, n := protowire.ConsumeVarint(buf[pos:])
	if n < 0 {
		return Packet{}, 0, Errorf(Protocol, "corrupt timestamp nanoseconds: %v", protowire.ParseError(n))
	}
	pos += n
	if nsec >= 1e9 {
		return Packet{}, 0, Errorf(Protocol, "timestamp nanoseconds out of range: %d", nsec)
	}
	data, n := protowire.ConsumeBytes(buf[pos:])
	if n < 0 {
		return Packet{}, 0, Errorf(Protocol, "corrupt payload: %v", protowire.ParseError(n))
	}
	pos += n
	ts := time.Unix(protowire.DecodeZigZag(sec), int64(nsec))
	return Packet{ts: ts, data: data}, pos, nil
}

// EncodePacket returns the canonical wire encoding of src. The encoding is
// deterministic and lossless for any timestamp and payload.
func EncodePacket(src Source) []byte {
	return appendPacket(nil, src)
}

// DecodePacket decodes a single packet previously produced by EncodePacket.
// It reports a Protocol error if buf does not hold exactly one well-formed
// packet. The decoded packet takes ownership of buf.
func DecodePacket(buf []byte) (Packet, error) {
	p, n, err := consumePacket(buf)
	if err != nil {
		return Packet{}, err
	}
	if n != len(buf) {
		return Packet{}, Errorf(Protocol, "%d trailing bytes after packet", len(buf)-n)
	}
	return p, nil
}

// encodeFrame returns the wire form of a data frame carrying batch. An
// empty batch is a valid frame, distinct from the end-of-stream sentinel.
func encodeFrame(batch []Packet) []byte {
	size := 1 + protowire.SizeVarint(uint64(len(batch)))
	for _, p := range batch {
		size += protowire.SizeVarint(protowire.EncodeZigZag(p.ts.Unix()))
		size += protowire.SizeVarint(uint64(p.ts.Nanosecond()))
		size += protowire.SizeBytes(len(p.data))
	}
	buf := make([]byte, 0, size)
	buf = append(buf, tagData)
	buf = protowire.AppendVarint(buf, uint64(len(batch)))
	for _, p := range batch {
		buf = appendPacket(buf, p)
	}
	return buf
}

// decodeFrame decodes one frame. It returns (nil, false, nil) for the
// end-of-stream sentinel, and otherwise the decoded batch, which may be
// empty. Malformed frames are Protocol errors.
func decodeFrame(buf []byte) ([]Packet, bool, error) {
	if len(buf) == 0 {
		return nil, false, Errorf(Protocol, "empty frame")
	}
	tag, rest := buf[0], buf[1:]
	switch tag {
	case tagEnd:
		if len(rest) != 0 {
			return nil, false, Errorf(Protocol, "%d trailing bytes after end of stream", len(rest))
		}
		return nil, false, nil

	case tagData:
		count, n := protowire.ConsumeVarint(rest)
		if n < 0 {
			return nil, false, Errorf(Protocol, "corrupt batch length: %v", protowire.ParseError(n))
		}
		rest = rest[n:]
		if count > uint64(len(rest)) {
			// Each packet takes at least one byte, so a count beyond the
			// remaining frame size cannot be satisfied.
			return nil, false, Errorf(Protocol, "batch length %d exceeds frame size", count)
		}
		batch := make([]Packet, 0, count)
		for i := uint64(0); i < count; i++ {
			p, n, err := consumePacket(rest)
			if err != nil {
				return nil, false, err
			}
			rest = rest[n:]
			batch = append(batch, p)
		}
		if len(rest) != 0 {
			return nil, false, Errorf(Protocol, "%d trailing bytes after batch", len(rest))
		}
		return batch, true, nil

	default:
		return nil, false, Errorf(Protocol, "invalid frame tag %#x", tag)
	}
}
