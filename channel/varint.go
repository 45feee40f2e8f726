package channel

import (
	"bufio"
	"encoding/binary"
	"io"
)

// Varint is a Framing in which each record is prefixed by its length,
// encoded as a varint in the manner of the encoding/binary package.
func Varint(r io.Reader, wc io.WriteCloser) Channel {
	return &varint{wc: wc, rd: bufio.NewReader(r)}
}

type varint struct {
	wc  io.WriteCloser
	rd  *bufio.Reader
	buf []byte // reused to assemble outbound frames
}

// Send implements part of the Channel interface.
func (c *varint) Send(rec []byte) error {
	c.buf = binary.AppendUvarint(c.buf[:0], uint64(len(rec)))
	c.buf = append(c.buf, rec...)
	_, err := c.wc.Write(c.buf)
	return err
}

// Recv implements part of the Channel interface.
func (c *varint) Recv() ([]byte, error) {
	ln, err := binary.ReadUvarint(c.rd)
	if err != nil {
		return nil, err
	}
	rec := make([]byte, int(ln))
	if _, err := io.ReadFull(c.rd, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Close implements part of the Channel interface.
func (c *varint) Close() error { return c.wc.Close() }
