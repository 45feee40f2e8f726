package ipc_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	ipc "github.com/dbcfd/packet-ipc"
)

// packetEq compares packets on their observable surface: instant and bytes.
var packetEq = cmp.Comparer(func(a, b ipc.Packet) bool {
	return a.Timestamp().Equal(b.Timestamp()) && bytes.Equal(a.IntoData(), b.IntoData())
})

// stamped is a minimal record type exercising the Source conversion.
type stamped struct {
	at  time.Time
	buf []byte
}

func (s stamped) Timestamp() time.Time { return s.at }
func (s stamped) Data() []byte         { return append([]byte(nil), s.buf...) }

func TestFromSource(t *testing.T) {
	buf := []byte("shared buffer")
	src := stamped{at: time.Unix(1136214245, 0), buf: buf}

	p := ipc.FromSource(src)
	copy(buf, "clobbered !!!")

	if got, want := string(p.IntoData()), "shared buffer"; got != want {
		t.Errorf("payload after source mutation: got %q, want %q", got, want)
	}
	if !p.Timestamp().Equal(src.at) {
		t.Errorf("timestamp: got %v, want %v", p.Timestamp(), src.at)
	}
}

func TestPacketDataIsACopy(t *testing.T) {
	p := ipc.NewPacket(time.Unix(5, 0), []byte{1, 2, 3})

	d := p.Data()
	d[0] = 99

	if got := p.IntoData(); got[0] != 1 {
		t.Errorf("payload after mutating Data result: got %v, want [1 2 3]", got)
	}
}

func TestSourceRoundTrip(t *testing.T) {
	src := stamped{at: time.Unix(25, 250), buf: []byte{0xde, 0xad}}

	got, err := ipc.DecodePacket(ipc.EncodePacket(src))
	if err != nil {
		t.Fatalf("DecodePacket: unexpected error: %v", err)
	}
	want := ipc.FromSource(src)
	if diff := cmp.Diff(want, got, packetEq); diff != "" {
		t.Errorf("decoded packet (-want +got):\n%s", diff)
	}
}
