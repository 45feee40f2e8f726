package socket_test

import (
	"errors"
	"net"
	"os"
	"testing"

	"github.com/fortytw2/leaktest"
	"golang.org/x/sync/errgroup"

	"github.com/dbcfd/packet-ipc/channel"
	"github.com/dbcfd/packet-ipc/socket"
)

func TestRendezvous(t *testing.T) {
	defer leaktest.Check(t)()

	lst, err := socket.Listen(nil)
	if err != nil {
		t.Fatalf("Listen: unexpected error: %v", err)
	}
	name := lst.Name()
	if _, err := os.Stat(name); err != nil {
		t.Fatalf("rendezvous socket %q does not exist: %v", name, err)
	}

	var g errgroup.Group
	var out, in channel.Channel
	g.Go(func() error {
		var err error
		out, err = lst.Redeem()
		return err
	})
	in, err = socket.Dial(name, nil)
	if err != nil {
		t.Fatalf("Dial: unexpected error: %v", err)
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Redeem: unexpected error: %v", err)
	}

	// The redeemed channel carries records in order.
	var g2 errgroup.Group
	g2.Go(func() error {
		if err := out.Send([]byte("first")); err != nil {
			return err
		}
		return out.Send([]byte("second"))
	})
	for _, want := range []string{"first", "second"} {
		rec, err := in.Recv()
		if err != nil {
			t.Fatalf("Recv: unexpected error: %v", err)
		}
		if got := string(rec); got != want {
			t.Errorf("Recv: got %q, want %q", got, want)
		}
	}
	if err := g2.Wait(); err != nil {
		t.Fatalf("Send: unexpected error: %v", err)
	}
	out.Close()
	in.Close()

	// Redeeming consumed the identifier.
	if _, err := os.Stat(name); !os.IsNotExist(err) {
		t.Errorf("socket still present after redeem: %v", err)
	}
	if _, err := socket.Dial(name, nil); err == nil {
		t.Error("Dial of a redeemed identifier did not fail")
	}
}

func TestBadRegistration(t *testing.T) {
	defer leaktest.Check(t)()

	lst, err := socket.Listen(nil)
	if err != nil {
		t.Fatalf("Listen: unexpected error: %v", err)
	}
	defer lst.Close()

	var g errgroup.Group
	g.Go(func() error {
		conn, err := net.Dial("unix", lst.Name())
		if err != nil {
			return err
		}
		defer conn.Close()
		// A valid varint frame whose record is not a registration.
		ch := channel.Varint(conn, conn)
		return ch.Send([]byte("who goes there"))
	})

	if _, err := lst.Redeem(); !errors.Is(err, socket.ErrBadRegistration) {
		t.Errorf("Redeem: got %v, want %v", err, socket.ErrBadRegistration)
	}
	if err := g.Wait(); err != nil {
		t.Errorf("dial: unexpected error: %v", err)
	}
}

func TestTruncatedRegistration(t *testing.T) {
	defer leaktest.Check(t)()

	lst, err := socket.Listen(nil)
	if err != nil {
		t.Fatalf("Listen: unexpected error: %v", err)
	}
	defer lst.Close()

	var g errgroup.Group
	g.Go(func() error {
		conn, err := net.Dial("unix", lst.Name())
		if err != nil {
			return err
		}
		// A frame header promising more bytes than ever arrive.
		if _, err := conn.Write([]byte{0x20, 'x'}); err != nil {
			return err
		}
		return conn.Close()
	})

	if _, err := lst.Redeem(); !errors.Is(err, socket.ErrBadRegistration) {
		t.Errorf("Redeem: got %v, want %v", err, socket.ErrBadRegistration)
	}
	if err := g.Wait(); err != nil {
		t.Errorf("dial: unexpected error: %v", err)
	}
}

func TestAbandon(t *testing.T) {
	defer leaktest.Check(t)()

	lst, err := socket.Listen(nil)
	if err != nil {
		t.Fatalf("Listen: unexpected error: %v", err)
	}
	name := lst.Name()
	if err := lst.Close(); err != nil {
		t.Errorf("Close: unexpected error: %v", err)
	}
	if err := lst.Close(); err != nil {
		t.Errorf("second Close: unexpected error: %v", err)
	}

	if _, err := os.Stat(name); !os.IsNotExist(err) {
		t.Errorf("socket still present after abandon: %v", err)
	}
	if _, err := socket.Dial(name, nil); err == nil {
		t.Error("Dial of an abandoned identifier did not fail")
	}
}

func TestRedeemAfterClose(t *testing.T) {
	defer leaktest.Check(t)()

	lst, err := socket.Listen(nil)
	if err != nil {
		t.Fatalf("Listen: unexpected error: %v", err)
	}
	lst.Close()

	if _, err := lst.Redeem(); err == nil {
		t.Error("Redeem of a closed listener did not fail")
	}
}

func TestListenDir(t *testing.T) {
	lst, err := socket.Listen(&socket.Options{Dir: os.TempDir()})
	if err != nil {
		t.Fatalf("Listen: unexpected error: %v", err)
	}
	defer lst.Close()

	if _, err := os.Stat(lst.Name()); err != nil {
		t.Errorf("rendezvous socket %q does not exist: %v", lst.Name(), err)
	}
}

func TestFreshNames(t *testing.T) {
	a, err := socket.Listen(nil)
	if err != nil {
		t.Fatalf("Listen: unexpected error: %v", err)
	}
	defer a.Close()
	b, err := socket.Listen(nil)
	if err != nil {
		t.Fatalf("Listen: unexpected error: %v", err)
	}
	defer b.Close()

	if a.Name() == b.Name() {
		t.Errorf("two listeners share the identifier %q", a.Name())
	}
}
