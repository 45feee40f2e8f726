package channel

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// maxSecureRecord caps the plaintext size of a single record on a Secure
// channel, bounding the allocation a hostile peer can force on Recv.
const maxSecureRecord = 1 << 20

// A Role identifies which end of a rendezvous an endpoint is. Each
// direction of a Secure channel seals under its own subkey, selected by
// role, so the two endpoints of a channel must declare opposite roles.
type Role int

const (
	// Initiator is the dialing side of the rendezvous.
	Initiator Role = iota

	// Responder is the listening side of the rendezvous.
	Responder
)

// Secure returns a Framing that seals every record with ChaCha20-Poly1305
// before transmission. Both endpoints must be constructed with the same
// 32-byte key and opposite roles; distributing the key is the caller's
// concern, like the rendezvous identifier itself.
//
// The pre-shared key is never used to seal directly: HKDF expands it into
// one subkey per direction, assigned by role, so the initiator's frames
// and the responder's frames share no keystream even though the
// per-direction nonce counters both start at zero. On the wire each record
// is a 4-byte big-endian ciphertext length followed by the ciphertext.
// A key must not be reused across channels. Secure panics if the key has
// the wrong length.
func Secure(key []byte, role Role) Framing {
	return func(r io.Reader, wc io.WriteCloser) Channel {
		if len(key) != chacha20poly1305.KeySize {
			panic(fmt.Sprintf("channel: invalid key length %d", len(key)))
		}

		// One subkey per direction. The initiator seals with the first
		// subkey and opens with the second; the responder does the
		// reverse, so each counter-based nonce sequence runs under its
		// own key and neither side can be reflected its own frames.
		material := make([]byte, 2*chacha20poly1305.KeySize)
		kdf := hkdf.New(sha256.New, key, nil, []byte("packet-ipc secure channel"))
		if _, err := io.ReadFull(kdf, material); err != nil {
			panic(fmt.Sprintf("channel: key derivation failed: %v", err))
		}
		sendKey, recvKey := material[:chacha20poly1305.KeySize], material[chacha20poly1305.KeySize:]
		if role == Responder {
			sendKey, recvKey = recvKey, sendKey
		}

		seal, err := chacha20poly1305.New(sendKey)
		if err != nil {
			panic(fmt.Sprintf("channel: invalid key: %v", err))
		}
		open, _ := chacha20poly1305.New(recvKey)
		return &secure{
			r: r, wc: wc, seal: seal, open: open,
			sealNonce: make([]byte, chacha20poly1305.NonceSize),
			openNonce: make([]byte, chacha20poly1305.NonceSize),
		}
	}
}

type secure struct {
	r          io.Reader
	wc         io.WriteCloser
	seal, open cipher.AEAD

	// Per-direction record counters, interpreted little-endian.
	sealNonce, openNonce []byte

	buf []byte // reused to assemble outbound frames
}

// Send implements part of the Channel interface.
func (s *secure) Send(rec []byte) error {
	if len(rec) > maxSecureRecord {
		return fmt.Errorf("record size %d exceeds limit %d", len(rec), maxSecureRecord)
	}
	s.buf = append(s.buf[:0], 0, 0, 0, 0)
	s.buf = s.seal.Seal(s.buf, s.sealNonce, rec, nil)
	binary.BigEndian.PutUint32(s.buf[:4], uint32(len(s.buf)-4))
	bumpNonce(s.sealNonce)
	_, err := s.wc.Write(s.buf)
	return err
}

// Recv implements part of the Channel interface.
func (s *secure) Recv() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
		return nil, err
	}
	ln := binary.BigEndian.Uint32(hdr[:])
	if ln > maxSecureRecord+uint32(s.open.Overhead()) {
		return nil, errors.New("encrypted record too large")
	}
	ct := make([]byte, ln)
	if _, err := io.ReadFull(s.r, ct); err != nil {
		return nil, err
	}
	rec, err := s.open.Open(ct[:0], s.openNonce, ct, nil)
	if err != nil {
		// Authentication failure: the stream has been tampered with or the
		// endpoints disagree on the key. There is no resynchronizing.
		return nil, fmt.Errorf("open record: %v", err)
	}
	bumpNonce(s.openNonce)
	return rec, nil
}

// Close implements part of the Channel interface.
func (s *secure) Close() error { return s.wc.Close() }

func bumpNonce(n []byte) {
	for i := range n {
		n[i]++
		if n[i] != 0 {
			return
		}
	}
}
