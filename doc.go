/*
Package ipc hands a bounded, timestamped stream of binary records from one
process to another over a one-shot rendezvous.

A Server publishes an opaque rendezvous identifier. Exactly one peer may
redeem that identifier; doing so yields a Link, an ordered sink for batches
of packets. Closing the Link transmits a single end-of-stream marker, so the
receiving side can distinguish "no more data will ever arrive" from an empty
batch. A Receiver decodes the far end of the stream, returning io.EOF once
the marker is observed.

Basic usage, sending side:

	srv, err := ipc.NewServer(nil)
	if err != nil {
		log.Fatal(err)
	}
	publish(srv.Name()) // hand the identifier to the peer out of band

	link, err := srv.Accept() // blocks until the peer registers
	...
	if err := link.Send(batch); err != nil {
		log.Fatal(err)
	}
	if err := link.Close(); err != nil {
		log.Fatal(err)
	}

Receiving side:

	rcv, err := ipc.Dial(name)
	...
	for {
		batch, err := rcv.Recv()
		if err == io.EOF {
			break // end of stream
		} else if err != nil {
			log.Fatal(err)
		}
		consume(batch)
	}

A Server accepts at most once and cannot be reused; after a failed or
abandoned rendezvous the identifier is permanently dead. Establishing a new
stream means creating a new Server. Accept has no timeout and no
cancellation: a caller that needs a deadline must race Accept against its
own timer and discard the Server when the timer wins.

By default the rendezvous rides on a unix domain socket (package socket);
any transport implementing the Bootstrap interface can substitute, and the
channel package supplies in-memory channels for same-process use.
*/
package ipc
