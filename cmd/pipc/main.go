// Program pipc demonstrates the packet-ipc rendezvous from both ends.
//
// The sending side allocates an endpoint and prints its identifier:
//
//	pipc send --batches 3 --size 16
//
// The receiving side redeems the identifier printed by the sender:
//
//	pipc recv /tmp/pipc-<id>.sock
//
// "pipc loopback" runs both ends in one process, which is a convenient
// smoke test of the whole handshake.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	ipc "github.com/dbcfd/packet-ipc"
	"github.com/dbcfd/packet-ipc/channel"
	"github.com/dbcfd/packet-ipc/socket"
)

var (
	numBatches  int
	batchLen    int
	payloadSize int
	keyHex      string
)

func main() {
	root := &cobra.Command{
		Use:           "pipc",
		Short:         "Stream timestamped packets between processes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&keyHex, "key", "",
		"Hex-encoded 32-byte key; when set, frames are sealed with ChaCha20-Poly1305")

	send := &cobra.Command{
		Use:   "send",
		Short: "Publish an endpoint and stream packets to whoever redeems it",
		Args:  cobra.NoArgs,
		RunE:  runSend,
	}
	send.Flags().IntVar(&numBatches, "batches", 3, "Number of batches to send")
	send.Flags().IntVar(&batchLen, "batch", 4, "Packets per batch")
	send.Flags().IntVar(&payloadSize, "size", 32, "Payload bytes per packet")

	recv := &cobra.Command{
		Use:   "recv <identifier>",
		Short: "Redeem an endpoint identifier and print the stream",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecv,
	}

	loop := &cobra.Command{
		Use:   "loopback",
		Short: "Run a sender and a receiver against each other in-process",
		Args:  cobra.NoArgs,
		RunE:  runLoopback,
	}
	loop.Flags().IntVar(&numBatches, "batches", 3, "Number of batches to send")
	loop.Flags().IntVar(&batchLen, "batch", 4, "Packets per batch")
	loop.Flags().IntVar(&payloadSize, "size", 32, "Payload bytes per packet")

	root.AddCommand(send, recv, loop)
	if err := root.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// socketOptions translates the --key flag into transport options. The
// sending side listens and the receiving side dials, so each passes its own
// role to the secure framing.
func socketOptions(role channel.Role) (*socket.Options, error) {
	if keyHex == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid --key: %v", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid --key: need 32 bytes, got %d", len(key))
	}
	return &socket.Options{Framing: channel.Secure(key, role)}, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	sopts, err := socketOptions(channel.Responder)
	if err != nil {
		return err
	}
	srv, err := ipc.NewServer(&ipc.ServerOptions{Socket: sopts})
	if err != nil {
		return err
	}
	fmt.Println(srv.Name())
	return sendStream(srv)
}

func runRecv(cmd *cobra.Command, args []string) error {
	sopts, err := socketOptions(channel.Initiator)
	if err != nil {
		return err
	}
	ch, err := socket.Dial(args[0], sopts)
	if err != nil {
		return err
	}
	return printStream(ipc.NewReceiver(ch), os.Stdout)
}

func runLoopback(cmd *cobra.Command, args []string) error {
	listenOpts, err := socketOptions(channel.Responder)
	if err != nil {
		return err
	}
	dialOpts, err := socketOptions(channel.Initiator)
	if err != nil {
		return err
	}
	srv, err := ipc.NewServer(&ipc.ServerOptions{Socket: listenOpts})
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error { return sendStream(srv) })
	g.Go(func() error {
		ch, err := socket.Dial(srv.Name(), dialOpts)
		if err != nil {
			return err
		}
		return printStream(ipc.NewReceiver(ch), os.Stdout)
	})
	return g.Wait()
}

// sendStream accepts the peer and pushes the configured batches.
func sendStream(srv *ipc.Server) error {
	link, err := srv.Accept()
	if err != nil {
		return err
	}
	for i := 0; i < numBatches; i++ {
		batch := makeBatch(i)
		if err := link.Send(batch); err != nil {
			return err
		}
		log.Printf("sent batch %d (%d packets)", i+1, len(batch))
	}
	return link.Close()
}

func makeBatch(n int) []ipc.Packet {
	batch := make([]ipc.Packet, batchLen)
	for i := range batch {
		data := make([]byte, payloadSize)
		for j := range data {
			data[j] = byte(n + i + j)
		}
		batch[i] = ipc.NewPacket(time.Now(), data)
	}
	return batch
}

// printStream drains rcv, writing one summary line per batch.
func printStream(rcv *ipc.Receiver, w io.Writer) error {
	var batches, packets int
	for {
		batch, err := rcv.Recv()
		if err == io.EOF {
			fmt.Fprintf(w, "end of stream: %d batches, %d packets\n", batches, packets)
			return nil
		} else if err != nil {
			return err
		}
		batches++
		packets += len(batch)
		for _, p := range batch {
			fmt.Fprintf(w, "batch %d: %s, %d bytes\n",
				batches, p.Timestamp().Format("15:04:05.000000"), len(p.IntoData()))
		}
		if len(batch) == 0 {
			fmt.Fprintf(w, "batch %d: empty (heartbeat)\n", batches)
		}
	}
}
