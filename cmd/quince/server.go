package main

import (
	"crypto/tls"
	"log"

	"github.com/spf13/cobra"

	quic "github.com/netglass/qcore"
	"github.com/netglass/qcore/internal/telemetry"
	"github.com/netglass/qcore/transport"
)

func newServerCommand() *cobra.Command {
	var (
		listenAddr string
		certFile   string
		keyFile    string
	)
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run a QUIC echo server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := tls.LoadX509KeyPair(certFile, keyFile)
			if err != nil {
				return err
			}
			config := &quic.Config{
				TLS: &tls.Config{
					Certificates: []tls.Certificate{cert},
					NextProtos:   []string{"quince"},
				},
				LogLevel: telemetry.Level(logLevel),
			}

			server := quic.NewServer(config)
			server.SetHandler(&echoHandler{})
			if err := server.ListenAndServe(listenAddr); err != nil {
				return err
			}
			log.Printf("listening on %s", listenAddr)
			select {}
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "0.0.0.0:4433", "listen on the given IP:port")
	cmd.Flags().StringVar(&certFile, "cert", "", "TLS certificate file")
	cmd.Flags().StringVar(&keyFile, "key", "", "TLS private key file")
	cmd.MarkFlagRequired("cert")
	cmd.MarkFlagRequired("key")
	return cmd
}

// echoHandler writes every received stream's data back to its sender.
type echoHandler struct{}

func (echoHandler) Serve(c quic.Conn, events []transport.Event) {
	for _, e := range events {
		if e.Type == transport.EventConnAccept {
			log.Printf("accepted connection from %s", c.RemoteAddr())
			continue
		}
		if e.Type != transport.EventStreamReadable {
			continue
		}
		st, ok := c.Stream(e.StreamID)
		if !ok {
			continue
		}
		buf := make([]byte, 4096)
		n, done, err := st.Read(buf)
		if err != nil {
			log.Printf("stream %d read: %v", e.StreamID, err)
			continue
		}
		if n > 0 {
			if err := st.Write(buf[:n], done); err != nil {
				log.Printf("stream %d write: %v", e.StreamID, err)
			}
		}
	}
}
