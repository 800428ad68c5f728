package main

import (
	"crypto/tls"
	"log"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	quic "github.com/netglass/qcore"
	"github.com/netglass/qcore/internal/telemetry"
	"github.com/netglass/qcore/transport"
)

func newClientCommand() *cobra.Command {
	var (
		listenAddr string
		insecure   bool
		data       string
	)
	cmd := &cobra.Command{
		Use:   "client <address>",
		Short: "Dial a QUIC server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := args[0]
			config := &quic.Config{
				TLS: &tls.Config{
					ServerName:         serverName(addr),
					InsecureSkipVerify: insecure,
					NextProtos:         []string{"quince"},
				},
				LogLevel: telemetry.Level(logLevel),
			}

			handler := &clientHandler{data: data}
			client := quic.NewClient(config)
			client.SetHandler(handler)
			if err := client.ListenAndServe(listenAddr); err != nil {
				return err
			}
			handler.wg.Add(1)
			if err := client.Connect(addr); err != nil {
				return err
			}
			handler.wg.Wait()
			return client.Close()
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "0.0.0.0:0", "listen on the given IP:port")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip verifying server certificate")
	cmd.Flags().StringVar(&data, "data", "GET /\r\n", "data to send on the first stream")
	return cmd
}

type clientHandler struct {
	wg   sync.WaitGroup
	data string
}

func (s *clientHandler) Serve(c quic.Conn, events []transport.Event) {
	for _, e := range events {
		log.Printf("%s connection event: %v", c.RemoteAddr(), e.Type)
		switch e.Type {
		case transport.EventConnEstablished:
			st, err := c.OpenStream(true)
			if err != nil {
				log.Printf("open stream: %v", err)
				continue
			}
			_ = st.Write([]byte(s.data), true)
		case transport.EventStreamReadable:
			st, ok := c.Stream(e.StreamID)
			if !ok {
				continue
			}
			buf := make([]byte, 512)
			n, _, _ := st.Read(buf)
			log.Printf("stream %d received:\n%s", e.StreamID, buf[:n])
		case transport.EventConnClose:
			s.wg.Done()
		}
	}
}

func serverName(s string) string {
	colon := strings.LastIndex(s, ":")
	if colon > 0 {
		bracket := strings.LastIndex(s, "]")
		if colon > bracket {
			return s[:colon]
		}
	}
	return s
}
