// Command quince is a minimal QUIC client/server, grounded on the
// teacher's own cmd/quince tool and rebuilt on cobra/pflag in place of
// its bare flag.FlagSet.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var logLevel int

func main() {
	root := &cobra.Command{
		Use:   "quince",
		Short: "A minimal QUIC client/server",
	}
	root.PersistentFlags().IntVarP(&logLevel, "v", "v", 2, "log verbose: 0=off 1=error 2=info 3=debug 4=trace")

	root.AddCommand(newClientCommand())
	root.AddCommand(newServerCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
