// Package cli wires cryptkit's cobra command tree: envelope encode/decode,
// a TLS record-layer dial/serve pair, and the certificate-store HTTP server.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cryptkit/internal/log"
)

// Version is set by main.go.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "cryptkit",
	Short: "CMS/PGP envelope and legacy-TLS toolkit",
	Long: `cryptkit implements two independent pieces of cryptographic plumbing:

  - a streaming message-enveloping engine, speaking ASN.1 BER (CMS-style)
    and PGP packet wire formats
  - an SSL 3.0 / TLS 1.0 / TLS 1.1 record layer and handshake, with
    a server-side session cache and a certificate-store HTTP server`,
	Version: Version,
}

var verbose bool

// Execute runs the CLI application, returning the process exit status.
func Execute(version string) int {
	Version = version
	rootCmd.Version = version

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			log.EnableDebugLogging()
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\ncryptkit: interrupted")
		os.Exit(1)
	}()

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")
}
