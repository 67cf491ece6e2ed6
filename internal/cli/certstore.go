package cli

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cryptkit/internal/certstore"
	"cryptkit/internal/log"
)

var (
	certstoreAddr  string
	certstoreDir   string
	certstoreKeyID string
	certstoreFile  string
)

var certstoreCmd = &cobra.Command{
	Use:   "certstore",
	Short: "Serve certificates over HTTP, keyed by hex key ID",
}

var certstoreServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve DER certificates from a directory",
	RunE:  runCertstoreServe,
}

var certstoreLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Print the hex key ID cryptkit would use for a DER certificate file",
	RunE:  runCertstoreLoad,
}

func init() {
	rootCmd.AddCommand(certstoreCmd)
	certstoreCmd.AddCommand(certstoreServeCmd)
	certstoreCmd.AddCommand(certstoreLoadCmd)

	certstoreServeCmd.Flags().StringVar(&certstoreAddr, "addr", ":8443", "listen address")
	certstoreServeCmd.Flags().StringVar(&certstoreDir, "dir", ".", "directory of <keyid-hex>.der certificate files")

	certstoreLoadCmd.Flags().StringVar(&certstoreFile, "file", "", "DER certificate file")
}

func runCertstoreServe(cmd *cobra.Command, args []string) error {
	entries, err := os.ReadDir(certstoreDir)
	if err != nil {
		return err
	}

	store := certstore.New()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		keyID, err := hex.DecodeString(trimDERSuffix(e.Name()))
		if err != nil {
			continue
		}
		der, err := os.ReadFile(certstoreDir + "/" + e.Name())
		if err != nil {
			log.Warn("certstore: skipping unreadable file", log.String("file", e.Name()), log.Err(err))
			continue
		}
		store.Put(keyID, der)
	}

	srv := certstore.NewServer(certstoreAddr, store)
	fmt.Fprintf(os.Stderr, "cryptkit certstore listening on %s (%d certs loaded)\n", certstoreAddr, store.Len())
	return srv.ListenAndServe()
}

func trimDERSuffix(name string) string {
	const suffix = ".der"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}

func runCertstoreLoad(cmd *cobra.Command, args []string) error {
	der, err := os.ReadFile(certstoreFile)
	if err != nil {
		return err
	}
	sum := certstore.KeyIDFor(der)
	fmt.Println(hex.EncodeToString(sum))
	return nil
}
