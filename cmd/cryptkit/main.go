// Command cryptkit implements a streaming CMS/PGP envelope engine and a
// legacy SSL 3.0 / TLS 1.0 / TLS 1.1 record layer and handshake, plus a
// small HTTP certificate-store server for looking up certificates by
// key ID.
package main

import (
	"os"

	"cryptkit/internal/cli"
)

const version = "v0.1.0"

func main() {
	os.Exit(cli.Execute(version))
}
