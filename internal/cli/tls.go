package cli

import (
	"bufio"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"cryptkit/internal/crypto"
	"cryptkit/internal/handshake"
	"cryptkit/internal/log"
	"cryptkit/internal/sessioncache"
	"cryptkit/internal/tlsrecord"
)

var (
	tlsAddr       string
	tlsVersion    string
	tlsKeyFile    string
	tlsCertFile   string
	tlsDefaultIDs = []uint16{0x0033, 0x0039, 0x002F, 0x0035}
)

var tlsCmd = &cobra.Command{
	Use:   "tls",
	Short: "Speak the SSL 3.0 / TLS 1.0 / TLS 1.1 record layer and handshake",
}

var tlsServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept one legacy-TLS connection, complete the handshake, and echo lines",
	RunE:  runTLSServe,
}

var tlsDialCmd = &cobra.Command{
	Use:   "dial",
	Short: "Connect to a legacy-TLS server, complete the handshake, and send stdin lines",
	RunE:  runTLSDial,
}

func init() {
	rootCmd.AddCommand(tlsCmd)
	tlsCmd.AddCommand(tlsServeCmd)
	tlsCmd.AddCommand(tlsDialCmd)

	for _, c := range []*cobra.Command{tlsServeCmd, tlsDialCmd} {
		c.Flags().StringVar(&tlsAddr, "addr", "localhost:4443", "address to listen on or dial")
		c.Flags().StringVar(&tlsVersion, "version", "tls11", "protocol version: ssl30, tls10, or tls11")
	}
	tlsServeCmd.Flags().StringVar(&tlsKeyFile, "key", "", "PEM RSA private key (server)")
	tlsDialCmd.Flags().StringVar(&tlsCertFile, "cert", "", "PEM X.509 certificate carrying the server's RSA public key")
}

func parseVersion(name string) ([2]byte, tlsrecord.ProtocolVersion, error) {
	switch name {
	case "ssl30":
		return [2]byte{3, 0}, tlsrecord.VersionSSL30, nil
	case "tls10":
		return [2]byte{3, 1}, tlsrecord.VersionTLS10, nil
	case "tls11":
		return [2]byte{3, 2}, tlsrecord.VersionTLS11, nil
	default:
		return [2]byte{}, tlsrecord.ProtocolVersion{}, fmt.Errorf("unknown protocol version %q", name)
	}
}

func loadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s does not contain an RSA private key", path)
	}
	return rsaKey, nil
}

func loadRSAPublicKeyFromCert(path string) (*rsa.PublicKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s does not carry an RSA public key", path)
	}
	return pub, nil
}

const recordMACKeyLen = 20 // HMAC-SHA1, every suite in the table

// recordKeys is one side's pair of traffic directions: a Protector to
// seal what this peer sends, an Unprotector to open what it receives.
type recordKeys struct {
	seal *tlsrecord.Protector
	open *tlsrecord.Unprotector
}

// deriveRecordKeys expands the key block (TLS's PRF-based expansion or
// SSL 3.0's hash-pass construction, selected by version) into the
// per-direction MAC and cipher keys the negotiated suite needs, then
// builds the record-layer Protector/Unprotector pair for isClient's
// side of the connection.
func deriveRecordKeys(version [2]byte, pv tlsrecord.ProtocolVersion, suite handshake.CipherSuite, masterSecret []byte, clientRandom, serverRandom []byte, isClient bool) (*recordKeys, error) {
	blockLen := suite.KeySize
	// Every suite in the table uses a 128-bit block cipher (AES or Serpent).
	const cipherBlockSize = 16
	want := 2*recordMACKeyLen + 2*blockLen + 2*cipherBlockSize

	var block []byte
	if version == [2]byte{3, 0} {
		block = handshake.SSL3KeyBlock(masterSecret, serverRandom, clientRandom, want)
	} else {
		block = handshake.KeyBlock(masterSecret, serverRandom, clientRandom, want)
	}

	pos := 0
	take := func(n int) []byte {
		b := block[pos : pos+n]
		pos += n
		return b
	}
	clientMACKey := take(recordMACKeyLen)
	serverMACKey := take(recordMACKeyLen)
	clientKey := take(blockLen)
	serverKey := take(blockLen)
	// TLS 1.1+ carries an explicit per-record IV, so the key-block IV
	// here only seeds the cipher.BlockMode construction; TLS 1.0/SSL 3.0
	// chain CBC state across records starting from this IV.
	clientIV := take(cipherBlockSize)
	serverIV := take(cipherBlockSize)

	sealKey, sealMACKey, sealIV, openKey, openMACKey, openIV := serverKey, serverMACKey, serverIV, clientKey, clientMACKey, clientIV
	if isClient {
		sealKey, sealMACKey, sealIV, openKey, openMACKey, openIV = clientKey, clientMACKey, clientIV, serverKey, serverMACKey, serverIV
	}

	sealCipher, err := crypto.NewBlockCipher(suite.Algorithm, suite.Mode, sealKey, sealIV)
	if err != nil {
		return nil, err
	}
	openCipher, err := crypto.NewBlockCipher(suite.Algorithm, suite.Mode, openKey, openIV)
	if err != nil {
		return nil, err
	}

	var sealMAC, openMAC func(uint64, tlsrecord.ContentType, []byte) []byte
	if version == [2]byte{3, 0} {
		sealMAC = tlsrecord.NewSSLMACFunc(tlsrecord.SSLMACSHA1, sealMACKey)
		openMAC = tlsrecord.NewSSLMACFunc(tlsrecord.SSLMACSHA1, openMACKey)
	} else {
		sealMAC = tlsrecord.NewTLSMACFunc(sealMACKey, pv)
		openMAC = tlsrecord.NewTLSMACFunc(openMACKey, pv)
	}

	return &recordKeys{
		seal: tlsrecord.NewProtector(sealCipher, sealMAC, pv),
		open: tlsrecord.NewUnprotector(openCipher, openMAC, pv),
	}, nil
}

func readRecord(conn net.Conn) (tlsrecord.Header, []byte, error) {
	hdr := make([]byte, tlsrecord.HeaderSize)
	if _, err := readFull(conn, hdr); err != nil {
		return tlsrecord.Header{}, nil, err
	}
	h, err := tlsrecord.DecodeHeader(hdr)
	if err != nil {
		return tlsrecord.Header{}, nil, err
	}
	body := make([]byte, h.Length)
	if _, err := readFull(conn, body); err != nil {
		return tlsrecord.Header{}, nil, err
	}
	return h, body, nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func writeHandshakeRecord(conn net.Conn, version tlsrecord.ProtocolVersion, body []byte) error {
	hdr := tlsrecord.EncodeHeader(tlsrecord.Header{Type: tlsrecord.ContentHandshake, Version: version, Length: len(body)})
	_, err := conn.Write(append(hdr, body...))
	return err
}

func runTLSServe(cmd *cobra.Command, args []string) error {
	if tlsKeyFile == "" {
		return fmt.Errorf("--key is required")
	}
	priv, err := loadRSAPrivateKey(tlsKeyFile)
	if err != nil {
		return err
	}
	versionPair, pv, err := parseVersion(tlsVersion)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", tlsAddr)
	if err != nil {
		return err
	}
	defer ln.Close()
	fmt.Fprintf(os.Stderr, "cryptkit tls serve listening on %s\n", tlsAddr)

	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()

	cache := sessioncache.New()
	keyex := &crypto.RSAKeyex{Public: &priv.PublicKey, Private: priv}
	server := handshake.NewServerMachine(versionPair, keyex, cache)

	_, clientHelloBody, err := readRecord(conn)
	if err != nil {
		return err
	}
	if err := server.ConsumeClientHello(clientHelloBody[4:]); err != nil {
		return err
	}

	sessionID := cache.NewSessionID([]byte(tlsAddr))
	serverHello, err := server.BuildServerHello(sessionID)
	if err != nil {
		return err
	}
	if err := writeHandshakeRecord(conn, pv, serverHello); err != nil {
		return err
	}
	if err := writeHandshakeRecord(conn, pv, server.BuildServerHelloDone()); err != nil {
		return err
	}

	_, ckeBody, err := readRecord(conn)
	if err != nil {
		return err
	}
	if err := server.ConsumeClientKeyExchangeRSA(ckeBody[4:]); err != nil {
		return err
	}

	_, clientFinishedBody, err := readRecord(conn)
	if err != nil {
		return err
	}
	if err := server.VerifyClientFinished(clientFinishedBody[4:]); err != nil {
		return err
	}

	serverFinished := server.BuildFinished()
	if err := writeHandshakeRecord(conn, pv, serverFinished); err != nil {
		return err
	}
	server.CacheSession(sessionID)

	clientRandom := server.ClientRandom()
	serverRandom := server.ServerRandom()
	keys, err := deriveRecordKeys(versionPair, pv, server.Suite, server.MasterSecret, clientRandom[:], serverRandom[:], false)
	if err != nil {
		return err
	}

	log.Info("tls handshake complete", log.String("suite", server.Suite.Name))
	fmt.Fprintln(os.Stderr, "handshake complete, echoing application data")

	for {
		h, body, err := readRecord(conn)
		if err != nil {
			return err
		}
		if h.Type != tlsrecord.ContentApplicationData {
			continue
		}
		plain, err := keys.open.Open(h.Type, body)
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, string(plain))

		reply, err := keys.seal.Seal(tlsrecord.ContentApplicationData, plain)
		if err != nil {
			return err
		}
		if _, err := conn.Write(reply); err != nil {
			return err
		}
	}
}

func runTLSDial(cmd *cobra.Command, args []string) error {
	if tlsCertFile == "" {
		return fmt.Errorf("--cert is required")
	}
	pub, err := loadRSAPublicKeyFromCert(tlsCertFile)
	if err != nil {
		return err
	}
	versionPair, pv, err := parseVersion(tlsVersion)
	if err != nil {
		return err
	}

	conn, err := net.Dial("tcp", tlsAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	client := handshake.NewClientMachine(versionPair)
	clientHello, err := client.BuildClientHello(tlsDefaultIDs, nil)
	if err != nil {
		return err
	}
	if err := writeHandshakeRecord(conn, pv, clientHello); err != nil {
		return err
	}

	_, serverHelloBody, err := readRecord(conn)
	if err != nil {
		return err
	}
	if err := client.ConsumeServerHello(serverHelloBody[4:]); err != nil {
		return err
	}

	_, doneBody, err := readRecord(conn)
	if err != nil {
		return err
	}
	client.ConsumeCertificate(nil, &crypto.RSAKeyex{Public: pub})
	client.ConsumeServerHelloDone(doneBody[4:])

	cke, err := client.BuildClientKeyExchangeRSA()
	if err != nil {
		return err
	}
	if err := writeHandshakeRecord(conn, pv, cke); err != nil {
		return err
	}

	finished := client.BuildFinished()
	if err := writeHandshakeRecord(conn, pv, finished); err != nil {
		return err
	}

	_, serverFinishedBody, err := readRecord(conn)
	if err != nil {
		return err
	}
	if err := client.VerifyServerFinished(serverFinishedBody[4:]); err != nil {
		return err
	}

	clientRandom := client.ClientRandom()
	serverRandom := client.ServerRandom()
	keys, err := deriveRecordKeys(versionPair, pv, client.Suite, client.MasterSecret, clientRandom[:], serverRandom[:], true)
	if err != nil {
		return err
	}

	log.Info("tls handshake complete", log.String("suite", client.Suite.Name))
	fmt.Fprintln(os.Stderr, "handshake complete, type lines to send")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text() + "\n"
		wire, err := keys.seal.Seal(tlsrecord.ContentApplicationData, []byte(line))
		if err != nil {
			return err
		}
		if _, err := conn.Write(wire); err != nil {
			return err
		}

		h, body, err := readRecord(conn)
		if err != nil {
			return err
		}
		plain, err := keys.open.Open(h.Type, body)
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, string(plain))
	}
	return scanner.Err()
}
