package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/Picocrypt/zxcvbn-go"
	"github.com/spf13/cobra"

	"cryptkit/internal/action"
	"cryptkit/internal/content"
	"cryptkit/internal/crypto"
	"cryptkit/internal/envelope"
	"cryptkit/internal/log"
)

var (
	envFormat   string
	envInput    string
	envOutput   string
	envPassword string
	envParanoid bool
	envMDC      bool
)

var envelopeCmd = &cobra.Command{
	Use:   "envelope",
	Short: "Encode or decode a streaming message envelope",
}

var envelopeEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a file into a CMS or PGP envelope",
	RunE:  runEnvelopeEncode,
}

var envelopeDecodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a CMS or PGP envelope back into its plaintext content",
	RunE:  runEnvelopeDecode,
}

func init() {
	rootCmd.AddCommand(envelopeCmd)
	envelopeCmd.AddCommand(envelopeEncodeCmd)
	envelopeCmd.AddCommand(envelopeDecodeCmd)

	for _, c := range []*cobra.Command{envelopeEncodeCmd, envelopeDecodeCmd} {
		c.Flags().StringVarP(&envFormat, "format", "f", "cms", "envelope wire format: cms or pgp")
		c.Flags().StringVarP(&envInput, "input", "i", "", "input file (default stdin)")
		c.Flags().StringVarP(&envOutput, "output", "o", "", "output file (default stdout)")
		c.Flags().StringVarP(&envPassword, "password", "p", "", "password (prompted interactively if omitted)")
		c.Flags().BoolVar(&envParanoid, "paranoid", false, "use paranoid Argon2id parameters and HMAC-SHA3 MAC")
		c.Flags().BoolVar(&envMDC, "mdc", true, "PGP format only: protect the encrypted body with a trailing modification-detection-code packet")
	}
}

func resolvePassword(confirm bool) ([]byte, error) {
	if envPassword != "" {
		return []byte(envPassword), nil
	}
	pw, err := ReadPasswordInteractive(confirm)
	if err != nil {
		return nil, err
	}
	if confirm {
		score := zxcvbn.PasswordStrength(pw, nil).Score
		if score <= 1 {
			fmt.Fprintf(os.Stderr, "warning: password strength score %d/4 is weak\n", score)
		}
	}
	return []byte(pw), nil
}

func openInput() (io.ReadCloser, error) {
	if envInput == "" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(envInput)
}

func openOutput() (io.WriteCloser, error) {
	if envOutput == "" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(envOutput)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// deriveEnvelopeKeys derives a bulk-cipher key and a MAC subkey from a
// password and a fresh random salt, the same Argon2id-then-HKDF chain
// the envelope's password resource uses for its encryption parameters.
func deriveEnvelopeKeys(password []byte, salt []byte, paranoid bool) (cipherKey, macSubkey []byte, err error) {
	master, err := crypto.DeriveKey(password, salt, paranoid)
	if err != nil {
		return nil, nil, err
	}
	stream := crypto.NewHKDFStream(master, salt)
	sk := crypto.NewSubkeyReader(stream)
	cipherKey, err = sk.Subkey("cipher", 32)
	if err != nil {
		return nil, nil, err
	}
	macSubkey, err = sk.Subkey("mac", 32)
	if err != nil {
		return nil, nil, err
	}
	return cipherKey, macSubkey, nil
}

func runEnvelopeEncode(cmd *cobra.Command, args []string) error {
	password, err := resolvePassword(true)
	if err != nil {
		return err
	}

	salt, err := crypto.RandomBytes(16)
	if err != nil {
		return err
	}
	iv, err := crypto.RandomBytes(16)
	if err != nil {
		return err
	}
	cipherKey, macSubkey, err := deriveEnvelopeKeys(password, salt, envParanoid)
	if err != nil {
		return err
	}
	cipher, err := crypto.NewBlockCipher(crypto.AlgAES, crypto.ModeCBC, cipherKey, iv)
	if err != nil {
		return err
	}
	defer cipher.Close()
	mac, err := crypto.NewMAC(macSubkey, envParanoid)
	if err != nil {
		return err
	}

	in, err := openInput()
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := openOutput()
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.Write(salt); err != nil {
		return err
	}
	if _, err := out.Write(iv); err != nil {
		return err
	}

	var writer interface {
		Push([]byte) ([]byte, error)
		Actions() *action.List
	}
	if envFormat == "pgp" {
		writer = envelope.NewPGPWriter(cipher, mac, envMDC)
	} else {
		writer = envelope.NewCMSWriter(cipher, mac)
	}
	log.Debug("envelope actions configured", log.Int("count", writer.Actions().Len()))

	buf := make([]byte, 32*1024)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			wire, werr := writer.Push(buf[:n])
			if werr != nil {
				return werr
			}
			if _, err := out.Write(wire); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	final, err := writer.Push(nil)
	if err != nil {
		return err
	}
	_, err = out.Write(final)
	log.Info("envelope encoded", log.String("format", envFormat))
	return err
}

func runEnvelopeDecode(cmd *cobra.Command, args []string) error {
	password, err := resolvePassword(false)
	if err != nil {
		return err
	}

	in, err := openInput()
	if err != nil {
		return err
	}
	defer in.Close()

	salt := make([]byte, 16)
	if _, err := io.ReadFull(in, salt); err != nil {
		return fmt.Errorf("reading salt: %w", err)
	}
	iv := make([]byte, 16)
	if _, err := io.ReadFull(in, iv); err != nil {
		return fmt.Errorf("reading iv: %w", err)
	}

	cipherKey, macSubkey, err := deriveEnvelopeKeys(password, salt, envParanoid)
	if err != nil {
		return err
	}
	cipher, err := crypto.NewBlockCipher(crypto.AlgAES, crypto.ModeCBC, cipherKey, iv)
	if err != nil {
		return err
	}
	defer cipher.Close()
	mac, err := crypto.NewMAC(macSubkey, envParanoid)
	if err != nil {
		return err
	}

	out, err := openOutput()
	if err != nil {
		return err
	}
	defer out.Close()

	var reader interface {
		Push([]byte) ([]byte, error)
		Actions() *action.List
		Content() *content.List
	}
	if envFormat == "pgp" {
		reader = envelope.NewPGPReader(cipher, mac, 64*1024, envMDC)
	} else {
		reader = envelope.NewCMSReader(cipher, mac, 64*1024)
	}
	log.Debug("envelope actions configured", log.Int("count", reader.Actions().Len()))

	buf := make([]byte, 32*1024)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			plain, perr := reader.Push(buf[:n])
			if perr != nil {
				return perr
			}
			if _, err := out.Write(plain); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	log.Debug("envelope content groups resolved", log.Int("count", reader.Content().Len()))
	log.Info("envelope decoded", log.String("format", envFormat))
	return nil
}
