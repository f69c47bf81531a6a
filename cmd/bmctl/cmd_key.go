package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aegistech/base-markets/internal/crypto"
)

var (
	keyHex      string
	keyPassword string
	keyOut      string
)

// encryptKeyCmd seals a raw key with PBKDF2 + AES-GCM.
var encryptKeyCmd = &cobra.Command{
	Use:   "encrypt-key",
	Short: "Seal a private key into a password-protected key file",
	Long: `Encrypt a hex private key for wallet.encrypted_key_path.

The key is read from --key or BASEMARKETS_PRIVATE_KEY, the password from
--password or BASEMARKETS_KEY_PASSWORD. The file is written with mode 0600.`,
	RunE: runEncryptKey,
}

// addressCmd prints the operator address without revealing the key.
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the operator address of the configured key",
	RunE:  runAddress,
}

func init() {
	encryptKeyCmd.Flags().StringVar(&keyHex, "key", "", "hex private key (default $BASEMARKETS_PRIVATE_KEY)")
	encryptKeyCmd.Flags().StringVar(&keyPassword, "password", "", "key file password (default $BASEMARKETS_KEY_PASSWORD)")
	encryptKeyCmd.Flags().StringVarP(&keyOut, "out", "o", "operator.key", "output path")
}

func runEncryptKey(cmd *cobra.Command, _ []string) error {
	raw := firstNonEmpty(keyHex, os.Getenv("BASEMARKETS_PRIVATE_KEY"))
	password := firstNonEmpty(keyPassword, os.Getenv("BASEMARKETS_KEY_PASSWORD"))
	if raw == "" {
		return errors.New("no key given (use --key or BASEMARKETS_PRIVATE_KEY)")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	key, err := crypto.ParseKey(raw)
	if err != nil {
		return err
	}
	blob, err := crypto.Seal(key, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(keyOut, blob, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s for %s\n", keyOut, crypto.NewWallet(key).Address().Hex())
	return nil
}

func runAddress(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	w, err := crypto.LoadWallet(crypto.KeySource{
		RawHex:        cfg.Wallet.PrivateKey,
		EncryptedPath: cfg.Wallet.EncryptedKeyPath,
		Password:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), w.Address().Hex())
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
