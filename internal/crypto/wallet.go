// Package crypto manages the operator wallet key that signs pool transfers.
// Keys are stored encrypted at rest with a password-derived AES-256-GCM key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// defaultIterations follows the OWASP minimum for PBKDF2-HMAC-SHA256.
	defaultIterations = 600_000
	saltLen           = 16
	derivedKeyLen     = 32
	walletVersion     = 1
)

// Wallet is the on-disk format of an encrypted operator key. Iterations is
// recorded per file so the default can be raised without breaking old files.
type Wallet struct {
	Version    int    `json:"version"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeySource tells ResolveKey where to find the operator key. Exactly one of
// RawHex or WalletPath should be set; RawHex wins when both are.
type KeySource struct {
	RawHex     string
	WalletPath string
	Password   string
}

// SealKey encrypts a 32-byte hex private key under the password and returns
// the wallet file contents.
func SealKey(privateKeyHex, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: empty password")
	}
	key, err := decodeKeyHex(privateKeyHex)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: salt: %w", err)
	}

	gcm, err := newGCM(password, salt, defaultIterations)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce: %w", err)
	}

	w := Wallet{
		Version:    walletVersion,
		Iterations: defaultIterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, key, nil)),
	}
	return json.MarshalIndent(w, "", "  ")
}

// OpenKey decrypts a wallet file, returning the private key as bare hex.
func OpenKey(data []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: empty password")
	}

	var w Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		return "", fmt.Errorf("crypto: parse wallet: %w", err)
	}
	if w.Version != walletVersion {
		return "", fmt.Errorf("crypto: unsupported wallet version %d", w.Version)
	}
	if w.Iterations <= 0 {
		return "", errors.New("crypto: wallet missing kdf iterations")
	}

	salt, err := base64.StdEncoding.DecodeString(w.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(w.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(w.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decode ciphertext: %w", err)
	}

	gcm, err := newGCM(password, salt, w.Iterations)
	if err != nil {
		return "", err
	}
	key, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: open wallet (wrong password?): %w", err)
	}
	return hex.EncodeToString(key), nil
}

// ResolveKey returns the operator private key as bare hex from whichever
// source the config provides.
func ResolveKey(src KeySource) (string, error) {
	if src.RawHex != "" {
		key, err := decodeKeyHex(src.RawHex)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(key), nil
	}
	if src.WalletPath != "" {
		data, err := os.ReadFile(src.WalletPath)
		if err != nil {
			return "", fmt.Errorf("crypto: read wallet: %w", err)
		}
		return OpenKey(data, src.Password)
	}
	return "", errors.New("crypto: no key source configured")
}

func newGCM(password string, salt []byte, iterations int) (cipher.AEAD, error) {
	derived := pbkdf2.Key([]byte(password), salt, iterations, derivedKeyLen, sha256.New)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: gcm: %w", err)
	}
	return gcm, nil
}

func decodeKeyHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid key hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("crypto: expected 32-byte key, got %d", len(key))
	}
	return key, nil
}
