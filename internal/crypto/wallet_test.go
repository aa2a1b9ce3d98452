package crypto

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestSealOpenRoundTrip(t *testing.T) {
	data, err := SealKey("0x"+testKeyHex, "hunter2")
	if err != nil {
		t.Fatalf("SealKey: %v", err)
	}

	got, err := OpenKey(data, "hunter2")
	if err != nil {
		t.Fatalf("OpenKey: %v", err)
	}
	if got != testKeyHex {
		t.Fatalf("round trip = %s, want %s", got, testKeyHex)
	}

	if _, err := OpenKey(data, "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestSealKeyValidation(t *testing.T) {
	cases := []struct {
		name     string
		key      string
		password string
	}{
		{"empty password", testKeyHex, ""},
		{"not hex", "zz" + testKeyHex[2:], "pw"},
		{"short key", testKeyHex[:32], "pw"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := SealKey(tc.key, tc.password); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestOpenKeyRejectsBadWallet(t *testing.T) {
	data, err := SealKey(testKeyHex, "pw")
	if err != nil {
		t.Fatalf("SealKey: %v", err)
	}

	var w Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	t.Run("unknown version", func(t *testing.T) {
		bad := w
		bad.Version = 99
		raw, _ := json.Marshal(bad)
		if _, err := OpenKey(raw, "pw"); err == nil || !strings.Contains(err.Error(), "version") {
			t.Fatalf("err = %v, want version error", err)
		}
	})

	t.Run("missing iterations", func(t *testing.T) {
		bad := w
		bad.Iterations = 0
		raw, _ := json.Marshal(bad)
		if _, err := OpenKey(raw, "pw"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		bad := w
		bad.Ciphertext = bad.Nonce
		raw, _ := json.Marshal(bad)
		if _, err := OpenKey(raw, "pw"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestResolveKey(t *testing.T) {
	t.Run("raw hex wins", func(t *testing.T) {
		got, err := ResolveKey(KeySource{RawHex: "0x" + testKeyHex})
		if err != nil {
			t.Fatalf("ResolveKey: %v", err)
		}
		if got != testKeyHex {
			t.Fatalf("key = %s, want %s", got, testKeyHex)
		}
	})

	t.Run("wallet file", func(t *testing.T) {
		data, err := SealKey(testKeyHex, "pw")
		if err != nil {
			t.Fatalf("SealKey: %v", err)
		}
		path := filepath.Join(t.TempDir(), "wallet.json")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, err := ResolveKey(KeySource{WalletPath: path, Password: "pw"})
		if err != nil {
			t.Fatalf("ResolveKey: %v", err)
		}
		if got != testKeyHex {
			t.Fatalf("key = %s, want %s", got, testKeyHex)
		}
	})

	t.Run("no source", func(t *testing.T) {
		if _, err := ResolveKey(KeySource{}); err == nil {
			t.Fatal("expected error")
		}
	})
}
