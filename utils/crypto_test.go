package utils

import (
	"os"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	os.Setenv("DATA_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	defer os.Unsetenv("DATA_ENCRYPTION_KEY")

	plain := "JBSWY3DPEHPK3PXP"
	enc, err := Encrypt([]byte(plain))
	if err != nil {
		t.Fatal(err)
	}
	if enc == plain {
		t.Fatal("ciphertext equals plaintext")
	}

	dec, err := Decrypt(enc)
	if err != nil {
		t.Fatal(err)
	}
	if string(dec) != plain {
		t.Errorf("got %q, want %q", dec, plain)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	os.Setenv("DATA_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	defer os.Unsetenv("DATA_ENCRYPTION_KEY")

	if _, err := Decrypt("zzzz-not-base64"); err == nil {
		t.Error("garbage ciphertext must be rejected")
	}
}
