package alert

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func testPSK128() string {
	key := bytes.Repeat([]byte{0x42}, 16)
	return base64.StdEncoding.EncodeToString(key)
}

func testPSK256() string {
	key := bytes.Repeat([]byte{0x24}, 32)
	return base64.StdEncoding.EncodeToString(key)
}

func TestCipherRoundTripAES128(t *testing.T) {
	c, err := NewCipher(testPSK128())
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	plaintext := []byte("N12345 alt=35000ft")
	ciphertext, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := c.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got %q, want %q", got, plaintext)
	}
}

func TestCipherRoundTripAES256(t *testing.T) {
	c, err := NewCipher(testPSK256())
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	plaintext := []byte("emergency squawk 7700")
	ciphertext, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := c.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got %q, want %q", got, plaintext)
	}
}

func TestCipherNoncesDiffer(t *testing.T) {
	c, _ := NewCipher(testPSK128())
	plaintext := []byte("same message twice")
	a, _ := c.Encrypt(plaintext)
	b, _ := c.Encrypt(plaintext)
	if bytes.Equal(a[:nonceSize], b[:nonceSize]) {
		t.Fatalf("expected distinct random nonces across calls")
	}
	if bytes.Equal(a, b) {
		t.Fatalf("expected distinct ciphertexts across calls despite same plaintext")
	}
}

func TestNewCipherRejectsBadLength(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x01}, 24))
	if _, err := NewCipher(key); err == nil {
		t.Fatalf("expected error for a 24-byte key")
	}
}

func TestNewCipherRejectsInvalidBase64(t *testing.T) {
	if _, err := NewCipher("not-valid-base64!!!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	c, _ := NewCipher(testPSK128())
	if _, err := c.Decrypt([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for ciphertext shorter than the nonce")
	}
}
