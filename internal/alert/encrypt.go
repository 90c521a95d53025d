package alert

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// nonceSize is the 96-bit CTR nonce spec §4.6 calls for (prepended to the
// ciphertext on the wire, not derived from a key schedule).
const nonceSize = 12

// Cipher encrypts/decrypts outbound payloads for a channel carrying a PSK.
// AES-CTR rather than the richer AES-CBC+PBKDF2 scheme the original used:
// spec.md names a base64 16/32-byte PSK directly, with no passphrase or
// key-derivation step, so CTR with a random nonce per message is the
// straightforward fit and avoids reimplementing PBKDF2 for no spec benefit.
type Cipher struct {
	block cipher.Block
}

// NewCipher decodes a base64 PSK and selects AES-128 or AES-256 by its
// decoded length (16 or 32 bytes), per spec §4.6.
func NewCipher(pskBase64 string) (*Cipher, error) {
	key, err := base64.StdEncoding.DecodeString(pskBase64)
	if err != nil {
		return nil, fmt.Errorf("alert: decode psk: %w", err)
	}
	switch len(key) {
	case 16, 32:
	default:
		return nil, fmt.Errorf("alert: psk must decode to 16 or 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("alert: new cipher: %w", err)
	}
	return &Cipher{block: block}, nil
}

// Encrypt prepends a fresh random nonce to the CTR-encrypted plaintext.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("alert: read nonce: %w", err)
	}

	ciphertext := make([]byte, len(plaintext))
	stream := cipher.NewCTR(c.block, ctrIV(nonce))
	stream.XORKeyStream(ciphertext, plaintext)

	out := make([]byte, 0, nonceSize+len(ciphertext))
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt splits the leading nonce from the ciphertext and reverses Encrypt.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	if len(data) < nonceSize {
		return nil, fmt.Errorf("alert: ciphertext shorter than nonce")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext := make([]byte, len(ciphertext))
	stream := cipher.NewCTR(c.block, ctrIV(nonce))
	stream.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// ctrIV expands a 96-bit nonce to the 128-bit IV cipher.NewCTR requires,
// zero-padding the trailing 32 bits as a block counter seed.
func ctrIV(nonce []byte) []byte {
	iv := make([]byte, aes.BlockSize)
	copy(iv, nonce)
	return iv
}
