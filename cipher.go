package boschhttp

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

const BLOCK_SIZE = aes.BlockSize

// Cipher encrypts gateway payloads with AES in ECB mode. The mode carries no
// integrity protection and is only used because the firmware requires it.
type Cipher struct {
	block cipher.Block
}

func NewCipher(cred *Credentials) (*Cipher, error) {
	block, err := aes.NewCipher(cred.Key())
	if err != nil {
		return nil, &EncryptionError{Err: err}
	}
	return &Cipher{block: block}, nil
}

func zeroPad(b []byte) []byte {
	if rem := len(b) % BLOCK_SIZE; rem != 0 {
		b = append(b, make([]byte, BLOCK_SIZE-rem)...)
	}
	return b
}

// Encrypt pads plaintext with NUL bytes and returns base64 ciphertext
func (c *Cipher) Encrypt(plaintext []byte) []byte {
	buf := zeroPad(append([]byte{}, plaintext...))
	for i := 0; i < len(buf); i += BLOCK_SIZE {
		c.block.Encrypt(buf[i:i+BLOCK_SIZE], buf[i:i+BLOCK_SIZE])
	}

	out := make([]byte, base64.StdEncoding.EncodedLen(len(buf)))
	base64.StdEncoding.Encode(out, buf)
	return out
}

// Decrypt reverses Encrypt. Payloads of two bytes or less decode to an empty
// JSON object, which is what the gateway sends for empty resources.
func (c *Cipher) Decrypt(enc []byte) (string, error) {
	enc = bytes.TrimSpace(enc)
	if len(enc) <= 2 {
		return "{}", nil
	}

	buf := make([]byte, base64.StdEncoding.DecodedLen(len(enc)))
	n, err := base64.StdEncoding.Decode(buf, enc)
	if err != nil {
		return "", &EncryptionError{Err: fmt.Errorf("unable to decrypt: %w", err)}
	}
	buf = zeroPad(buf[:n])

	for i := 0; i < len(buf); i += BLOCK_SIZE {
		c.block.Decrypt(buf[i:i+BLOCK_SIZE], buf[i:i+BLOCK_SIZE])
	}

	buf = bytes.TrimRight(buf, "\x00")
	if !utf8.Valid(buf) {
		return "", &EncryptionError{Err: fmt.Errorf("unable to decrypt: invalid utf-8 payload")}
	}

	return string(buf), nil
}
