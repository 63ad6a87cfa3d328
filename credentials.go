package boschhttp

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const KEY_SIZE = 32

// Salt appended to the access key and prepended to the password
var MAGIC = mustDecodeHex("867845e97c4e29dce522b9a7d3a3e07b152bffadddbed7f5ffd842e9895ad1e4")

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// CredentialsStruct is the on-disk form of the login data of one gateway
type CredentialsStruct struct {
	Host      string `yaml:"host"`
	AccessKey string `yaml:"access_key"`
	Password  string `yaml:"password"`
}

// Credentials hold the derived AES-256 key of one gateway.
type Credentials struct {
	key [KEY_SIZE]byte
}

// NewCredentials derives the gateway key. Without a password the access key
// is taken to be the already derived key in hex notation.
func NewCredentials(accessKey, password string) (*Credentials, error) {
	accessKey = strings.ReplaceAll(strings.TrimSpace(accessKey), "-", "")
	if accessKey == "" {
		return nil, errors.New("missing access key")
	}

	c := new(Credentials)

	if password == "" {
		b, err := hex.DecodeString(accessKey)
		if err != nil {
			return nil, fmt.Errorf("access key is not a hex key: %w", err)
		}
		if len(b) != KEY_SIZE {
			return nil, fmt.Errorf("hex key must be %d bytes, got %d", KEY_SIZE, len(b))
		}
		copy(c.key[:], b)
		return c, nil
	}

	first := md5.Sum(append([]byte(accessKey), MAGIC...))
	second := md5.Sum(append(append([]byte{}, MAGIC...), []byte(password)...))
	copy(c.key[:md5.Size], first[:])
	copy(c.key[md5.Size:], second[:])

	return c, nil
}

// Key returns a copy of the derived key
func (c *Credentials) Key() []byte {
	return append([]byte{}, c.key[:]...)
}

// HexKey is the derived key as accepted by NewCredentials without password
func (c *Credentials) HexKey() string {
	return hex.EncodeToString(c.key[:])
}
