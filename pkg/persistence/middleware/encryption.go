package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/ports"
)

// envelopePrefix marks a row whose value is an encrypted variable.
const envelopePrefix = "enc:v1:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.VariableStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts every variable
// value using AES-GCM. Variable names stay in clear so rows remain addressable;
// they are bound to the ciphertext as additional data, so an envelope copied
// to another variable or session fails to open.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.VariableStore) ports.VariableStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Put(ctx context.Context, sessionID, name string, value domain.Value) error {
	plainText, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal $%s: %w", name, err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey, rowBinding(sessionID, name))
	if err != nil {
		return fmt.Errorf("failed to encrypt $%s: %w", name, err)
	}

	envelope := domain.String(envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext))
	return m.next.Put(ctx, sessionID, name, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (map[string]domain.Value, error) {
	rows, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.Value, len(rows))
	for name, row := range rows {
		s, _ := row.Str()
		encoded, ok := strings.CutPrefix(s, envelopePrefix)
		if !ok {
			// Fail secure: a plain row under an encrypting store is not trusted.
			return nil, fmt.Errorf("variable $%s is missing its encryption envelope", name)
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode $%s: %w", name, err)
		}
		plainText, err := decryptWithRotation(ciphertext, rowBinding(sessionID, name), m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt $%s: %w", name, err)
		}
		var v domain.Value
		if err := json.Unmarshal(plainText, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal decrypted $%s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID, name string) error {
	return m.next.Delete(ctx, sessionID, name)
}

func (m *encryptionMiddleware) Drop(ctx context.Context, sessionID string) error {
	return m.next.Drop(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func rowBinding(sessionID, name string) []byte {
	return []byte(sessionID + "\x00" + name)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plaintext, key, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

func decryptWithRotation(ciphertext, aad, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{activeKey}, fallbackKeys...) {
		if plain, err := decrypt(ciphertext, key, aad); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], aad)
}
