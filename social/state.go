package social

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultStateTTL bounds the time between the consent redirect and the callback
const DefaultStateTTL = 10 * time.Minute

// StateManager handles OAuth state encoding and verification.
type StateManager interface {
	Encode(state *OAuthState) (string, error)
	Decode(token string) (*OAuthState, error)
}

// OAuthState is carried through the provider round trip in the state parameter
type OAuthState struct {
	Nonce     string `json:"n"`
	Provider  string `json:"p"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// EncryptedStateManager seals state with AES-GCM and signs the ciphertext
// with HMAC-SHA256.
type EncryptedStateManager struct {
	encryptionKey []byte
	hmacKey       []byte
	ttl           time.Duration
	now           func() time.Time
}

// NewEncryptedStateManager derives both keys from secret.
func NewEncryptedStateManager(secret string, ttl time.Duration) *EncryptedStateManager {
	if ttl == 0 {
		ttl = DefaultStateTTL
	}
	return &EncryptedStateManager{
		encryptionKey: deriveKey("state-encryption", secret),
		hmacKey:       deriveKey("state-signature", secret),
		ttl:           ttl,
		now:           time.Now,
	}
}

func deriveKey(label, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(label))
	return mac.Sum(nil)
}

// Encode encrypts and signs the state.
func (sm *EncryptedStateManager) Encode(state *OAuthState) (string, error) {
	if state == nil {
		return "", ErrInvalidState
	}

	now := sm.now()
	if state.IssuedAt == 0 {
		state.IssuedAt = now.Unix()
	}
	if state.ExpiresAt == 0 {
		state.ExpiresAt = now.Add(sm.ttl).Unix()
	}
	if state.Nonce == "" {
		nonce, err := generateNonce()
		if err != nil {
			return "", err
		}
		state.Nonce = nonce
	}

	plaintext, err := json.Marshal(state)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to marshal state")
	}

	gcm, err := sm.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate nonce")
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)

	mac := hmac.New(sha256.New, sm.hmacKey)
	mac.Write(ciphertext)
	signature := mac.Sum(nil)

	return base64.RawURLEncoding.EncodeToString(append(signature, ciphertext...)), nil
}

// Decode verifies and decrypts the state.
func (sm *EncryptedStateManager) Decode(token string) (*OAuthState, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(data) < sha256.Size {
		return nil, ErrInvalidState
	}

	signature, ciphertext := data[:sha256.Size], data[sha256.Size:]

	mac := hmac.New(sha256.New, sm.hmacKey)
	mac.Write(ciphertext)
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return nil, ErrInvalidState
	}

	gcm, err := sm.aead()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrInvalidState
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrInvalidState
	}

	var state OAuthState
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return nil, ErrInvalidState
	}

	if sm.now().Unix() > state.ExpiresAt {
		return nil, ErrStateExpired
	}

	return &state, nil
}

func (sm *EncryptedStateManager) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(sm.encryptionKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create GCM")
	}
	return gcm, nil
}

func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate state nonce")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
