package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/hkdf"
)

const (
	// keySize is the AES-256 key length
	keySize = 32

	// ivSize is the standard 96-bit GCM nonce
	ivSize = 12

	hkdfInfo = "storefront-credential-encryption"
)

var _ ports.SecretCodec = (*Codec)(nil)

// KeyLoader returns the raw key material stored in an environment slot
type KeyLoader func(slot string) (string, bool)

// EnvKeyLoader reads key slots from the process environment
func EnvKeyLoader(slot string) (string, bool) {
	return os.LookupEnv(slot)
}

// MapKeyLoader reads key slots from a fixed map
func MapKeyLoader(slots map[string]string) KeyLoader {
	return func(slot string) (string, bool) {
		v, ok := slots[slot]
		return v, ok
	}
}

// Codec encrypts access tokens with AES-256-GCM under the primary key slot and
// decrypts with the primary key followed by the legacy slots in order.
// Imported keys are cached per slot name for the lifetime of the instance.
type Codec struct {
	primarySlot string
	legacySlots []string
	load        KeyLoader
	keys        sync.Map // slot -> cipher.AEAD
	logger      zerolog.Logger
}

// Option configures a Codec
type Option func(*Codec)

// WithLogger reports slots with unusable key material
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Codec) { c.logger = logger }
}

// NewCodec creates a codec. Keys are imported lazily on first use.
func NewCodec(primarySlot string, legacySlots []string, load KeyLoader, opts ...Option) *Codec {
	if load == nil {
		load = EnvKeyLoader
	}
	slots := make([]string, 0, len(legacySlots))
	for _, s := range legacySlots {
		if s = strings.TrimSpace(s); s != "" && s != primarySlot {
			slots = append(slots, s)
		}
	}
	c := &Codec{
		primarySlot: strings.TrimSpace(primarySlot),
		legacySlots: slots,
		load:        load,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckPrimary imports the primary key so misconfiguration fails at startup
func (c *Codec) CheckPrimary() error {
	_, err := c.aead(c.primarySlot)
	return err
}

// Encrypt seals plaintext under the primary key with a fresh random IV
func (c *Codec) Encrypt(plaintext string) (domain.CredentialEnvelope, error) {
	gcm, err := c.aead(c.primarySlot)
	if err != nil {
		return domain.CredentialEnvelope{}, err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return domain.CredentialEnvelope{}, fmt.Errorf("generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	return domain.CredentialEnvelope{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
		IV:         base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// Decrypt opens an envelope with the primary key, then each legacy key in
// declared order. Unset slots and slots with unusable key material are
// skipped. It fails with ErrDecryption once every usable key has been tried,
// and with ErrConfiguration when no slot holds a usable key.
func (c *Codec) Decrypt(ciphertext, iv string) (string, domain.KeySource, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", domain.KeySource{}, fmt.Errorf("%w: malformed ciphertext", domain.ErrDecryption)
	}
	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil || len(nonce) != ivSize {
		return "", domain.KeySource{}, fmt.Errorf("%w: malformed iv", domain.ErrDecryption)
	}

	tried := 0
	var badKey error
	candidates := append([]string{c.primarySlot}, c.legacySlots...)
	for i, slot := range candidates {
		gcm, err := c.aead(slot)
		if err != nil {
			if !isUnset(err) {
				badKey = err
				c.logger.Warn().Err(err).Str("keySlot", slot).Msg("Skipping key slot with unusable key material")
			}
			continue
		}
		tried++
		plaintext, err := gcm.Open(nil, nonce, sealed, nil)
		if err != nil {
			continue
		}
		source := domain.KeySource{Kind: domain.KeyPrimary, Slot: slot}
		if i > 0 {
			source.Kind = domain.KeyLegacy
		}
		return string(plaintext), source, nil
	}

	if tried == 0 {
		if badKey != nil {
			return "", domain.KeySource{}, badKey
		}
		return "", domain.KeySource{}, fmt.Errorf("%w: no encryption keys configured", domain.ErrConfiguration)
	}
	return "", domain.KeySource{}, fmt.Errorf("%w: no configured key could open the credential", domain.ErrDecryption)
}

type unsetSlotError struct {
	slot string
}

func (e unsetSlotError) Error() string {
	return fmt.Sprintf("encryption key slot %s is not set", e.slot)
}

func (e unsetSlotError) Is(target error) bool {
	return target == domain.ErrConfiguration
}

func isUnset(err error) bool {
	_, ok := err.(unsetSlotError)
	return ok
}

func (c *Codec) aead(slot string) (cipher.AEAD, error) {
	if slot == "" {
		return nil, unsetSlotError{slot: "<empty>"}
	}
	if cached, ok := c.keys.Load(slot); ok {
		return cached.(cipher.AEAD), nil
	}

	material, ok := c.load(slot)
	if !ok || strings.TrimSpace(material) == "" {
		return nil, unsetSlotError{slot: slot}
	}
	key, err := importKey(material)
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %v", domain.ErrConfiguration, slot, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: create cipher: %v", domain.ErrConfiguration, slot, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: create gcm: %v", domain.ErrConfiguration, slot, err)
	}

	actual, _ := c.keys.LoadOrStore(slot, gcm)
	return actual.(cipher.AEAD), nil
}

// importKey accepts base64 or hex encodings of a 32-byte key, a raw 32-byte
// key, or a longer secret that is stretched with HKDF-SHA256.
func importKey(material string) ([]byte, error) {
	material = strings.TrimSpace(material)

	if decoded, err := base64.StdEncoding.DecodeString(material); err == nil && len(decoded) == keySize {
		return decoded, nil
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(material, "=")); err == nil && len(decoded) == keySize {
		return decoded, nil
	}
	if decoded, err := hex.DecodeString(material); err == nil && len(decoded) == keySize {
		return decoded, nil
	}
	if len(material) == keySize {
		return []byte(material), nil
	}
	if len(material) < keySize {
		return nil, fmt.Errorf("key material must be at least %d bytes", keySize)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(material), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}
