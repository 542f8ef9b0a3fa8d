package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

// envelopeFile is the encrypted JSON blob holding devices, metadata,
// auth state, and settings. version/timestamp are carried so a restore
// can validate compatibility before applying (spec §4.7).
type envelopeFile struct {
	Version   int             `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Devices   []DeviceConfig  `json:"devices"`
	Channels  []ChannelConfig `json:"channels"`
}

const envelopeVersion = 1

// pbkdf2Iterations and related crypto parameters mirror the teacher's
// internal/crypto envelope format: a random salt and nonce stored
// alongside the ciphertext, key derived with PBKDF2-SHA256.
const (
	pbkdf2Iterations = 200_000
	pbkdf2KeyLen     = chacha20poly1305.KeySize
	saltLen          = 16
)

func envelopePath(dataDir string) string {
	return filepath.Join(dataDir, "panfm.enc")
}

// loadEnvelope reads and decrypts the on-disk envelope, returning nil if
// it does not yet exist (first run, before the operator has configured
// anything).
func loadEnvelope(dataDir string) (*envelopeFile, error) {
	path := envelopePath(dataDir)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	passphrase := os.Getenv("PANFM_CONFIG_PASSPHRASE")
	if passphrase == "" {
		return nil, fmt.Errorf("PANFM_CONFIG_PASSPHRASE is required to decrypt %s", path)
	}

	plaintext, err := decryptEnvelope(raw, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt envelope: %w", err)
	}

	var env envelopeFile
	if err := json.Unmarshal(plaintext, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	return &env, nil
}

// SaveEnvelope encrypts and atomically writes the given devices/channels
// to the envelope file, used by the config-change path (operator edits).
func SaveEnvelope(dataDir string, devices []DeviceConfig, channels []ChannelConfig, passphrase string) error {
	env := envelopeFile{
		Version:   envelopeVersion,
		Timestamp: time.Now(),
		Devices:   devices,
		Channels:  channels,
	}
	plaintext, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ciphertext, err := encryptEnvelope(plaintext, passphrase)
	if err != nil {
		return err
	}

	path := envelopePath(dataDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, ciphertext, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
}

func encryptEnvelope(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(passphrase, salt)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return []byte(base64.StdEncoding.EncodeToString(out)), nil
}

func decryptEnvelope(encoded []byte, passphrase string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, err
	}
	if len(raw) < saltLen {
		return nil, fmt.Errorf("envelope truncated")
	}
	salt := raw[:saltLen]
	key := deriveKey(passphrase, salt)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	rest := raw[saltLen:]
	if len(rest) < aead.NonceSize() {
		return nil, fmt.Errorf("envelope truncated")
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
