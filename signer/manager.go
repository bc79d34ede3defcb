package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const privateKeyPEMType = "RSA PRIVATE KEY"

// Manager lazily owns the signing key pair. The zero value is not usable;
// construct it with [New]. All methods are safe for concurrent use; the
// first caller to need the key materializes it and concurrent first callers
// block until it is ready.
type Manager struct {
	keyFile string
	keyBits int

	once sync.Once
	key  *rsa.PrivateKey
	err  error
}

// New creates a Manager that loads or generates its key at keyFile. No I/O
// happens until the first Sign, Verify, or PublicKeyPEM call.
func New(keyFile string, keyBits int) *Manager {
	return &Manager{
		keyFile: keyFile,
		keyBits: keyBits,
	}
}

// Sign returns the base64 RSASSA-PKCS1-v1_5 SHA-1 signature of payload.
func (m *Manager) Sign(payload []byte) (string, error) {
	key, err := m.ensure()
	if err != nil {
		return "", err
	}

	digest := sha1.Sum(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA1, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a signature produced by [Manager.Sign] against payload.
func (m *Manager) Verify(payload []byte, signature string) error {
	key, err := m.ensure()
	if err != nil {
		return err
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	digest := sha1.Sum(payload)
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, digest[:], sig); err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}

	return nil
}

// PublicKeyPEM returns the public half in PKIX PEM form, the shape launchers
// fetch to verify profile signatures locally.
func (m *Manager) PublicKeyPEM() (string, error) {
	key, err := m.ensure()
	if err != nil {
		return "", err
	}

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}

	block := pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(&block)), nil
}

// ensure materializes the key pair exactly once. A failed first attempt is
// sticky: the process keeps returning the same error rather than retrying
// generation with partial state on disk.
func (m *Manager) ensure() (*rsa.PrivateKey, error) {
	m.once.Do(func() {
		m.key, m.err = m.loadOrGenerate()
	})

	return m.key, m.err
}

func (m *Manager) loadOrGenerate() (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(m.keyFile)
	switch {
	case err == nil:
		return parsePrivateKeyPEM(raw)
	case errors.Is(err, os.ErrNotExist):
		return m.generateAndPersist()
	default:
		return nil, fmt.Errorf("read key file: %w", err)
	}
}

func (m *Manager) generateAndPersist() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, m.keyBits)
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}

	block := pem.Block{
		Type:  privateKeyPEMType,
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}

	if dir := filepath.Dir(m.keyFile); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create key directory: %w", err)
		}
	}
	if err := os.WriteFile(m.keyFile, pem.EncodeToMemory(&block), 0o600); err != nil {
		return nil, fmt.Errorf("persist key file: %w", err)
	}

	return key, nil
}

func parsePrivateKeyPEM(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != privateKeyPEMType {
		return nil, errors.New("key file is not an RSA private key PEM")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}

	return key, nil
}
