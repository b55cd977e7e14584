// Package crypto seals packed artifacts with a passphrase. The sealed file
// format is self-contained: magic, argon2id salt, XChaCha20-Poly1305 nonce,
// ciphertext. Decrypt exists to verify seals; the archiver itself offers no
// restore path.
package crypto

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptedSuffix is the fixed suffix appended to a packed artifact's name
// when it is encrypted. The pipeline may not choose any other target name.
const EncryptedSuffix = ".enc"

var (
	// ErrInvalidDestination means the destination path is not the source
	// path plus EncryptedSuffix. This is a caller bug, not a cipher failure.
	ErrInvalidDestination = errors.New("encrypted artifact name must be the source name plus " + EncryptedSuffix)

	// ErrPassphraseLength is a defensive re-check; the run-level config
	// validation is the authoritative gate.
	ErrPassphraseLength = errors.New("passphrase length out of bounds")

	// ErrDecryptFailed covers wrong passphrase and tampered ciphertext;
	// the two are indistinguishable by construction.
	ErrDecryptFailed = errors.New("decryption failed")
)

const (
	minPassphraseLen = 8
	maxPassphraseLen = 56

	saltLen = 16
	keyLen  = chacha20poly1305.KeySize

	// argon2id parameters
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var magic = []byte("BARC1")

// Encrypter transforms a packed artifact into an encrypted one.
type Encrypter interface {
	Encrypt(ctx context.Context, srcPath, dstPath, passphrase string) error
}

// Sealer is the passphrase Encrypter.
type Sealer struct{}

// NewSealer creates a Sealer.
func NewSealer() *Sealer { return &Sealer{} }

var _ Encrypter = (*Sealer)(nil)

// Encrypt seals srcPath into dstPath. dstPath must equal
// srcPath + EncryptedSuffix; anything else is rejected before the cipher is
// touched. The source file is left in place.
func (s *Sealer) Encrypt(_ context.Context, srcPath, dstPath, passphrase string) error {
	if dstPath != srcPath+EncryptedSuffix {
		return fmt.Errorf("%w: got %q for source %q", ErrInvalidDestination, dstPath, srcPath)
	}
	if n := len(passphrase); n < minPassphraseLen || n > maxPassphraseLen {
		return fmt.Errorf("%w: got %d", ErrPassphraseLength, len(passphrase))
	}

	plain, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, len(magic)+saltLen+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plain, magic)

	if err := os.WriteFile(dstPath, out, 0o600); err != nil {
		_ = os.Remove(dstPath)
		return fmt.Errorf("write encrypted artifact: %w", err)
	}
	return nil
}

// Decrypt opens a sealed file and writes the plaintext to dstPath.
func (s *Sealer) Decrypt(_ context.Context, srcPath, dstPath, passphrase string) error {
	sealed, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read encrypted artifact: %w", err)
	}

	headerLen := len(magic) + saltLen + chacha20poly1305.NonceSizeX
	if len(sealed) < headerLen || string(sealed[:len(magic)]) != string(magic) {
		return ErrDecryptFailed
	}
	salt := sealed[len(magic) : len(magic)+saltLen]
	nonce := sealed[len(magic)+saltLen : headerLen]
	ciphertext := sealed[headerLen:]

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	plain, err := aead.Open(nil, nonce, ciphertext, magic)
	if err != nil {
		return ErrDecryptFailed
	}

	if err := os.WriteFile(dstPath, plain, 0o600); err != nil {
		return fmt.Errorf("write decrypted artifact: %w", err)
	}
	return nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyLen)
}
