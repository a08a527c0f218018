package keyring

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/storage"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Backend persists opaque credential blobs.
type Backend interface {
	SaveCredential(ctx context.Context, key string, value []byte) error
	Credential(ctx context.Context, key string) ([]byte, error)
	DeleteCredential(ctx context.Context, key string) error
}

// Sealed encrypts values with NaCl secretbox before handing them to a Backend, so the backend
// only ever sees ciphertext.
type Sealed struct {
	backend Backend
	key     [32]byte
}

func NewSealed(backend Backend, passphrase string) (*Sealed, error) {
	if passphrase == "" {
		return nil, errors.New("keyring: empty sealing passphrase")
	}
	return &Sealed{
		backend: backend,
		key:     sha256.Sum256([]byte(passphrase)),
	}, nil
}

func (s *Sealed) Save(ctx context.Context, key, value string) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("keyring.Sealed.Save: %w", err)
	}

	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)

	if err := s.backend.SaveCredential(ctx, key, box); err != nil {
		return fmt.Errorf("keyring.Sealed.Save: %w", err)
	}
	return nil
}

func (s *Sealed) Retrieve(ctx context.Context, key string) (string, error) {
	box, err := s.backend.Credential(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrCredentialNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keyring.Sealed.Retrieve: %w", err)
	}

	if len(box) < nonceSize+secretbox.Overhead {
		return "", ErrInvalidData
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])

	value, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrInvalidData
	}
	return string(value), nil
}

func (s *Sealed) Delete(ctx context.Context, key string) error {
	if err := s.backend.DeleteCredential(ctx, key); err != nil {
		return fmt.Errorf("keyring.Sealed.Delete: %w", err)
	}
	return nil
}
