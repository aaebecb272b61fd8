package persistence

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adboard/backend/internal/domain/integration"
	"github.com/adboard/backend/internal/infrastructure/persistence/models"
)

// Credential sealing errors
var (
	ErrInvalidSealingKey = errors.New("persistence: sealing key must be 32 bytes")
	ErrSealedCorrupted   = errors.New("persistence: sealed credential corrupted")
)

// credentialPayload is the serialized form inside the sealed blob
type credentialPayload struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// SealedCredentialStore implements integration.CredentialStore on GORM with
// XChaCha20-Poly1305 sealing. The nonce is prepended to the ciphertext; the
// connection ID binds the blob to its row as associated data, so a sealed
// payload copied onto another connection's row fails to open.
type SealedCredentialStore struct {
	db  *gorm.DB
	key []byte
}

// NewSealedCredentialStore creates a credential store sealing with the given
// 32-byte key
func NewSealedCredentialStore(db *gorm.DB, key []byte) (*SealedCredentialStore, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidSealingKey
	}
	return &SealedCredentialStore{db: db, key: key}, nil
}

// Store seals and persists the credential, replacing any previous one
func (s *SealedCredentialStore) Store(ctx context.Context, connectionID uuid.UUID, cred integration.Credential) error {
	sealed, err := s.seal(connectionID, cred)
	if err != nil {
		return err
	}

	now := time.Now()
	model := &models.CredentialModel{
		ConnectionID: connectionID,
		Sealed:       sealed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "connection_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"sealed", "updated_at"}),
		}).
		Create(model).Error
}

// Fetch unseals and returns the credential for a connection
func (s *SealedCredentialStore) Fetch(ctx context.Context, connectionID uuid.UUID) (integration.Credential, error) {
	var model models.CredentialModel
	if err := s.db.WithContext(ctx).
		First(&model, "connection_id = ?", connectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return integration.Credential{}, integration.ErrCredentialMissing
		}
		return integration.Credential{}, err
	}
	return s.unseal(connectionID, model.Sealed)
}

// IsExpired reports whether the stored credential is expired or inside the
// expiry margin
func (s *SealedCredentialStore) IsExpired(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	cred, err := s.Fetch(ctx, connectionID)
	if err != nil {
		return false, err
	}
	return cred.IsExpired(time.Now()), nil
}

// Revoke removes the stored credential; removing an absent credential is not
// an error
func (s *SealedCredentialStore) Revoke(ctx context.Context, connectionID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Delete(&models.CredentialModel{}, "connection_id = ?", connectionID).Error
}

func (s *SealedCredentialStore) seal(connectionID uuid.UUID, cred integration.Credential) ([]byte, error) {
	plaintext, err := json.Marshal(credentialPayload{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    cred.ExpiresAt,
		Scopes:       cred.Scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize credential: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, connectionID[:]), nil
}

func (s *SealedCredentialStore) unseal(connectionID uuid.UUID, sealed []byte) (integration.Credential, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return integration.Credential{}, err
	}

	if len(sealed) < aead.NonceSize() {
		return integration.Credential{}, ErrSealedCorrupted
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, connectionID[:])
	if err != nil {
		return integration.Credential{}, fmt.Errorf("%w: %v", ErrSealedCorrupted, err)
	}

	var payload credentialPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return integration.Credential{}, fmt.Errorf("%w: %v", ErrSealedCorrupted, err)
	}

	return integration.Credential{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    payload.ExpiresAt,
		Scopes:       payload.Scopes,
	}, nil
}

// Ensure SealedCredentialStore implements CredentialStore interface
var _ integration.CredentialStore = (*SealedCredentialStore)(nil)
