package repository

import (
	"errors"
	"fmt"
	"time"

	authdomain "mailboard-backend/internal/auth/domain"
	"mailboard-backend/pkg/utils/crypto"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository defines the interface for linked provider accounts.
// Refresh tokens are encrypted at rest; records returned by finders
// always carry the decrypted token ready for provider calls.
type AccountRepository interface {
	Link(acct *authdomain.LinkedAccount) error
	FindByID(id string) (*authdomain.LinkedAccount, error)
	FindByUserAndProvider(userID, provider string) (*authdomain.LinkedAccount, error)
	// FindByProviderIdentity tolerates identities not yet linked to a
	// local user by returning (nil, nil).
	FindByProviderIdentity(provider, providerID string) (*authdomain.LinkedAccount, error)
	ListByProvider(provider string) ([]*authdomain.LinkedAccount, error)
	UpdateTokens(acct *authdomain.LinkedAccount) error
}

type accountRepository struct {
	db            *gorm.DB
	encryptionKey string
}

// NewAccountRepository creates a new instance of accountRepository
func NewAccountRepository(db *gorm.DB, encryptionKey string) AccountRepository {
	return &accountRepository{db: db, encryptionKey: encryptionKey}
}

// Link upserts the account for (user, provider): an existing record has
// its identity and tokens mutated in place, never replaced.
func (r *accountRepository) Link(acct *authdomain.LinkedAccount) error {
	existing, err := r.FindByUserAndProvider(acct.UserID, acct.Provider)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.ProviderID = acct.ProviderID
		existing.AccessToken = acct.AccessToken
		existing.RefreshToken = acct.RefreshToken
		existing.TokenExpiry = acct.TokenExpiry
		*acct = *existing
		return r.UpdateTokens(acct)
	}

	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	acct.CreatedAt = time.Now()
	acct.UpdatedAt = time.Now()

	row := *acct
	if err := r.seal(&row); err != nil {
		return err
	}
	return r.db.Create(&row).Error
}

func (r *accountRepository) FindByID(id string) (*authdomain.LinkedAccount, error) {
	var acct authdomain.LinkedAccount
	err := r.db.Where("id = ?", id).First(&acct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.open(&acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *accountRepository) FindByUserAndProvider(userID, provider string) (*authdomain.LinkedAccount, error) {
	var acct authdomain.LinkedAccount
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&acct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.open(&acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *accountRepository) FindByProviderIdentity(provider, providerID string) (*authdomain.LinkedAccount, error) {
	var acct authdomain.LinkedAccount
	err := r.db.Where("provider = ? AND provider_id = ?", provider, providerID).First(&acct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.open(&acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *accountRepository) ListByProvider(provider string) ([]*authdomain.LinkedAccount, error) {
	var accts []*authdomain.LinkedAccount
	if err := r.db.Where("provider = ?", provider).Find(&accts).Error; err != nil {
		return nil, err
	}
	for _, acct := range accts {
		if err := r.open(acct); err != nil {
			return nil, err
		}
	}
	return accts, nil
}

// UpdateTokens persists refreshed credentials in place.
func (r *accountRepository) UpdateTokens(acct *authdomain.LinkedAccount) error {
	acct.UpdatedAt = time.Now()
	row := *acct
	if err := r.seal(&row); err != nil {
		return err
	}
	return r.db.Model(&authdomain.LinkedAccount{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"provider_id":   row.ProviderID,
			"access_token":  row.AccessToken,
			"refresh_token": row.RefreshToken,
			"token_expiry":  row.TokenExpiry,
			"updated_at":    row.UpdatedAt,
		}).Error
}

func (r *accountRepository) seal(acct *authdomain.LinkedAccount) error {
	if acct.RefreshToken == "" {
		return nil
	}
	enc, err := crypto.Encrypt(acct.RefreshToken, r.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}
	acct.RefreshToken = enc
	return nil
}

func (r *accountRepository) open(acct *authdomain.LinkedAccount) error {
	if acct.RefreshToken == "" {
		return nil
	}
	dec, err := crypto.Decrypt(acct.RefreshToken, r.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to decrypt refresh token: %w", err)
	}
	acct.RefreshToken = dec
	return nil
}
