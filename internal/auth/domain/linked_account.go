package domain

import "time"

// ProviderGoogle is the only mailbox provider currently wired in.
const ProviderGoogle = "google"

// LinkedAccount binds a local user to one remote mailbox provider.
// At most one record exists per (user, provider). Tokens are mutated
// in place whenever the provider client surfaces refreshed credentials;
// the record itself is never re-created.
type LinkedAccount struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UserID       string    `json:"user_id" gorm:"index:idx_user_provider,unique;not null"`
	Provider     string    `json:"provider" gorm:"index:idx_user_provider,unique;index:idx_provider_identity;not null"`
	ProviderID   string    `json:"provider_id" gorm:"index:idx_provider_identity"` // provider-side identity, e.g. the gmail address
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"token_expiry"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
