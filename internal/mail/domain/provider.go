package domain

import (
	"context"

	authdomain "mailboard-backend/internal/auth/domain"
)

// MailProvider is the remote mailbox RPC surface the engines consume.
// Implementations are expected to persist refreshed credentials before
// the call returns (see the token source wrapper in pkg/gmail); callers
// only ever hand over the account they loaded.
type MailProvider interface {
	ListLabels(ctx context.Context, acct *authdomain.LinkedAccount) ([]*Mailbox, error)
	// CreateLabel returns ErrLabelExists when the provider reports a
	// duplicate; callers treat that as a non-fatal race.
	CreateLabel(ctx context.Context, acct *authdomain.LinkedAccount, name string) (*Mailbox, error)
	ListMessageIDs(ctx context.Context, acct *authdomain.LinkedAccount, query string, max int64) ([]string, error)
	GetMessage(ctx context.Context, acct *authdomain.LinkedAccount, messageID string) (*Message, error)
	ModifyMessageLabels(ctx context.Context, acct *authdomain.LinkedAccount, messageID string, add, remove []string) error
	SendMessage(ctx context.Context, acct *authdomain.LinkedAccount, msg *OutgoingMessage) error
	Watch(ctx context.Context, acct *authdomain.LinkedAccount, topicName string) error
	Stop(ctx context.Context, acct *authdomain.LinkedAccount) error
}

// Embedder turns text into a fixed-length vector. Failure yields an
// empty vector, never an error; callers degrade gracefully.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// VectorIndex is the nearest-neighbor store scoped by user.
type VectorIndex interface {
	Upsert(ctx context.Context, userID, messageID, text string, embedding []float32) error
	// Query returns message IDs with cosine similarities, best first.
	Query(ctx context.Context, userID string, embedding []float32, limit int) ([]string, []float64, error)
}
