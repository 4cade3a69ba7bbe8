package labels

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	authdomain "mailboard-backend/internal/auth/domain"
	authrepo "mailboard-backend/internal/auth/repository"
	maildomain "mailboard-backend/internal/mail/domain"
)

// logicalLabels are the workflow labels the board depends on. The directory
// creates any that are missing from the user's mailbox.
var logicalLabels = []string{
	maildomain.LogicalTodo,
	maildomain.LogicalDone,
	maildomain.LogicalSnoozed,
}

// Directory lists the labels of a user's mailbox and keeps the workflow
// labels present, so every other component can assume they exist.
type Directory struct {
	provider    maildomain.MailProvider
	accountRepo authrepo.AccountRepository
}

func NewDirectory(provider maildomain.MailProvider, accountRepo authrepo.AccountRepository) *Directory {
	return &Directory{
		provider:    provider,
		accountRepo: accountRepo,
	}
}

func (d *Directory) account(userID string) (*authdomain.LinkedAccount, error) {
	acct, err := d.accountRepo.FindByUserAndProvider(userID, authdomain.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, maildomain.ErrAccountNotFound
	}
	return acct, nil
}

// GetMailboxes returns all labels of the user's mailbox, creating the
// workflow labels first if any are missing.
func (d *Directory) GetMailboxes(ctx context.Context, userID string) ([]*maildomain.Mailbox, error) {
	acct, err := d.account(userID)
	if err != nil {
		return nil, err
	}

	mailboxes, err := d.provider.ListLabels(ctx, acct)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	missing := missingLogicalLabels(mailboxes)
	if len(missing) == 0 {
		return mailboxes, nil
	}

	for _, name := range missing {
		if _, err := d.provider.CreateLabel(ctx, acct, name); err != nil {
			if errors.Is(err, maildomain.ErrLabelExists) {
				// Another request or device created it first.
				log.Printf("[Labels] Label %s already exists for user %s", name, userID)
				continue
			}
			return nil, fmt.Errorf("failed to create label %s: %w", name, err)
		}
		log.Printf("[Labels] Created label %s for user %s", name, userID)
	}

	// Re-fetch once so the caller sees the labels that were just created.
	mailboxes, err = d.provider.ListLabels(ctx, acct)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels after creation: %w", err)
	}
	return mailboxes, nil
}

// FindLabelID resolves a label name to its provider ID. Exact name matches
// win over case-insensitive ones; an unknown name is returned unchanged so
// system label IDs like INBOX pass through.
func (d *Directory) FindLabelID(ctx context.Context, userID, name string) (string, error) {
	mailboxes, err := d.GetMailboxes(ctx, userID)
	if err != nil {
		return "", err
	}
	return ResolveLabelID(mailboxes, name), nil
}

// ResolveLabelID finds the ID for a label name within an already-fetched
// label listing.
func ResolveLabelID(mailboxes []*maildomain.Mailbox, name string) string {
	for _, mb := range mailboxes {
		if mb.Name == name {
			return mb.ID
		}
	}
	for _, mb := range mailboxes {
		if strings.EqualFold(mb.Name, name) {
			return mb.ID
		}
	}
	return name
}

func missingLogicalLabels(mailboxes []*maildomain.Mailbox) []string {
	var missing []string
	for _, name := range logicalLabels {
		found := false
		for _, mb := range mailboxes {
			if strings.EqualFold(mb.Name, name) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	return missing
}
