package messages

import (
	"context"
	"fmt"
	"log"

	authdomain "mailboard-backend/internal/auth/domain"
	authrepo "mailboard-backend/internal/auth/repository"
	maildomain "mailboard-backend/internal/mail/domain"
	mailrepo "mailboard-backend/internal/mail/repository"
)

// Service exposes single-message operations. Every mutation goes to the
// provider first and then patches the local mirror with the same delta, so
// the mirror is at worst briefly stale, never ahead of provider truth.
type Service struct {
	provider    maildomain.MailProvider
	accountRepo authrepo.AccountRepository
	messageRepo mailrepo.MessageRepository
}

func NewService(provider maildomain.MailProvider, accountRepo authrepo.AccountRepository, messageRepo mailrepo.MessageRepository) *Service {
	return &Service{
		provider:    provider,
		accountRepo: accountRepo,
		messageRepo: messageRepo,
	}
}

func (s *Service) account(userID string) (*authdomain.LinkedAccount, error) {
	acct, err := s.accountRepo.FindByUserAndProvider(userID, authdomain.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, maildomain.ErrAccountNotFound
	}
	return acct, nil
}

// List returns mirrored messages carrying the given label, newest first.
func (s *Service) List(ctx context.Context, userID, labelID string, limit, offset int) ([]*maildomain.Message, int, error) {
	return s.messageRepo.ListByLabel(userID, labelID, limit, offset)
}

// Get returns one mirrored message.
func (s *Service) Get(ctx context.Context, userID, messageID string) (*maildomain.Message, error) {
	msg, err := s.messageRepo.GetByMessageID(userID, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, maildomain.ErrMessageNotFound
	}
	return msg, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, messageID string) error {
	return s.modify(ctx, userID, messageID, nil, []string{maildomain.LabelUnread})
}

func (s *Service) MarkUnread(ctx context.Context, userID, messageID string) error {
	return s.modify(ctx, userID, messageID, []string{maildomain.LabelUnread}, nil)
}

// ToggleStar flips the starred state based on the mirrored label set.
func (s *Service) ToggleStar(ctx context.Context, userID, messageID string) (bool, error) {
	msg, err := s.Get(ctx, userID, messageID)
	if err != nil {
		return false, err
	}

	if msg.IsStarred() {
		return false, s.modify(ctx, userID, messageID, nil, []string{maildomain.LabelStarred})
	}
	return true, s.modify(ctx, userID, messageID, []string{maildomain.LabelStarred}, nil)
}

// Archive removes the message from the inbox without deleting it.
func (s *Service) Archive(ctx context.Context, userID, messageID string) error {
	return s.modify(ctx, userID, messageID, nil, []string{maildomain.LabelInbox})
}

// Trash moves the message to the provider's trash.
func (s *Service) Trash(ctx context.Context, userID, messageID string) error {
	return s.modify(ctx, userID, messageID, []string{maildomain.LabelTrash}, []string{maildomain.LabelInbox})
}

func (s *Service) modify(ctx context.Context, userID, messageID string, add, remove []string) error {
	acct, err := s.account(userID)
	if err != nil {
		return err
	}

	if err := s.provider.ModifyMessageLabels(ctx, acct, messageID, add, remove); err != nil {
		return fmt.Errorf("failed to modify message: %w", err)
	}

	if err := s.messageRepo.PatchLabels(userID, messageID, add, remove); err != nil {
		// Provider truth already changed; the next sync reconciles.
		log.Printf("[Messages] Failed to patch mirrored labels for message %s: %v", messageID, err)
	}
	return nil
}

// Send composes and sends a message from the user's linked account.
func (s *Service) Send(ctx context.Context, userID string, out *maildomain.OutgoingMessage) error {
	acct, err := s.account(userID)
	if err != nil {
		return err
	}
	if out.From == "" {
		out.From = acct.ProviderID
	}
	return s.provider.SendMessage(ctx, acct, out)
}
