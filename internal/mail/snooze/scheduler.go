package snooze

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	authdomain "mailboard-backend/internal/auth/domain"
	authrepo "mailboard-backend/internal/auth/repository"
	maildomain "mailboard-backend/internal/mail/domain"
	"mailboard-backend/internal/mail/labels"
	mailrepo "mailboard-backend/internal/mail/repository"
)

// SweepInterval is how often due snoozes are processed.
const SweepInterval = time.Minute

// Scheduler hides a message until its wake-up time and re-surfaces it.
// Snoozing swaps the inbox label for the snoozed workflow label; waking
// swaps them back. Wakes are at-least-once: a record only becomes
// PROCESSED after the labels are restored, and failures leave it ACTIVE
// for the next sweep.
type Scheduler struct {
	snoozeRepo  mailrepo.SnoozeRepository
	messageRepo mailrepo.MessageRepository
	provider    maildomain.MailProvider
	accountRepo authrepo.AccountRepository
	directory   *labels.Directory

	stop chan struct{}
	done chan struct{}
}

func NewScheduler(
	snoozeRepo mailrepo.SnoozeRepository,
	messageRepo mailrepo.MessageRepository,
	provider maildomain.MailProvider,
	accountRepo authrepo.AccountRepository,
	directory *labels.Directory,
) *Scheduler {
	return &Scheduler{
		snoozeRepo:  snoozeRepo,
		messageRepo: messageRepo,
		provider:    provider,
		accountRepo: accountRepo,
		directory:   directory,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Snooze hides the message now and records when to bring it back. The
// labels are swapped at the provider before anything is persisted; a
// record must never describe a snooze that did not take visual effect.
// The snoozed label marks the message so the board's Snoozed column can
// list it while it is out of the inbox.
func (s *Scheduler) Snooze(ctx context.Context, userID, messageID string, wakeUpTime time.Time) (*maildomain.SnoozeRecord, error) {
	acct, err := s.account(userID)
	if err != nil {
		return nil, err
	}
	snoozedID, err := s.directory.FindLabelID(ctx, userID, maildomain.LogicalSnoozed)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve snoozed label: %w", err)
	}

	if err := s.provider.ModifyMessageLabels(ctx, acct, messageID, []string{snoozedID}, []string{maildomain.LabelInbox}); err != nil {
		return nil, fmt.Errorf("failed to hide message: %w", err)
	}

	record := &maildomain.SnoozeRecord{
		ID:         uuid.New().String(),
		UserID:     userID,
		MessageID:  messageID,
		WakeUpTime: wakeUpTime,
		Status:     maildomain.SnoozeActive,
	}
	if err := s.snoozeRepo.Create(record); err != nil {
		return nil, fmt.Errorf("failed to create snooze record: %w", err)
	}

	if err := s.messageRepo.PatchLabels(userID, messageID, []string{snoozedID}, []string{maildomain.LabelInbox}); err != nil {
		log.Printf("[Snooze] Failed to patch mirrored labels for message %s: %v", messageID, err)
	}

	return record, nil
}

// ListActive returns the user's pending snoozes, soonest wake first.
func (s *Scheduler) ListActive(userID string, page, limit int) ([]*maildomain.SnoozeRecord, int, error) {
	return s.snoozeRepo.ListActive(userID, page, limit)
}

// ProcessDue runs one sweep over records whose wake-up time has passed.
// Returns how many records were processed.
func (s *Scheduler) ProcessDue(ctx context.Context) int {
	records, err := s.snoozeRepo.FindDue(time.Now())
	if err != nil {
		log.Printf("[Snooze] Failed to query due records: %v", err)
		return 0
	}
	if len(records) == 0 {
		return 0
	}

	type wakeTarget struct {
		acct      *authdomain.LinkedAccount
		snoozedID string
	}
	targets := make(map[string]*wakeTarget)
	processed := 0

	for _, record := range records {
		target, ok := targets[record.UserID]
		if !ok {
			acct, err := s.account(record.UserID)
			if err != nil {
				log.Printf("[Snooze] No usable account for user %s: %v", record.UserID, err)
				targets[record.UserID] = nil
				continue
			}
			snoozedID, err := s.directory.FindLabelID(ctx, record.UserID, maildomain.LogicalSnoozed)
			if err != nil {
				log.Printf("[Snooze] Failed to resolve snoozed label for user %s: %v", record.UserID, err)
				targets[record.UserID] = nil
				continue
			}
			target = &wakeTarget{acct: acct, snoozedID: snoozedID}
			targets[record.UserID] = target
		}
		if target == nil {
			continue
		}

		// Adding a label that is already present or removing one that is
		// already absent is a no-op at the provider, which is what makes
		// the retry safe.
		if err := s.provider.ModifyMessageLabels(ctx, target.acct, record.MessageID, []string{maildomain.LabelInbox}, []string{target.snoozedID}); err != nil {
			log.Printf("[Snooze] Failed to wake message %s: %v", record.MessageID, err)
			continue
		}

		if err := s.snoozeRepo.MarkProcessed(record.ID, time.Now()); err != nil {
			log.Printf("[Snooze] Failed to mark record %s processed: %v", record.ID, err)
			continue
		}
		processed++

		if err := s.messageRepo.PatchLabels(record.UserID, record.MessageID, []string{maildomain.LabelInbox}, []string{target.snoozedID}); err != nil {
			log.Printf("[Snooze] Failed to patch mirrored labels for message %s: %v", record.MessageID, err)
		}
	}

	if processed > 0 {
		log.Printf("[Snooze] Woke %d of %d due messages", processed, len(records))
	}
	return processed
}

// Start runs the sweep loop until Stop.
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)
		log.Printf("[Snooze] Sweep loop started, interval %s", SweepInterval)

		ticker := time.NewTicker(SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.ProcessDue(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	log.Println("[Snooze] Sweep loop stopped")
}

func (s *Scheduler) account(userID string) (*authdomain.LinkedAccount, error) {
	acct, err := s.accountRepo.FindByUserAndProvider(userID, authdomain.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, maildomain.ErrAccountNotFound
	}
	return acct, nil
}
