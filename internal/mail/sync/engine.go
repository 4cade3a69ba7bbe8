package sync

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"unicode/utf8"

	authdomain "mailboard-backend/internal/auth/domain"
	authrepo "mailboard-backend/internal/auth/repository"
	maildomain "mailboard-backend/internal/mail/domain"
	mailrepo "mailboard-backend/internal/mail/repository"
)

const (
	// pageSize bounds how many messages one sync pass pulls. Anything
	// older is picked up by later passes or was mirrored already.
	pageSize = 20
	// fetchConcurrency bounds parallel message downloads per pass.
	fetchConcurrency = 10
	// embedTextLimit caps the text sent to the embedding model.
	embedTextLimit = 8500
)

// Engine mirrors recent messages of linked mailboxes into local storage.
// Each pass is incremental: it asks the provider only for messages newer
// than the latest one already mirrored.
type Engine struct {
	provider    maildomain.MailProvider
	accountRepo authrepo.AccountRepository
	messageRepo mailrepo.MessageRepository
	embedder    maildomain.Embedder
	index       maildomain.VectorIndex

	mu      sync.Mutex
	running map[string]bool
}

func NewEngine(
	provider maildomain.MailProvider,
	accountRepo authrepo.AccountRepository,
	messageRepo mailrepo.MessageRepository,
	embedder maildomain.Embedder,
	index maildomain.VectorIndex,
) *Engine {
	return &Engine{
		provider:    provider,
		accountRepo: accountRepo,
		messageRepo: messageRepo,
		embedder:    embedder,
		index:       index,
		running:     make(map[string]bool),
	}
}

// tryAcquire marks a user's sync as running. Returns false when a pass for
// the same user is already in flight.
func (e *Engine) tryAcquire(userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[userID] {
		return false
	}
	e.running[userID] = true
	return true
}

func (e *Engine) release(userID string) {
	e.mu.Lock()
	delete(e.running, userID)
	e.mu.Unlock()
}

// SyncUser runs one incremental sync pass for the user. A pass already in
// flight for the same user makes this call a no-op. Returns the number of
// messages mirrored.
func (e *Engine) SyncUser(ctx context.Context, userID string) (int, error) {
	if !e.tryAcquire(userID) {
		log.Printf("[Sync] Pass already running for user %s, skipping", userID)
		return 0, nil
	}
	defer e.release(userID)

	acct, err := e.accountRepo.FindByUserAndProvider(userID, authdomain.ProviderGoogle)
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, maildomain.ErrAccountNotFound
	}

	return e.syncAccount(ctx, acct)
}

func (e *Engine) syncAccount(ctx context.Context, acct *authdomain.LinkedAccount) (int, error) {
	query := ""
	since, ok, err := e.messageRepo.LatestMessageDate(acct.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to read sync high-water mark: %w", err)
	}
	if ok {
		// Gmail's after: operator is inclusive at second granularity, so
		// the newest mirrored message comes back again; the upsert keyed
		// by message ID absorbs it.
		query = fmt.Sprintf("after:%d", since.Unix())
	}

	ids, err := e.provider.ListMessageIDs(ctx, acct, query, pageSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list messages: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	messages := e.fetchMessages(ctx, acct, ids)
	if len(messages) == 0 {
		return 0, nil
	}

	// Newest first, matching the provider's listing order.
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Date.After(messages[j].Date)
	})

	for _, msg := range messages {
		e.embedMessage(ctx, msg)
	}

	if err := e.messageRepo.BulkUpsert(messages); err != nil {
		return 0, fmt.Errorf("failed to store messages: %w", err)
	}

	if e.index != nil {
		for _, msg := range messages {
			if len(msg.Embedding) == 0 {
				continue
			}
			if err := e.index.Upsert(ctx, msg.UserID, msg.MessageID, embedText(msg), msg.Embedding); err != nil {
				log.Printf("[Sync] Failed to index message %s: %v", msg.MessageID, err)
			}
		}
	}

	log.Printf("[Sync] Mirrored %d messages for user %s", len(messages), acct.UserID)
	return len(messages), nil
}

// fetchMessages downloads full messages concurrently. A message that fails
// to download is logged and dropped from the pass; the next pass retries it
// because the high-water mark only advances past stored messages.
func (e *Engine) fetchMessages(ctx context.Context, acct *authdomain.LinkedAccount, ids []string) []*maildomain.Message {
	type result struct {
		msg *maildomain.Message
		err error
		id  string
	}

	results := make(chan result, len(ids))
	semaphore := make(chan struct{}, fetchConcurrency)

	for _, id := range ids {
		go func(messageID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			msg, err := e.provider.GetMessage(ctx, acct, messageID)
			results <- result{msg: msg, err: err, id: messageID}
		}(id)
	}

	messages := make([]*maildomain.Message, 0, len(ids))
	for range ids {
		r := <-results
		if r.err != nil {
			log.Printf("[Sync] Failed to fetch message %s: %v", r.id, r.err)
			continue
		}
		if r.msg != nil {
			messages = append(messages, r.msg)
		}
	}
	return messages
}

func (e *Engine) embedMessage(ctx context.Context, msg *maildomain.Message) {
	if e.embedder == nil {
		return
	}
	msg.Embedding = e.embedder.Embed(ctx, embedText(msg))
}

func embedText(msg *maildomain.Message) string {
	text := fmt.Sprintf("Subject: %s\nFrom: %s\n\n%s", msg.Subject, msg.From, msg.Body)
	if len(text) > embedTextLimit {
		// Back off to a rune boundary so the cut never leaves a broken
		// UTF-8 sequence at the end.
		cut := embedTextLimit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

// SyncAll runs one pass for every linked account. A failure for one user is
// logged and does not stop the others.
func (e *Engine) SyncAll(ctx context.Context) {
	accounts, err := e.accountRepo.ListByProvider(authdomain.ProviderGoogle)
	if err != nil {
		log.Printf("[Sync] Failed to list linked accounts: %v", err)
		return
	}

	for _, acct := range accounts {
		e.syncOne(ctx, acct.UserID)
	}
}

func (e *Engine) syncOne(ctx context.Context, userID string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Sync] Panic during sync for user %s: %v", userID, r)
		}
	}()

	if _, err := e.SyncUser(ctx, userID); err != nil {
		log.Printf("[Sync] Sync failed for user %s: %v", userID, err)
	}
}
