package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	authdomain "mailboard-backend/internal/auth/domain"
	authrepo "mailboard-backend/internal/auth/repository"
	mailsync "mailboard-backend/internal/mail/sync"
	"mailboard-backend/pkg/fcm"
	"mailboard-backend/pkg/sse"
)

// NewMailEvent is the SSE event name pushed after a webhook-triggered sync.
const NewMailEvent = "NEW_MAIL"

// GmailNotification is the payload Gmail publishes to the Pub/Sub topic
// registered via users.watch.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service consumes provider push notifications, triggers a sync pass for
// the affected user, and fans the result out over SSE and FCM.
type Service struct {
	pubsubClient *pubsub.Client
	sseManager   *sse.Manager
	accountRepo  authrepo.AccountRepository
	deviceRepo   authrepo.DeviceTokenRepository
	fcmClient    *fcm.Client
	syncEngine   *mailsync.Engine
	topicName    string
	subName      string

	// Gmail redelivers notifications; the last seen historyId per user
	// filters duplicates.
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(
	projectID, topicName, subName, credentialsFile string,
	sseManager *sse.Manager,
	accountRepo authrepo.AccountRepository,
	deviceRepo authrepo.DeviceTokenRepository,
	fcmClient *fcm.Client,
	syncEngine *mailsync.Engine,
) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Service{
		pubsubClient:  client,
		sseManager:    sseManager,
		accountRepo:   accountRepo,
		deviceRepo:    deviceRepo,
		fcmClient:     fcmClient,
		syncEngine:    syncEngine,
		topicName:     topicName,
		subName:       subName,
		lastHistoryID: make(map[string]uint64),
	}, nil
}

// Start blocks receiving notifications until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service, topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	acct, err := s.accountRepo.FindByProviderIdentity(authdomain.ProviderGoogle, notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding account for %s: %v", notification.EmailAddress, err)
		return
	}
	if acct == nil {
		// Watch registrations can outlive their local account.
		log.Printf("[PubSub] No linked account for %s, ignoring", notification.EmailAddress)
		return
	}

	if s.isDuplicate(acct.UserID, notification.HistoryID) {
		return
	}

	count, err := s.syncEngine.SyncUser(ctx, acct.UserID)
	if err != nil {
		log.Printf("[PubSub] Sync after notification failed for user %s: %v", acct.UserID, err)
		return
	}
	if count == 0 {
		return
	}

	s.sseManager.SendToUser(acct.UserID, NewMailEvent, map[string]interface{}{
		"email":     notification.EmailAddress,
		"historyId": notification.HistoryID,
		"count":     count,
		"timestamp": time.Now(),
	})

	go s.pushToDevices(acct.UserID, notification, count)
}

func (s *Service) isDuplicate(userID string, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastHistoryID[userID]; ok && historyID <= last {
		log.Printf("[PubSub] Skipping duplicate notification for user %s (historyId %d <= %d)", userID, historyID, last)
		return true
	}
	s.lastHistoryID[userID] = historyID
	return false
}

func (s *Service) pushToDevices(userID string, notification GmailNotification, count int) {
	if s.fcmClient == nil || s.deviceRepo == nil {
		return
	}

	tokens, err := s.deviceRepo.GetTokensByUserID(userID)
	if err != nil {
		log.Printf("[FCM] Error loading tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	body := "You have new mail in your inbox"
	if count > 1 {
		body = fmt.Sprintf("You have %d new messages", count)
	}

	failed, err := s.fcmClient.SendToDevices(context.Background(), tokenStrings, fcm.NotificationData{
		Title: "New mail",
		Body:  body,
		Data: map[string]string{
			"type":      NewMailEvent,
			"email":     notification.EmailAddress,
			"historyId": fmt.Sprintf("%d", notification.HistoryID),
		},
	})
	if err != nil {
		log.Printf("[FCM] Error sending notifications: %v", err)
		return
	}

	for _, token := range failed {
		if err := s.deviceRepo.DeleteToken(token); err != nil {
			log.Printf("[FCM] Failed to prune stale token: %v", err)
		}
	}
}
