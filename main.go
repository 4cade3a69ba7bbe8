package main

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/oauth2"

	api "mailboard-backend/cmd/api"
	authdomain "mailboard-backend/internal/auth/domain"
	authDelivery "mailboard-backend/internal/auth/delivery"
	authRepo "mailboard-backend/internal/auth/repository"
	authUsecase "mailboard-backend/internal/auth/usecase"
	maildomain "mailboard-backend/internal/mail/domain"
	mailDelivery "mailboard-backend/internal/mail/delivery"
	"mailboard-backend/internal/mail/board"
	"mailboard-backend/internal/mail/labels"
	"mailboard-backend/internal/mail/messages"
	mailRepo "mailboard-backend/internal/mail/repository"
	"mailboard-backend/internal/mail/search"
	"mailboard-backend/internal/mail/snooze"
	mailsync "mailboard-backend/internal/mail/sync"
	"mailboard-backend/internal/notification"
	"mailboard-backend/pkg/chroma"
	"mailboard-backend/pkg/config"
	"mailboard-backend/pkg/database"
	"mailboard-backend/pkg/embed"
	"mailboard-backend/pkg/fcm"
	"mailboard-backend/pkg/gmail"
	"mailboard-backend/pkg/sse"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&authdomain.DeviceToken{},
		&authdomain.LinkedAccount{},
		&maildomain.Message{},
		&maildomain.KanbanColumn{},
		&maildomain.SnoozeRecord{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	accountRepo := authRepo.NewAccountRepository(db, cfg.EncryptionKey)
	deviceRepo := authRepo.NewDeviceTokenRepository(db)
	messageRepo := mailRepo.NewMessageRepository(db)
	columnRepo := mailRepo.NewKanbanColumnRepository(db)
	snoozeRepo := mailRepo.NewSnoozeRepository(db)

	// Initialize SSE Manager
	sseManager := sse.NewManager()

	// Gmail service persists refreshed OAuth tokens back to the account row
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, func(accountID string, token *oauth2.Token) error {
		acct, err := accountRepo.FindByID(accountID)
		if err != nil {
			return err
		}
		if acct == nil {
			return fmt.Errorf("account %s not found", accountID)
		}
		acct.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			acct.RefreshToken = token.RefreshToken
		}
		acct.TokenExpiry = token.Expiry
		return accountRepo.UpdateTokens(acct)
	})

	// Embedding + vector index are optional; search degrades to fuzzy
	// matching when either is missing.
	var embedder maildomain.Embedder
	if cfg.GeminiAPIKey != "" {
		embedder = embed.NewGeminiEmbedder(cfg.GeminiAPIKey)
	} else {
		log.Println("[WARN] GEMINI_API_KEY not set, semantic search disabled")
	}

	var index maildomain.VectorIndex
	if embedder != nil {
		chromaClient, err := chroma.NewClient(cfg.ChromaURL, cfg.ChromaCollection)
		if err != nil {
			log.Printf("[WARN] Failed to initialize Chroma client (semantic search disabled): %v", err)
		} else {
			index = chromaClient
			log.Println("Chroma client initialized successfully")
		}
	}

	// Mail engines
	directory := labels.NewDirectory(gmailService, accountRepo)
	syncEngine := mailsync.NewEngine(gmailService, accountRepo, messageRepo, embedder, index)
	boardEngine := board.NewEngine(columnRepo, messageRepo, directory, gmailService, accountRepo)
	snoozeScheduler := snooze.NewScheduler(snoozeRepo, messageRepo, gmailService, accountRepo, directory)
	searchEngine := search.NewEngine(messageRepo, embedder, index)
	messageService := messages.NewService(gmailService, accountRepo, messageRepo)

	// Background schedulers
	syncScheduler := mailsync.NewScheduler(syncEngine, cfg.SyncInterval)
	syncScheduler.Start()
	snoozeScheduler.Start()

	// Notification service (Pub/Sub push); only started when a project is
	// configured.
	if cfg.GoogleProjectID != "" {
		var fcmClient *fcm.Client
		if cfg.FirebaseCredFile != "" {
			fcmClient, err = fcm.NewClient(cfg.FirebaseCredFile)
			if err != nil {
				log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
				fcmClient = nil
			}
		}

		notifService, err := notification.NewService(
			cfg.GoogleProjectID, cfg.PubSubTopic, cfg.PubSubSubscription, cfg.GoogleCredFile,
			sseManager, accountRepo, deviceRepo, fcmClient, syncEngine,
		)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Println("[WARN] GOOGLE_PROJECT_ID not configured, notification service disabled")
	}

	// Initialize use cases and handlers
	authUc := authUsecase.NewAuthUsecase(userRepo, accountRepo, cfg)
	authHandler := authDelivery.NewAuthHandler(authUc, deviceRepo)
	mailHandler := mailDelivery.NewMailHandler(
		directory, syncEngine, boardEngine, snoozeScheduler, searchEngine,
		messageService, sseManager, gmailService, accountRepo,
		cfg.GoogleProjectID, cfg.PubSubTopic,
	)

	handler := api.NewHandler(authUc, authHandler, mailHandler)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
