package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailboard-backend/internal/auth/delivery"
	authUsecase "mailboard-backend/internal/auth/usecase"
	mailDelivery "mailboard-backend/internal/mail/delivery"
)

func SetupRoutes(r *gin.Engine, authUc authUsecase.AuthUsecase, authHandler *delivery.AuthHandler, mailHandler *mailDelivery.MailHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE endpoint
		api.GET("/events", delivery.AuthMiddleware(authUc), mailHandler.Events)

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/google", authHandler.GoogleAuth)
			auth.GET("/google/callback", authHandler.GoogleCallback)
			auth.GET("/me", delivery.AuthMiddleware(authUc), authHandler.Me)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUc))
		{
			fcm.POST("/register", authHandler.RegisterDeviceToken)
			fcm.POST("/unregister", authHandler.UnregisterDeviceToken)
		}

		// Mailbox + sync routes (protected)
		mail := api.Group("/mail")
		mail.Use(delivery.AuthMiddleware(authUc))
		{
			mail.GET("/mailboxes", mailHandler.GetMailboxes)
			mail.POST("/sync", mailHandler.ForceSync)
			mail.POST("/watch", mailHandler.StartWatch)
			mail.DELETE("/watch", mailHandler.StopWatch)
		}

		// Message routes (protected)
		messages := api.Group("/messages")
		messages.Use(delivery.AuthMiddleware(authUc))
		{
			messages.GET("", mailHandler.ListMessages)
			messages.GET("/:id", mailHandler.GetMessage)
			messages.PATCH("/:id/read", mailHandler.MarkRead)
			messages.PATCH("/:id/unread", mailHandler.MarkUnread)
			messages.PATCH("/:id/star", mailHandler.ToggleStar)
			messages.POST("/:id/archive", mailHandler.Archive)
			messages.POST("/:id/trash", mailHandler.Trash)
			messages.POST("/send", mailHandler.SendMessage)
		}

		// Kanban board routes (protected)
		board := api.Group("/board")
		board.Use(delivery.AuthMiddleware(authUc))
		{
			board.GET("", mailHandler.GetBoard)
			board.POST("/columns", mailHandler.CreateColumns)
			board.PUT("/columns/orders", mailHandler.ReorderColumns)
			board.PUT("/columns/:id", mailHandler.UpdateColumn)
			board.DELETE("/columns/:id", mailHandler.DeleteColumn)
			board.GET("/columns/:id/messages", mailHandler.GetColumnMessages)
			board.POST("/move", mailHandler.MoveCard)
		}

		// Snooze routes (protected)
		snooze := api.Group("/snooze")
		snooze.Use(delivery.AuthMiddleware(authUc))
		{
			snooze.POST("", mailHandler.Snooze)
			snooze.GET("", mailHandler.ListSnoozes)
		}

		// Search routes (protected)
		search := api.Group("/search")
		search.Use(delivery.AuthMiddleware(authUc))
		{
			search.GET("/fuzzy", mailHandler.FuzzySearch)
			search.GET("/semantic", mailHandler.SemanticSearch)
		}
	}
}
