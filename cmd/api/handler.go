package api

import (
	"github.com/gin-gonic/gin"

	"mailboard-backend/internal/auth/delivery"
	authUsecase "mailboard-backend/internal/auth/usecase"
	mailDelivery "mailboard-backend/internal/mail/delivery"
)

type Handler struct {
	authUsecase authUsecase.AuthUsecase
	authHandler *delivery.AuthHandler
	mailHandler *mailDelivery.MailHandler
}

func NewHandler(authUc authUsecase.AuthUsecase, authHandler *delivery.AuthHandler, mailHandler *mailDelivery.MailHandler) *Handler {
	return &Handler{
		authUsecase: authUc,
		authHandler: authHandler,
		mailHandler: mailHandler,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.authHandler, h.mailHandler)

	return r.Run(addr)
}
