package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	authdomain "mailboard-backend/internal/auth/domain"
	authrepo "mailboard-backend/internal/auth/repository"
	"mailboard-backend/internal/mail/board"
	maildomain "mailboard-backend/internal/mail/domain"
	maildto "mailboard-backend/internal/mail/dto"
	"mailboard-backend/internal/mail/labels"
	"mailboard-backend/internal/mail/messages"
	"mailboard-backend/internal/mail/search"
	"mailboard-backend/internal/mail/snooze"
	mailsync "mailboard-backend/internal/mail/sync"
	"mailboard-backend/pkg/sse"
)

type MailHandler struct {
	directory       *labels.Directory
	syncEngine      *mailsync.Engine
	boardEngine     *board.Engine
	snoozeScheduler *snooze.Scheduler
	searchEngine    *search.Engine
	messageService  *messages.Service
	sseManager      *sse.Manager
	provider        maildomain.MailProvider
	accountRepo     authrepo.AccountRepository
	watchTopic      string
}

func NewMailHandler(
	directory *labels.Directory,
	syncEngine *mailsync.Engine,
	boardEngine *board.Engine,
	snoozeScheduler *snooze.Scheduler,
	searchEngine *search.Engine,
	messageService *messages.Service,
	sseManager *sse.Manager,
	provider maildomain.MailProvider,
	accountRepo authrepo.AccountRepository,
	projectID, topicName string,
) *MailHandler {
	return &MailHandler{
		directory:       directory,
		syncEngine:      syncEngine,
		boardEngine:     boardEngine,
		snoozeScheduler: snoozeScheduler,
		searchEngine:    searchEngine,
		messageService:  messageService,
		sseManager:      sseManager,
		provider:        provider,
		accountRepo:     accountRepo,
		watchTopic:      fmt.Sprintf("projects/%s/topics/%s", projectID, topicName),
	}
}

// respondError maps domain sentinels onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, maildomain.ErrColumnNotFound),
		errors.Is(err, maildomain.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, maildomain.ErrAccountNotFound):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "no linked mailbox account"})
	case errors.Is(err, maildomain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "mailbox credentials expired or revoked"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// --- Labels ---

func (h *MailHandler) GetMailboxes(c *gin.Context) {
	userID := c.GetString("userID")

	mailboxes, err := h.directory.GetMailboxes(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mailboxes": mailboxes})
}

// --- Sync ---

// ForceSync runs a sync pass right now; unlike scheduled passes, the
// outcome is reported to the caller.
func (h *MailHandler) ForceSync(c *gin.Context) {
	userID := c.GetString("userID")

	count, err := h.syncEngine.SyncUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": count})
}

// --- Messages ---

func (h *MailHandler) ListMessages(c *gin.Context) {
	userID := c.GetString("userID")
	labelID := c.DefaultQuery("label", maildomain.LabelInbox)
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)

	msgs, total, err := h.messageService.List(c.Request.Context(), userID, labelID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, maildto.MessageListResponse{
		Messages: msgs,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

func (h *MailHandler) GetMessage(c *gin.Context) {
	userID := c.GetString("userID")

	msg, err := h.messageService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MailHandler) MarkRead(c *gin.Context) {
	h.modify(c, h.messageService.MarkRead)
}

func (h *MailHandler) MarkUnread(c *gin.Context) {
	h.modify(c, h.messageService.MarkUnread)
}

func (h *MailHandler) Archive(c *gin.Context) {
	h.modify(c, h.messageService.Archive)
}

func (h *MailHandler) Trash(c *gin.Context) {
	h.modify(c, h.messageService.Trash)
}

func (h *MailHandler) modify(c *gin.Context, op func(ctx context.Context, userID, messageID string) error) {
	userID := c.GetString("userID")

	if err := op(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *MailHandler) ToggleStar(c *gin.Context) {
	userID := c.GetString("userID")

	starred, err := h.messageService.ToggleStar(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"starred": starred})
}

func (h *MailHandler) SendMessage(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out := &maildomain.OutgoingMessage{
		To:      req.To,
		Cc:      req.Cc,
		Bcc:     req.Bcc,
		Subject: req.Subject,
		Body:    req.Body,
		HTML:    req.HTML,
	}
	if err := h.messageService.Send(c.Request.Context(), userID, out); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sent"})
}

// --- Watch ---

func (h *MailHandler) StartWatch(c *gin.Context) {
	userID := c.GetString("userID")

	acct, err := h.accountRepo.FindByUserAndProvider(userID, authdomain.ProviderGoogle)
	if err != nil {
		respondError(c, err)
		return
	}
	if acct == nil {
		respondError(c, maildomain.ErrAccountNotFound)
		return
	}

	if err := h.provider.Watch(c.Request.Context(), acct, h.watchTopic); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "watch started"})
}

func (h *MailHandler) StopWatch(c *gin.Context) {
	userID := c.GetString("userID")

	acct, err := h.accountRepo.FindByUserAndProvider(userID, authdomain.ProviderGoogle)
	if err != nil {
		respondError(c, err)
		return
	}
	if acct == nil {
		respondError(c, maildomain.ErrAccountNotFound)
		return
	}

	if err := h.provider.Stop(c.Request.Context(), acct); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "watch stopped"})
}

// --- Board ---

func (h *MailHandler) GetBoard(c *gin.Context) {
	userID := c.GetString("userID")

	columns, err := h.boardEngine.GetConfig(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

func (h *MailHandler) CreateColumns(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.CreateColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	columns := make([]*maildomain.KanbanColumn, 0, len(req.Columns))
	for _, col := range req.Columns {
		order := -1
		if col.Order != nil {
			order = *col.Order
		}
		columns = append(columns, &maildomain.KanbanColumn{
			ColumnID:    col.ID,
			Title:       col.Title,
			TargetLabel: col.TargetLabel,
			Color:       col.Color,
			Order:       order,
		})
	}

	created, err := h.boardEngine.CreateColumns(c.Request.Context(), userID, columns)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"columns": created})
}

func (h *MailHandler) UpdateColumn(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.UpdateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	column, err := h.boardEngine.UpdateColumn(c.Request.Context(), userID, c.Param("id"), req.ToPatch())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, column)
}

func (h *MailHandler) DeleteColumn(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.boardEngine.DeleteColumn(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *MailHandler) ReorderColumns(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.boardEngine.Reorder(c.Request.Context(), userID, req.Orders); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reordered"})
}

func (h *MailHandler) GetColumnMessages(c *gin.Context) {
	userID := c.GetString("userID")
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)

	msgs, total, err := h.boardEngine.GetColumnMessages(c.Request.Context(), userID, c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, maildto.MessageListResponse{
		Messages: msgs,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

func (h *MailHandler) MoveCard(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.MoveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.boardEngine.MoveCard(c.Request.Context(), userID, req.MessageID, req.SourceColumn, req.DestColumn)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "moved"})
}

// --- Snooze ---

func (h *MailHandler) Snooze(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.SnoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.snoozeScheduler.Snooze(c.Request.Context(), userID, req.MessageID, req.WakeUpTime)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *MailHandler) ListSnoozes(c *gin.Context) {
	userID := c.GetString("userID")
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 20)

	records, total, err := h.snoozeScheduler.ListActive(userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, maildto.SnoozeListResponse{
		Snoozes: records,
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}

// --- Search ---

func (h *MailHandler) FuzzySearch(c *gin.Context) {
	h.search(c, h.searchEngine.Fuzzy)
}

func (h *MailHandler) SemanticSearch(c *gin.Context) {
	h.search(c, h.searchEngine.Semantic)
}

func (h *MailHandler) search(c *gin.Context, op func(ctx context.Context, userID, query string, limit int) ([]*maildomain.Message, error)) {
	userID := c.GetString("userID")
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	limit := intQuery(c, "limit", 20)

	results, err := op(c.Request.Context(), userID, query, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// --- Realtime ---

func (h *MailHandler) Events(c *gin.Context) {
	userID := c.GetString("userID")
	h.sseManager.ServeHTTP(c, userID)
}
