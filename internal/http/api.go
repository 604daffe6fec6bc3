package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"giftbook/internal/auth"
	"giftbook/internal/domain"
	"giftbook/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	ledger  service.LedgerService
	audit   service.AuditService
	tokens  *auth.TokenManager
	db      Pinger
	logger  *logrus.Logger
	metrics *Metrics
}

func NewHandler(users service.UserService, ledger service.LedgerService, audit service.AuditService, tokens *auth.TokenManager, db Pinger, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		users:   users,
		ledger:  ledger,
		audit:   audit,
		tokens:  tokens,
		db:      db,
		logger:  logger,
		metrics: NewMetrics(),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestIDMiddleware(), h.metrics.middleware(), requestLogger(h.logger), corsMiddleware(), bodyLimitMiddleware(MaxBodyBytes))

	router.GET("/metrics", h.metrics.handler())

	api := router.Group("/api")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.GET("/health", h.health)

		authed := api.Group("", h.requireAuth())
		authed.POST("/change-password", h.changePassword)
		authed.GET("/verify", h.verify)
		authed.GET("/gifts", h.listGifts)
		authed.POST("/gifts", h.addGift)
		authed.POST("/gifts/clear", h.clearGifts)
		authed.DELETE("/gifts/:id", h.deleteGift)
		authed.GET("/logs", h.listLogs)
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type addGiftRequest struct {
	Name   string           `json:"name"`
	Amount *decimal.Decimal `json:"amount"`
	Type   string           `json:"type"`
	Remark string           `json:"remark"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	if _, err := h.users.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrCredentialsRequired):
			fail(c, http.StatusBadRequest, msgCredentialsEmpty)
		case errors.Is(err, service.ErrPasswordTooShort):
			fail(c, http.StatusBadRequest, msgPasswordTooShort)
		case errors.Is(err, service.ErrPasswordTooLong):
			fail(c, http.StatusBadRequest, msgPasswordTooLong)
		case errors.Is(err, service.ErrUsernameTaken):
			fail(c, http.StatusBadRequest, msgUsernameTaken)
		default:
			h.serverError(c, err, "register")
		}
		return
	}

	success(c, msgRegistered, nil)
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	session, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCredentialsRequired):
			fail(c, http.StatusBadRequest, msgCredentialsEmpty)
		case errors.Is(err, service.ErrUserNotFound):
			fail(c, http.StatusUnauthorized, msgUsernameNotFound)
		case errors.Is(err, service.ErrWrongPassword):
			fail(c, http.StatusUnauthorized, msgWrongPassword)
		default:
			h.serverError(c, err, "login")
		}
		return
	}

	success(c, msgLoggedIn, gin.H{
		"token": session.Token,
		"user":  UserResponse{ID: session.User.ID, Username: session.User.Username},
	})
}

func (h *Handler) changePassword(c *gin.Context) {
	claims, _ := claimsFrom(c)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), claims.UserID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordsRequired):
			fail(c, http.StatusBadRequest, msgPasswordsEmpty)
		case errors.Is(err, service.ErrPasswordTooShort):
			fail(c, http.StatusBadRequest, msgNewPasswordShort)
		case errors.Is(err, service.ErrPasswordTooLong):
			fail(c, http.StatusBadRequest, msgNewPasswordLong)
		case errors.Is(err, service.ErrUserNotFound):
			fail(c, http.StatusUnauthorized, msgUserMissing)
		case errors.Is(err, service.ErrWrongPassword):
			fail(c, http.StatusUnauthorized, msgWrongOldPassword)
		default:
			h.serverError(c, err, "change password")
		}
		return
	}

	success(c, msgPasswordChanged, nil)
}

func (h *Handler) verify(c *gin.Context) {
	claims, _ := claimsFrom(c)
	c.JSON(http.StatusOK, gin.H{"code": codeOK, "user": claims})
}

func (h *Handler) listGifts(c *gin.Context) {
	claims, _ := claimsFrom(c)

	gifts, err := h.ledger.List(c.Request.Context(), claims.UserID)
	if err != nil {
		h.serverError(c, err, "list gifts")
		return
	}

	resp := make([]GiftResponse, len(gifts))
	for i := range gifts {
		resp[i] = giftToResponse(gifts[i])
	}
	success(c, msgFetched, gin.H{
		"data":  resp,
		"total": domain.SumAmounts(gifts),
	})
}

func (h *Handler) addGift(c *gin.Context) {
	claims, _ := claimsFrom(c)

	var req addGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	gift, err := h.ledger.Add(c.Request.Context(), claims.UserID, service.AddGiftInput{
		Name:   req.Name,
		Amount: req.Amount,
		Type:   req.Type,
		Remark: req.Remark,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGiftFieldsRequired):
			fail(c, http.StatusBadRequest, msgGiftFieldsRequired)
		case errors.Is(err, service.ErrInvalidAmount):
			fail(c, http.StatusBadRequest, msgInvalidAmount)
		default:
			h.serverError(c, err, "add gift")
		}
		return
	}

	success(c, msgGiftAdded, gin.H{"data": giftToResponse(*gift)})
}

func (h *Handler) deleteGift(c *gin.Context) {
	claims, _ := claimsFrom(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusNotFound, msgGiftNotFound)
		return
	}

	if err := h.ledger.Delete(c.Request.Context(), claims.UserID, id); err != nil {
		switch {
		case errors.Is(err, service.ErrGiftNotFound):
			fail(c, http.StatusNotFound, msgGiftNotFound)
		case errors.Is(err, service.ErrForbidden):
			fail(c, http.StatusForbidden, msgGiftForbidden)
		default:
			h.serverError(c, err, "delete gift")
		}
		return
	}

	success(c, msgGiftDeleted, nil)
}

func (h *Handler) clearGifts(c *gin.Context) {
	claims, _ := claimsFrom(c)

	if err := h.ledger.Clear(c.Request.Context(), claims.UserID); err != nil {
		if errors.Is(err, service.ErrNoRecords) {
			fail(c, http.StatusBadRequest, msgNothingToClear)
			return
		}
		h.serverError(c, err, "clear gifts")
		return
	}

	success(c, msgCleared, nil)
}

func (h *Handler) listLogs(c *gin.Context) {
	claims, _ := claimsFrom(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	entries, err := h.audit.Recent(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		h.serverError(c, err, "list logs")
		return
	}

	resp := make([]LogEntryResponse, len(entries))
	for i := range entries {
		resp[i] = logEntryToResponse(entries[i])
	}
	success(c, msgFetched, gin.H{"data": resp})
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.WithError(err).Warn("health check failed")
		fail(c, http.StatusServiceUnavailable, msgUnhealthy)
		return
	}
	success(c, msgHealthy, nil)
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type GiftResponse struct {
	ID        int64           `json:"id"`
	EventID   int64           `json:"event_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	Remark    string          `json:"remark"`
	CreatedAt string          `json:"created_at"`
}

type LogEntryResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	EventID   int64  `json:"event_id"`
	Action    string `json:"action"`
	CreatedAt string `json:"created_at"`
}

func giftToResponse(gift domain.Gift) GiftResponse {
	return GiftResponse{
		ID:        gift.ID,
		EventID:   gift.EventID,
		Name:      gift.Name,
		Amount:    gift.Amount,
		Type:      gift.Type,
		Remark:    gift.Remark,
		CreatedAt: gift.CreatedAt.Format(time.RFC3339),
	}
}

func logEntryToResponse(entry domain.LogEntry) LogEntryResponse {
	return LogEntryResponse{
		ID:        entry.ID,
		UserID:    entry.UserID,
		EventID:   entry.EventID,
		Action:    entry.Action,
		CreatedAt: entry.CreatedAt.Format(time.RFC3339),
	}
}
