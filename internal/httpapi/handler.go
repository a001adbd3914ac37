package httpapi

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"trade-journal-assistant/internal/assistant"
	"trade-journal-assistant/internal/extraction"
	"trade-journal-assistant/internal/market"
	"trade-journal-assistant/internal/models"
	"trade-journal-assistant/internal/repository"
	"trade-journal-assistant/internal/retry"
)

// Analyzer reads a trade from a screenshot.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string, variant extraction.Variant) (*extraction.Record, error)
}

// ChatService answers a chat message.
type ChatService interface {
	Reply(ctx context.Context, userID, message string) assistant.Reply
}

// SnapshotSource supplies the current market snapshot.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) market.Snapshot
}

// Handler holds dependencies for the API endpoints.
type Handler struct {
	log      *zap.Logger
	repo     repository.Repository
	analyzer Analyzer
	chat     ChatService
	market   SnapshotSource
}

// NewHandler creates a new Handler.
func NewHandler(log *zap.Logger, repo repository.Repository, analyzer Analyzer, chat ChatService, snapshots SnapshotSource) *Handler {
	return &Handler{log: log.Named("api"), repo: repo, analyzer: analyzer, chat: chat, market: snapshots}
}

// RegisterRoutes mounts the API endpoints on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/trades/analyze", h.AnalyzeHandler)
	api.GET("/trades", h.TradesHandler)
	api.GET("/statistics", h.StatisticsHandler)
	api.POST("/sessions", h.CreateSessionHandler)
	api.GET("/sessions", h.SessionsHandler)
	api.POST("/chat", h.ChatHandler)
	api.GET("/market/snapshot", h.SnapshotHandler)
}

type analyzeForm struct {
	UserID    string `form:"userId" validate:"required,max=128"`
	SessionID uint   `form:"sessionId"`
	Variant   string `form:"variant" default:"forex" validate:"oneof=forex spot fx crypto futures crypto-futures"`
}

// AnalyzeResponse is returned by a successful screenshot analysis.
type AnalyzeResponse struct {
	TradeID uint               `json:"trade_id"`
	Record  *extraction.Record `json:"record"`
}

// AnalyzeHandler reads a trade from an uploaded screenshot and journals it.
func (h *Handler) AnalyzeHandler(c echo.Context) error {
	var form analyzeForm
	if verr := bindAndValidate(c, &form); verr != nil {
		return c.JSON(http.StatusBadRequest, verr)
	}
	variant, err := extraction.ParseVariant(form.Variant)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "image file is required"})
	}
	image, mimeType, err := readUpload(file)
	if err != nil {
		h.log.Warn("Failed to read upload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not read image file"})
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "upload must be an image"})
	}

	ctx := c.Request().Context()
	rec, err := h.analyzer.Analyze(ctx, image, mimeType, variant)
	if err != nil {
		return c.JSON(analyzeStatus(err), ErrorResponse{Error: extraction.UserMessage(err)})
	}

	trade, err := h.repo.SaveTrade(ctx, form.UserID, form.SessionID, rec)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
	case err != nil:
		h.log.Error("Failed to save trade", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to save trade"})
	}

	return c.JSON(http.StatusCreated, AnalyzeResponse{TradeID: trade.ID, Record: rec})
}

func analyzeStatus(err error) int {
	switch {
	case errors.Is(err, retry.ErrTemporarilyUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, extraction.ErrExtraction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func readUpload(fh *multipart.FileHeader) ([]byte, string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty file")
	}

	mimeType := http.DetectContentType(data)
	if ct := fh.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
		mimeType = ct
	}
	return data, mimeType, nil
}

type listQuery struct {
	UserID string `query:"userId" validate:"required,max=128"`
	Limit  int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
}

// TradesHandler returns the user's journaled trades, newest first.
func (h *Handler) TradesHandler(c echo.Context) error {
	var q listQuery
	if verr := bindAndValidate(c, &q); verr != nil {
		return c.JSON(http.StatusBadRequest, verr)
	}

	trades, err := h.repo.RecentTrades(c.Request().Context(), q.UserID, q.Limit)
	if err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get trades"})
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	return c.JSON(http.StatusOK, trades)
}

type statsQuery struct {
	UserID string `query:"userId" validate:"required,max=128"`
}

// StatisticsHandler calculates and returns journal statistics.
func (h *Handler) StatisticsHandler(c echo.Context) error {
	var q statsQuery
	if verr := bindAndValidate(c, &q); verr != nil {
		return c.JSON(http.StatusBadRequest, verr)
	}

	allTime, recent, err := h.repo.TradeStatistics(c.Request().Context(), q.UserID, nowFunc().Add(-24*time.Hour))
	if err != nil {
		h.log.Error("Failed to aggregate trades for statistics", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to calculate statistics"})
	}
	return c.JSON(http.StatusOK, StatisticsResponse{
		Since24h: newStatsDetail(recent),
		AllTime:  newStatsDetail(allTime),
	})
}

type createSessionRequest struct {
	UserID  string `json:"userId" validate:"required,max=128"`
	Title   string `json:"title" validate:"max=200"`
	Variant string `json:"variant" default:"forex" validate:"oneof=forex spot fx crypto futures crypto-futures"`
}

// CreateSessionHandler opens a new journal session.
func (h *Handler) CreateSessionHandler(c echo.Context) error {
	var req createSessionRequest
	if verr := bindAndValidate(c, &req); verr != nil {
		return c.JSON(http.StatusBadRequest, verr)
	}
	variant, err := extraction.ParseVariant(req.Variant)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	session, err := h.repo.CreateSession(c.Request().Context(), req.UserID, req.Title, variant)
	if err != nil {
		h.log.Error("Failed to create session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create session"})
	}
	return c.JSON(http.StatusCreated, session)
}

// SessionsHandler lists the user's sessions, newest first.
func (h *Handler) SessionsHandler(c echo.Context) error {
	var q listQuery
	if verr := bindAndValidate(c, &q); verr != nil {
		return c.JSON(http.StatusBadRequest, verr)
	}

	sessions, err := h.repo.RecentSessions(c.Request().Context(), q.UserID, q.Limit)
	if err != nil {
		h.log.Error("Failed to get sessions from database", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to get sessions"})
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return c.JSON(http.StatusOK, sessions)
}

type chatRequest struct {
	UserID  string `json:"userId" validate:"required,max=128"`
	Message string `json:"message" validate:"required,max=4000"`
}

// ChatHandler answers a chat message. Failures surface as an apology reply, never an error.
func (h *Handler) ChatHandler(c echo.Context) error {
	var req chatRequest
	if verr := bindAndValidate(c, &req); verr != nil {
		return c.JSON(http.StatusBadRequest, verr)
	}
	return c.JSON(http.StatusOK, h.chat.Reply(c.Request().Context(), req.UserID, req.Message))
}

// SnapshotHandler returns the current market snapshot.
func (h *Handler) SnapshotHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, h.market.FetchSnapshot(c.Request().Context()))
}
