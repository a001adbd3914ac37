// Package assistant answers chat questions about the user's journal and the market.
package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trade-journal-assistant/internal/config"
	"trade-journal-assistant/internal/llm"
	"trade-journal-assistant/internal/market"
	"trade-journal-assistant/internal/models"
	"trade-journal-assistant/internal/repository"
	"trade-journal-assistant/internal/retry"
	"trade-journal-assistant/internal/search"
)

// SnapshotSource supplies the current market snapshot.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) market.Snapshot
}

// Enricher supplies web search context for a question.
type Enricher interface {
	Enrich(ctx context.Context, query string) []search.Result
}

// Reply is the assistant's answer. Fallback marks a canned apology.
type Reply struct {
	Text     string `json:"reply"`
	Fallback bool   `json:"fallback"`
}

// Service builds a prompt context for each message and asks the model for a reply.
type Service struct {
	model        llm.Generator
	repo         repository.Repository
	market       SnapshotSource
	search       Enricher
	historyLimit int
	tradeLimit   int
	retryOpts    []retry.Option
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a chat Service. enricher may be nil to disable enrichment.
func NewService(model llm.Generator, repo repository.Repository, snapshots SnapshotSource, enricher Enricher,
	cfg *config.Chat, logger *zap.Logger, retryOpts ...retry.Option) *Service {
	l := logger.Named("assistant")
	return &Service{
		model:        model,
		repo:         repo,
		market:       snapshots,
		search:       enricher,
		historyLimit: cfg.HistoryLimit,
		tradeLimit:   cfg.TradeLimit,
		retryOpts:    append([]retry.Option{retry.WithLogger(l), retry.WithName("chat_reply")}, retryOpts...),
		logger:       l,
		now:          time.Now,
	}
}

var errEmptyAnswer = errors.New("model returned an empty answer")

// Reply answers message for userID. It never returns an error: any failure
// yields Apology for the current time with Fallback set.
func (s *Service) Reply(ctx context.Context, userID, message string) Reply {
	now := s.now()
	l := s.logger.With(zap.String("user_id", userID))

	text, err := s.answer(ctx, userID, message, now)
	reply := Reply{Text: text}
	if err != nil {
		l.Error("Chat reply failed, sending apology", zap.Error(err))
		reply = Reply{Text: Apology(now), Fallback: true}
	}

	s.record(ctx, l, userID, models.RoleUser, message)
	s.record(ctx, l, userID, models.RoleAssistant, reply.Text)
	return reply
}

func (s *Service) answer(ctx context.Context, userID, message string, now time.Time) (string, error) {
	pc := promptContext{Now: now, Message: message}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pc.Trades, err = s.repo.RecentTrades(gctx, userID, s.tradeLimit)
		return err
	})
	g.Go(func() (err error) {
		pc.History, err = s.repo.RecentChatMessages(gctx, userID, s.historyLimit)
		return err
	})
	g.Go(func() error {
		pc.Snapshot = s.market.FetchSnapshot(gctx)
		return nil
	})
	if s.search != nil {
		g.Go(func() error {
			pc.Articles = s.search.Enrich(gctx, message)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	prompt := renderPrompt(pc)
	text, err := retry.Do(ctx, func(ctx context.Context) (string, error) {
		return s.model.Generate(ctx, []llm.Part{llm.TextPart(prompt)})
	}, s.retryOpts...)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyAnswer
	}
	return text, nil
}

func (s *Service) record(ctx context.Context, l *zap.Logger, userID, role, content string) {
	if err := s.repo.AppendChatMessage(ctx, userID, role, content); err != nil {
		l.Warn("Failed to store chat message", zap.String("role", role), zap.Error(err))
	}
}
