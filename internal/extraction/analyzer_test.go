package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-journal-assistant/internal/llm"
	"trade-journal-assistant/internal/normalize"
	"trade-journal-assistant/internal/retry"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, parts []llm.Part) (string, error) {
	args := m.Called(ctx, parts)
	return args.String(0), args.Error(1)
}

type quotaError struct{}

func (quotaError) Error() string     { return "429 Too Many Requests" }
func (quotaError) RateLimited() bool { return true }

func newTestAnalyzer(gen llm.Generator) *Analyzer {
	return NewAnalyzer(gen, fixedAssembler(), zap.NewNop(), nil,
		retry.WithBaseDelay(0), retry.WithMaxJitter(0))
}

func TestAnalyzer_Analyze(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(parts []llm.Part) bool {
		return len(parts) == 2 && parts[1].MIMEType == "image/png" && len(parts[1].Data) == 3
	})).Return("```json\n{\"symbol\":\"GBPUSD\",\"type\":\"Buy\",\"position\":\"Open\"}\n```", nil).Once()

	rec, err := newTestAnalyzer(gen).Analyze(context.Background(), []byte{1, 2, 3}, "image/png", VariantForex)
	require.NoError(t, err)
	assert.Equal(t, "GBPUSD", *rec.Symbol)
	assert.Equal(t, normalize.SideBuy, *rec.Side)
	assert.Equal(t, normalize.StatusOpen, *rec.Status)
	gen.AssertExpectations(t)
}

func TestAnalyzer_UsesVariantPrompt(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(parts []llm.Part) bool {
		return parts[0].Text == cryptoPrompt
	})).Return(`{"futuresSymbol":"ETHUSDT","direction":"Long"}`, nil).Once()

	rec, err := newTestAnalyzer(gen).Analyze(context.Background(), []byte{1}, "image/jpeg", VariantCrypto)
	require.NoError(t, err)
	assert.Equal(t, normalize.SideBuy, *rec.Side)
	gen.AssertExpectations(t)
}

func TestAnalyzer_RetriesRateLimitThenSucceeds(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", quotaError{}).Twice()
	gen.On("Generate", mock.Anything, mock.Anything).Return(`{"symbol":"USDJPY"}`, nil).Once()

	rec, err := newTestAnalyzer(gen).Analyze(context.Background(), []byte{1}, "image/png", VariantForex)
	require.NoError(t, err)
	assert.Equal(t, "USDJPY", *rec.Symbol)
	gen.AssertNumberOfCalls(t, "Generate", 3)
}

func TestAnalyzer_RateLimitExhausted(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", quotaError{})

	_, err := newTestAnalyzer(gen).Analyze(context.Background(), []byte{1}, "image/png", VariantForex)
	assert.ErrorIs(t, err, retry.ErrTemporarilyUnavailable)
	assert.Equal(t, MessageBusy, UserMessage(err))
	gen.AssertNumberOfCalls(t, "Generate", retry.DefaultMaxAttempts)
}

func TestAnalyzer_UnparseableAnswer(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("The image is too blurry to read.", nil).Once()

	_, err := newTestAnalyzer(gen).Analyze(context.Background(), []byte{1}, "image/png", VariantForex)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, MessageUnclear, UserMessage(err))
}

func TestAnalyzer_FatalErrorNotRetried(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("invalid api key")).Once()

	_, err := newTestAnalyzer(gen).Analyze(context.Background(), []byte{1}, "image/png", VariantForex)
	require.Error(t, err)
	assert.NotErrorIs(t, err, retry.ErrTemporarilyUnavailable)
	assert.Equal(t, MessageGeneric, UserMessage(err))
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestAnalyzer_EmptyImage(t *testing.T) {
	gen := new(mockGenerator)
	_, err := newTestAnalyzer(gen).Analyze(context.Background(), nil, "image/png", VariantForex)
	assert.Error(t, err)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}
