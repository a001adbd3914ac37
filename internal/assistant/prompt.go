package assistant

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"trade-journal-assistant/internal/market"
	"trade-journal-assistant/internal/models"
	"trade-journal-assistant/internal/search"
)

const instructions = `You are a trading journal assistant. Help the user review their own trades
and understand current market conditions. Base every statement on the context below;
say so when the context does not cover a question. Never give personalised financial advice.`

// promptContext is everything gathered for one chat turn.
type promptContext struct {
	Now      time.Time
	Trades   []models.Trade
	History  []models.ChatMessage
	Snapshot market.Snapshot
	Articles []search.Result
	Message  string
}

func renderPrompt(pc promptContext) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	fmt.Fprintf(&sb, "\n\nCurrent time: %s\n", pc.Now.UTC().Format(time.RFC3339))

	writeTrades(&sb, pc.Trades)
	writeSnapshot(&sb, pc.Snapshot)
	writeArticles(&sb, pc.Articles)

	if len(pc.History) > 0 {
		sb.WriteString("\n## Conversation so far\n")
		for _, m := range pc.History {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
		}
	}

	fmt.Fprintf(&sb, "\n## User question\n%s\n", pc.Message)
	return sb.String()
}

func writeTrades(sb *strings.Builder, trades []models.Trade) {
	sb.WriteString("\n## Recent journaled trades\n")
	if len(trades) == 0 {
		sb.WriteString("No trades journaled yet.\n")
		return
	}
	for _, t := range trades {
		fmt.Fprintf(sb, "- %s %s %s, volume %s, open %s, close %s, status %s, reason %s, P/L USD %s, closed %s\n",
			t.Variant, str(t.Symbol), str(t.Side), num(t.Volume), num(t.OpenPrice), num(t.ClosePrice),
			str(t.Status), str(t.Reason), num(t.ProfitLossUSD), when(t.CloseTime))
	}
}

func writeSnapshot(sb *strings.Builder, s market.Snapshot) {
	sb.WriteString("\n## Market snapshot\n")

	ids := make([]string, 0, len(s.CryptoQuotes))
	for id := range s.CryptoQuotes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		q := s.CryptoQuotes[id]
		fmt.Fprintf(sb, "- %s: $%.2f (%+.2f, %+.2f%% 24h)\n", id, q.Price, q.Change24hAbs, q.Change24hPct)
	}
	if s.MetalQuote != nil {
		fmt.Fprintf(sb, "- gold: $%.2f\n", s.MetalQuote.Price)
	}
	if s.Sentiment != nil {
		fmt.Fprintf(sb, "- fear & greed index: %d (%s)\n", s.Sentiment.Value, s.Sentiment.Label)
	}
	if len(s.Degraded) > 0 {
		legs := make([]string, len(s.Degraded))
		for i, l := range s.Degraded {
			legs[i] = string(l)
		}
		fmt.Fprintf(sb, "Note: %s data may be stale or unavailable.\n", strings.Join(legs, ", "))
	}

	if len(s.News) > 0 {
		sb.WriteString("\n## Headlines\n")
		for _, n := range s.News {
			fmt.Fprintf(sb, "- %s: %s (%s)\n", n.Title, n.Summary, n.SourceName)
		}
	}
}

// maxArticleChars bounds how much page text each article contributes.
const maxArticleChars = 1500

func writeArticles(sb *strings.Builder, articles []search.Result) {
	if len(articles) == 0 {
		return
	}
	sb.WriteString("\n## Related articles\n")
	for _, a := range articles {
		fmt.Fprintf(sb, "- %s <%s>", a.Title, a.URL)
		if a.PublishedAt != nil {
			fmt.Fprintf(sb, " published %s", a.PublishedAt.UTC().Format(time.RFC3339))
		}
		sb.WriteString("\n")
		if a.Content != nil {
			text := *a.Content
			if r := []rune(text); len(r) > maxArticleChars {
				text = string(r[:maxArticleChars]) + "..."
			}
			fmt.Fprintf(sb, "  %s\n", strings.ReplaceAll(text, "\n", " "))
		}
	}
}

func str(s *string) string {
	if s == nil {
		return "n/a"
	}
	return *s
}

func num(f *float64) string {
	if f == nil {
		return "n/a"
	}
	return fmt.Sprintf("%g", *f)
}

func when(t *time.Time) string {
	if t == nil {
		return "n/a"
	}
	return t.UTC().Format(time.RFC3339)
}
