package extraction

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cast"

	"trade-journal-assistant/internal/normalize"
)

// Assembler maps a decoded model object onto a Record, field by field.
// It never fails: a field that cannot be normalised is left nil.
type Assembler struct {
	times *normalize.TimeParser
}

// NewAssembler creates an Assembler. A nil parser resolves stamps in UTC.
func NewAssembler(times *normalize.TimeParser) *Assembler {
	if times == nil {
		times = normalize.NewTimeParser(time.UTC)
	}
	return &Assembler{times: times}
}

var defaultAssembler = NewAssembler(nil)

// Assemble maps raw onto a Record using the default UTC assembler.
func Assemble(raw map[string]any, v Variant) Record {
	return defaultAssembler.Assemble(raw, v)
}

// Assemble maps raw onto a Record using the pipeline for v.
func (a *Assembler) Assemble(raw map[string]any, v Variant) Record {
	f := newFields(raw)
	if v == VariantCrypto {
		return a.crypto(f)
	}
	return a.forex(f)
}

func (a *Assembler) forex(f fields) Record {
	rec := Record{Variant: VariantForex}

	rec.Symbol = f.text("symbol")
	if side, ok := normalize.ClassifySide(f.get("type")); ok {
		rec.Side = ptr(side)
	}
	rec.Volume = f.number("volumeLot")
	rec.OpenPrice = f.number("openPrice")
	rec.ClosePrice = f.number("closePrice")
	rec.TakeProfit = f.number("tp")
	rec.StopLoss = f.number("sl")
	if status, ok := normalize.ClassifyStatus(f.get("position")); ok {
		rec.Status = ptr(status)
	}
	rec.OpenTime = a.instant(f.get("openTime"))
	rec.CloseTime = a.instant(f.get("closeTime"))
	if reason, ok := normalize.ClassifyReason(f.get("reason")); ok {
		rec.Reason = ptr(reason)
	}
	rec.ProfitLossUSD = f.number("pnlUsd")

	return rec
}

func (a *Assembler) crypto(f fields) Record {
	rec := Record{Variant: VariantCrypto}

	rec.Symbol = f.text("futuresSymbol")
	if mode, ok := normalize.ClassifyMarginMode(f.get("marginMode")); ok {
		rec.MarginMode = ptr(mode)
	}
	rec.ClosePrice = f.number("avgClosePrice")
	if dir, ok := normalize.ClassifyDirection(f.get("direction")); ok {
		rec.Direction = ptr(dir)
		if side, ok := normalize.SideForDirection(dir); ok {
			rec.Side = ptr(side)
		}
	}
	rec.MarginHistoryNote = f.note("marginAdjustmentHistory")
	rec.CloseTime = a.instant(f.get("closeTime"))
	rec.Volume = f.number("closingQuantity")
	if status, ok := normalize.ClassifyStatus(f.get("status")); ok {
		rec.Status = ptr(status)
	}
	rec.ProfitLossUSD = f.number("realizedPnl")
	rec.OpenTime = a.instant(f.get("openTime"))
	rec.OpenPrice = f.number("avgEntryPrice")

	return rec
}

func (a *Assembler) instant(raw any) *time.Time {
	if t, ok := a.times.Parse(raw); ok {
		return &t
	}
	return nil
}

// fields indexes a model object by a folded key so "volumeLot", "volume_lot"
// and "VolumeLot" all resolve to the same value.
type fields map[string]any

func newFields(raw map[string]any) fields {
	f := make(fields, len(raw))
	for k, v := range raw {
		f[foldKey(k)] = v
	}
	return f
}

func foldKey(k string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.ToLower(k))
}

func (f fields) get(key string) any {
	return f[foldKey(key)]
}

func (f fields) number(key string) *float64 {
	if n, ok := normalize.ParseNumber(f.get(key)); ok {
		return &n
	}
	return nil
}

func (f fields) text(key string) *string {
	raw := f.get(key)
	if raw == nil {
		return nil
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// note keeps free-form values; structured history is kept as compact JSON.
func (f fields) note(key string) *string {
	var structured any
	switch v := f.get(key).(type) {
	case nil:
		return nil
	case []any:
		if len(v) == 0 {
			return nil
		}
		structured = v
	case map[string]any:
		if len(v) == 0 {
			return nil
		}
		structured = v
	default:
		return f.text(key)
	}

	b, err := json.Marshal(structured)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}
