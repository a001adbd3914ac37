package normalize

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Status is the lifecycle state of a position.
type Status string

const (
	StatusOpen   Status = "Open"
	StatusClosed Status = "Closed"
)

// Reason explains why a position was closed.
type Reason string

const (
	ReasonTP         Reason = "TP"
	ReasonSL         Reason = "SL"
	ReasonEarlyClose Reason = "EarlyClose"
	ReasonOther      Reason = "Other"
)

// Side is the order side of a spot/forex trade.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Direction is the position direction of a futures trade.
type Direction string

const (
	DirectionLong  Direction = "Long"
	DirectionShort Direction = "Short"
)

// MarginMode is the collateral mode of a futures position.
type MarginMode string

const (
	MarginCross    MarginMode = "Cross"
	MarginIsolated MarginMode = "Isolated"
)

var numericID = regexp.MustCompile(`^\d+$`)

var closedPhrases = []string{"closed", "all closed", "completed", "complete"}

func clean(raw any) (string, bool) {
	s, ok := raw.(string)
	if !ok {
		if p, isPtr := raw.(*string); isPtr && p != nil {
			s, ok = *p, true
		}
	}
	if !ok {
		return "", false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return s, s != ""
}

// ClassifyStatus maps status text onto Open or Closed.
// Purely numeric input is an order/position ID read from the same column and is rejected.
func ClassifyStatus(raw any) (Status, bool) {
	s, ok := clean(raw)
	if !ok || numericID.MatchString(s) {
		return "", false
	}

	if s == "open" {
		return StatusOpen, true
	}
	for _, phrase := range closedPhrases {
		if s == phrase || levenshtein.ComputeDistance(s, phrase) <= 1 {
			return StatusClosed, true
		}
	}

	switch {
	case strings.HasPrefix(s, "open"):
		return StatusOpen, true
	case strings.Contains(s, "closed"), strings.Contains(s, "complete"):
		return StatusClosed, true
	}
	return "", false
}

// ClassifyReason maps a close-reason phrase onto TP, SL, EarlyClose or Other.
func ClassifyReason(raw any) (Reason, bool) {
	s, ok := clean(raw)
	if !ok {
		return "", false
	}

	switch s {
	case "tp":
		return ReasonTP, true
	case "sl":
		return ReasonSL, true
	case "early close":
		return ReasonEarlyClose, true
	}

	switch {
	case strings.Contains(s, "take profit"), strings.Contains(s, "tp"):
		return ReasonTP, true
	case strings.Contains(s, "stop loss"), strings.Contains(s, "sl"):
		return ReasonSL, true
	case strings.Contains(s, "early") && strings.Contains(s, "clos"):
		return ReasonEarlyClose, true
	}
	return ReasonOther, true
}

// ClassifySide reads an order side, accepting futures wording as well.
func ClassifySide(raw any) (Side, bool) {
	s, ok := clean(raw)
	if !ok {
		return "", false
	}
	switch {
	case strings.HasPrefix(s, "buy"), strings.HasPrefix(s, "long"):
		return SideBuy, true
	case strings.HasPrefix(s, "sell"), strings.HasPrefix(s, "short"):
		return SideSell, true
	}
	return "", false
}

// ClassifyDirection reads a futures direction, accepting spot wording as well.
func ClassifyDirection(raw any) (Direction, bool) {
	side, ok := ClassifySide(raw)
	if !ok {
		return "", false
	}
	return DirectionForSide(side)
}

// ClassifyMarginMode reads cross/isolated margin text.
func ClassifyMarginMode(raw any) (MarginMode, bool) {
	s, ok := clean(raw)
	if !ok {
		return "", false
	}
	switch {
	case strings.Contains(s, "cross"):
		return MarginCross, true
	case strings.Contains(s, "isolated"):
		return MarginIsolated, true
	}
	return "", false
}

// SideForDirection maps Long to Buy and Short to Sell.
func SideForDirection(d Direction) (Side, bool) {
	switch d {
	case DirectionLong:
		return SideBuy, true
	case DirectionShort:
		return SideSell, true
	}
	return "", false
}

// DirectionForSide maps Buy to Long and Sell to Short.
func DirectionForSide(s Side) (Direction, bool) {
	switch s {
	case SideBuy:
		return DirectionLong, true
	case SideSell:
		return DirectionShort, true
	}
	return "", false
}
