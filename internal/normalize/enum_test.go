package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	testCases := []struct {
		raw      any
		expected Status
		ok       bool
	}{
		{raw: "open", expected: StatusOpen, ok: true},
		{raw: " OPEN ", expected: StatusOpen, ok: true},
		{raw: "Open position", expected: StatusOpen, ok: true},
		{raw: "All Closed", expected: StatusClosed, ok: true},
		{raw: "completed", expected: StatusClosed, ok: true},
		{raw: "Complete", expected: StatusClosed, ok: true},
		{raw: "Closd", expected: StatusClosed, ok: true},
		{raw: "Partially closed", expected: StatusClosed, ok: true},
		{raw: "1023841", ok: false},
		{raw: 1023841.0, ok: false},
		{raw: "pending", ok: false},
		{raw: "", ok: false},
		{raw: nil, ok: false},
	}

	for _, tc := range testCases {
		got, ok := ClassifyStatus(tc.raw)
		assert.Equal(t, tc.ok, ok, "input %v", tc.raw)
		assert.Equal(t, tc.expected, got, "input %v", tc.raw)
	}
}

func TestClassifyReason(t *testing.T) {
	testCases := []struct {
		raw      any
		expected Reason
		ok       bool
	}{
		{raw: "TP", expected: ReasonTP, ok: true},
		{raw: "sl", expected: ReasonSL, ok: true},
		{raw: "Early Close", expected: ReasonEarlyClose, ok: true},
		{raw: "Take Profit hit", expected: ReasonTP, ok: true},
		{raw: "Stop Loss", expected: ReasonSL, ok: true},
		{raw: "closed early by user", expected: ReasonEarlyClose, ok: true},
		{raw: "manual", expected: ReasonOther, ok: true},
		{raw: "  ", ok: false},
		{raw: nil, ok: false},
	}

	for _, tc := range testCases {
		got, ok := ClassifyReason(tc.raw)
		assert.Equal(t, tc.ok, ok, "input %v", tc.raw)
		assert.Equal(t, tc.expected, got, "input %v", tc.raw)
	}
}

func TestDirectionSideMapping(t *testing.T) {
	side, ok := SideForDirection(DirectionLong)
	assert.True(t, ok)
	assert.Equal(t, SideBuy, side)

	side, ok = SideForDirection(DirectionShort)
	assert.True(t, ok)
	assert.Equal(t, SideSell, side)

	_, ok = SideForDirection("Sideways")
	assert.False(t, ok)

	dir, ok := DirectionForSide(SideSell)
	assert.True(t, ok)
	assert.Equal(t, DirectionShort, dir)

	_, ok = DirectionForSide("")
	assert.False(t, ok)
}

func TestClassifySideAndMargin(t *testing.T) {
	side, ok := ClassifySide("BUY")
	assert.True(t, ok)
	assert.Equal(t, SideBuy, side)

	dir, ok := ClassifyDirection("Short")
	assert.True(t, ok)
	assert.Equal(t, DirectionShort, dir)

	_, ok = ClassifyDirection("flat")
	assert.False(t, ok)

	mode, ok := ClassifyMarginMode("Isolated 20x")
	assert.True(t, ok)
	assert.Equal(t, MarginIsolated, mode)

	mode, ok = ClassifyMarginMode("cross")
	assert.True(t, ok)
	assert.Equal(t, MarginCross, mode)
}
