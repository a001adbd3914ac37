package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedParser() *TimeParser {
	p := NewTimeParser(time.UTC)
	p.Now = func() time.Time { return time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC) }
	return p
}

func TestTimeParser_ShortStamp(t *testing.T) {
	p := fixedParser()

	testCases := []struct {
		raw  string
		hour int
	}{
		{raw: "Jun 16, 8:50:55 PM", hour: 20},
		{raw: "Jun 16, 8:50:55 AM", hour: 8},
		{raw: "Jun 16, 12:50:55 AM", hour: 0},
		{raw: "Jun 16, 12:50:55 PM", hour: 12},
		{raw: "jun 16, 11:50:55 pm", hour: 23},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := p.Parse(tc.raw)
			require.True(t, ok)
			assert.Equal(t, 2025, got.Year())
			assert.Equal(t, time.June, got.Month())
			assert.Equal(t, 16, got.Day())
			assert.Equal(t, tc.hour, got.Hour())
			assert.Equal(t, 50, got.Minute())
			assert.Equal(t, 55, got.Second())
		})
	}
}

func TestTimeParser_RejectsInvalidCalendarDate(t *testing.T) {
	p := fixedParser()

	_, ok := p.Parse("Feb 30, 8:50:55 PM")
	assert.False(t, ok)

	_, ok = p.Parse("Jun 16, 13:50:55 PM")
	assert.False(t, ok)
}

func TestTimeParser_ISO(t *testing.T) {
	p := fixedParser()

	got, ok := p.Parse("2024-10-10T10:10:10Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC), got)

	got, ok = p.Parse("2024-10-10T10:10:10")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC), got)
}

func TestTimeParser_RoundTrip(t *testing.T) {
	p := fixedParser()
	original := time.Date(2024, 6, 16, 20, 50, 55, 123456789, time.FixedZone("UTC+7", 7*3600))

	got, ok := p.Parse(original.Format(time.RFC3339Nano))
	require.True(t, ok)
	assert.True(t, original.Equal(got))
}

func TestTimeParser_GenericFallback(t *testing.T) {
	p := fixedParser()

	got, ok := p.Parse("2024-06-16 20:50:55")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 16, 20, 50, 55, 0, time.UTC), got)
}

func TestTimeParser_Absent(t *testing.T) {
	p := fixedParser()

	for _, raw := range []any{nil, "", "   ", "not a date", time.Time{}} {
		_, ok := p.Parse(raw)
		assert.False(t, ok, "input %v", raw)
	}
}
