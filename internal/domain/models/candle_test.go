package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeframeFreshnessThreshold(t *testing.T) {
	cases := []struct {
		tf   Timeframe
		want time.Duration
	}{
		{Timeframe1m, 90 * time.Second},
		{Timeframe3m, 4 * time.Minute},
		{Timeframe5m, 6 * time.Minute},
		{Timeframe15m, 18 * time.Minute},
		{Timeframe30m, 35 * time.Minute},
		{Timeframe1h, 70 * time.Minute},
		{Timeframe4h, 2 * time.Hour},
		{Timeframe1d, 2 * time.Hour},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.tf.FreshnessThreshold(), "timeframe %s", tc.tf)
	}
}

func TestTimeframeDuration(t *testing.T) {
	assert.Equal(t, time.Minute, Timeframe1m.Duration())
	assert.Equal(t, 4*time.Hour, Timeframe4h.Duration())
	assert.Equal(t, 24*time.Hour, Timeframe1d.Duration())
}

func TestSeriesLastAndAge(t *testing.T) {
	now := time.Now()
	empty := NewSeries("BTCUSD", Timeframe5m, nil)

	_, ok := empty.Last()
	assert.False(t, ok)
	_, ok = empty.Age(now)
	assert.False(t, ok)

	s := NewSeries("BTCUSD", Timeframe5m, []Candle{
		{Timestamp: now.Add(-10 * time.Minute), Close: 1},
		{Timestamp: now.Add(-5 * time.Minute), Close: 2},
	})

	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, 2.0, last.Close)

	age, ok := s.Age(now)
	assert.True(t, ok)
	assert.Equal(t, 5*time.Minute, age)
}

func TestSeriesColumnAccess(t *testing.T) {
	s := NewSeries("BTCUSD", Timeframe5m, []Candle{{Close: 1}, {Close: 2}, {Close: 3}})

	s.SetColumn(ColRSI, []float64{40, 50, 60})
	v, ok := s.LastValue(ColRSI)
	assert.True(t, ok)
	assert.Equal(t, 60.0, v)

	v, ok = s.Value(ColRSI, 0)
	assert.True(t, ok)
	assert.Equal(t, 40.0, v)

	_, ok = s.Value(ColRSI, 3)
	assert.False(t, ok)
	_, ok = s.LastValue(ColADX)
	assert.False(t, ok)
}

func TestSeriesSetColumnRejectsLengthMismatch(t *testing.T) {
	s := NewSeries("BTCUSD", Timeframe5m, []Candle{{Close: 1}, {Close: 2}})

	s.SetColumn(ColRSI, []float64{50})
	_, ok := s.LastValue(ColRSI)
	assert.False(t, ok, "short columns must not be attached")

	s.SetColumn(ColRSI, []float64{40, 50, 60})
	_, ok = s.LastValue(ColRSI)
	assert.False(t, ok, "long columns must not be attached")
}
