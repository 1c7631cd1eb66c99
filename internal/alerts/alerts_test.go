package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/weather-radar-map/internal/store"
	"github.com/i474232898/weather-radar-map/internal/weather"
)

type fakeForecast struct {
	fc    weather.PointForecast
	err   error
	calls int
	last  weather.ForecastRequest
}

func (f *fakeForecast) Name() string { return "fake" }

func (f *fakeForecast) PointForecast(_ context.Context, _ weather.Coordinate, req weather.ForecastRequest) (weather.PointForecast, error) {
	f.calls++
	f.last = req
	return f.fc, f.err
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func slots(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * 15 * time.Minute)
	}
	return out
}

func forecast(precip, snow []float64) weather.PointForecast {
	return weather.PointForecast{
		Minutely15: weather.Series{
			Time: slots(len(precip)),
			Values: map[string][]float64{
				weather.VarPrecipitation: precip,
				weather.VarSnowfall:      snow,
			},
		},
	}
}

var oslo = weather.Place{Name: "Oslo", Coordinate: weather.Coordinate{Lat: 59.9139, Lon: 10.7522}}

func newEvaluator(t *testing.T, p weather.ForecastProvider, s store.Store, now *time.Time) (*Evaluator, *[]Alert) {
	t.Helper()
	var got []Alert
	e, err := NewEvaluator(p, s, NotifierFunc(func(a Alert) { got = append(got, a) }), DefaultOptions(), zap.NewNop())
	require.NoError(t, err)
	e.now = func() time.Time { return *now }
	return e, &got
}

func TestCheckRaisesRainAlert(t *testing.T) {
	p := &fakeForecast{fc: forecast(
		[]float64{0, 0, 0, 0.3, 0.4, 0, 0.2, 0},
		[]float64{0, 0, 0, 0, 0, 0, 0, 0},
	)}
	now := base.Add(5 * time.Minute)
	e, notified := newEvaluator(t, p, store.NewMemoryStore(), &now)

	alerts, err := e.Check(context.Background(), oslo)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, KindRain, a.Kind)
	assert.Equal(t, 45, a.Event.StartMin)
	assert.Equal(t, 30, a.Event.DurationMin)
	assert.InDelta(t, 0.7, a.Event.TotalMm, 1e-9)
	assert.Equal(t, base.Add(45*time.Minute), a.StartAt)
	assert.Equal(t, "Rain expected at Oslo in 45 min (30 min, 0.7 mm)", a.Message)
	assert.Len(t, *notified, 1)
	assert.ElementsMatch(t, []string{weather.VarPrecipitation, weather.VarSnowfall}, p.last.Minutely15)
}

func TestCheckSuppressesRepeatWithinCooldown(t *testing.T) {
	p := &fakeForecast{fc: forecast([]float64{0.5, 0.5}, []float64{0, 0})}
	s := store.NewMemoryStore()
	now := base
	e, notified := newEvaluator(t, p, s, &now)

	_, err := e.Check(context.Background(), oslo)
	require.NoError(t, err)
	now = base.Add(10 * time.Minute)
	again, err := e.Check(context.Background(), oslo)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, *notified, 1)

	// A fresh evaluator on the same store remembers the event.
	e2, notified2 := newEvaluator(t, p, s, &now)
	again, err = e2.Check(context.Background(), oslo)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Empty(t, *notified2)
}

func TestCheckRealertsAfterCooldown(t *testing.T) {
	p := &fakeForecast{fc: forecast([]float64{0.5, 0.5}, []float64{0, 0})}
	now := base
	e, notified := newEvaluator(t, p, store.NewMemoryStore(), &now)
	e.opts.Cooldown = 10 * time.Minute

	_, err := e.Check(context.Background(), oslo)
	require.NoError(t, err)
	require.Equal(t, 1, e.Seen())

	now = base.Add(10 * time.Minute)
	alerts, err := e.Check(context.Background(), oslo)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.Len(t, *notified, 2)
}

func TestCheckPrunesExpiredEntries(t *testing.T) {
	p := &fakeForecast{fc: forecast([]float64{0.5, 0.5}, []float64{0, 0})}
	now := base
	e, _ := newEvaluator(t, p, store.NewMemoryStore(), &now)

	_, err := e.Check(context.Background(), oslo)
	require.NoError(t, err)
	require.Equal(t, 1, e.Seen())

	// Every slot is now in the past, so nothing new is recorded.
	now = base.Add(4 * time.Hour)
	alerts, err := e.Check(context.Background(), oslo)
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, 0, e.Seen())
}

func TestCheckIgnoresEventsBeyondHorizon(t *testing.T) {
	precip := make([]float64, 12)
	precip[9] = 1 // 135 min out
	p := &fakeForecast{fc: forecast(precip, make([]float64, 12))}
	now := base
	e, _ := newEvaluator(t, p, store.NewMemoryStore(), &now)

	alerts, err := e.Check(context.Background(), oslo)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestCheckRaisesSnowAlert(t *testing.T) {
	p := &fakeForecast{fc: forecast([]float64{0, 0.2}, []float64{0, 0.5})}
	now := base
	e, _ := newEvaluator(t, p, store.NewMemoryStore(), &now)

	alerts, err := e.Check(context.Background(), oslo)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, KindSnow, alerts[1].Kind)
	assert.Equal(t, "Snow expected at Oslo in 15 min (15 min, 0.5 cm)", alerts[1].Message)
}

func TestCheckPropagatesForecastError(t *testing.T) {
	p := &fakeForecast{err: errors.New("offline")}
	now := base
	e, notified := newEvaluator(t, p, store.NewMemoryStore(), &now)

	_, err := e.Check(context.Background(), oslo)
	assert.Error(t, err)
	assert.Empty(t, *notified)
}

func TestDedupKeyRoundsCoordinates(t *testing.T) {
	a := dedupKey(weather.Coordinate{Lat: 59.9139, Lon: 10.7522}, KindRain, base)
	b := dedupKey(weather.Coordinate{Lat: 59.9141, Lon: 10.7518}, KindRain, base)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, dedupKey(weather.Coordinate{Lat: 59.9139, Lon: 10.7522}, KindSnow, base))
}
