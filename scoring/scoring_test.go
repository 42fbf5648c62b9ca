package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rustyeddy/confluence/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignal() strategy.Signal {
	return strategy.Signal{
		Direction:   strategy.Long,
		Time:        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Entry:       22150.5,
		Stop:        22130.1,
		Target1:     22191.3,
		Target2:     22232.1,
		Confluence:  6,
		Factors:     []strategy.Factor{strategy.FactorEMA, strategy.FactorSupertrend, strategy.FactorADX, strategy.FactorMACD, strategy.FactorVWAP, strategy.FactorStochRSI},
		ATR:         17,
		ADX:         32.4,
		VolumeRatio: 1.41,
	}
}

func v8Heuristic() Heuristic {
	return Heuristic{
		Base:         6.0,
		PerFactor:    0.6,
		ADXThreshold: 30,
		ADXBonus:     1.0,
		FactorBonus:  map[strategy.Factor]float64{strategy.FactorMACD: 1.0},
		Ceiling:      10,
	}
}

func ptr(v float64) *float64 { return &v }

func TestHeuristic(t *testing.T) {
	ctx := context.Background()
	sig := testSignal()

	t.Run("v8 weights clamp at ceiling", func(t *testing.T) {
		// 6 + 3.6 + 1 + 1 = 11.6
		s := v8Heuristic().Score(ctx, sig)
		assert.Equal(t, 10.0, s.Value)
		assert.Equal(t, SourceHeuristic, s.Source)
	})

	t.Run("no bonuses", func(t *testing.T) {
		sig := testSignal()
		sig.ADX = 26
		sig.Factors = sig.Factors[:3]
		sig.Confluence = 3
		s := v8Heuristic().Score(ctx, sig)
		assert.InDelta(t, 6+1.8, s.Value, 1e-9)
	})

	t.Run("v6 ceiling", func(t *testing.T) {
		h := Heuristic{Base: 5, PerFactor: 0.7, ADXThreshold: 25, ADXBonus: 1, Ceiling: 9.5}
		s := h.Score(ctx, sig)
		assert.Equal(t, 9.5, s.Value)
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, v8Heuristic().Score(ctx, sig), v8Heuristic().Score(ctx, sig))
	})
}

func TestFixed(t *testing.T) {
	s := Fixed{Value: 8}.Score(context.Background(), testSignal())
	assert.Equal(t, Score{Value: 8, Rationale: "fixed score", Source: SourceFixed}, s)
	assert.Equal(t, 10.0, Fixed{Value: 12}.Score(context.Background(), testSignal()).Value)
}

func oracleServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		if assert.NotNil(t, req.ResponseFormat) {
			assert.Equal(t, "json_object", req.ResponseFormat.Type)
		}
		if assert.Len(t, req.Messages, 1) {
			assert.Contains(t, req.Messages[0].Content, "BUY @ 22150.50")
		}

		w.WriteHeader(status)
		if status != http.StatusOK {
			fmt.Fprint(w, content)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOracleScore(t *testing.T) {
	srv := oracleServer(t, http.StatusOK, `{"score": 8.7, "reasoning": "strong trend with volume"}`)

	var outcomes []string
	o := NewOracle(OracleConfig{Endpoint: srv.URL, APIKey: "test-key", FailScore: ptr(8)}, v8Heuristic(),
		WithObserver(func(outcome string, _ time.Duration) { outcomes = append(outcomes, outcome) }))

	s := o.Score(context.Background(), testSignal())
	assert.Equal(t, 8.7, s.Value)
	assert.Equal(t, "strong trend with volume", s.Rationale)
	assert.Equal(t, SourceOracle, s.Source)
	assert.Equal(t, []string{"ok"}, outcomes)
}

func TestOracleFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"not json", http.StatusOK, "I think this is a great trade"},
		{"score out of range", http.StatusOK, `{"score": 11, "reasoning": "x"}`},
		{"negative score", http.StatusOK, `{"score": -1}`},
		{"missing score", http.StatusOK, `{"reasoning": "x"}`},
		{"score not numeric", http.StatusOK, `{"score": "high"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv := oracleServer(t, tt.status, tt.content)
			o := NewOracle(OracleConfig{Endpoint: srv.URL, APIKey: "test-key", FailScore: ptr(8)}, v8Heuristic())

			s := o.Score(context.Background(), testSignal())
			assert.Equal(t, 8.0, s.Value)
			assert.Equal(t, SourceFallback, s.Source)
			assert.True(t, strings.HasPrefix(s.Rationale, "oracle unavailable: "), s.Rationale)
		})
	}
}

func TestOracleTimeoutUsesFallbackScorer(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	o := NewOracle(OracleConfig{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, v8Heuristic())

	start := time.Now()
	s := o.Score(context.Background(), testSignal())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 10.0, s.Value)
	assert.Equal(t, SourceFallback, s.Source)
	assert.Contains(t, s.Rationale, "oracle unavailable")
}

func TestParseVerdict(t *testing.T) {
	s, err := parseVerdict("Sure! ```json\n{\"score\": 9.1, \"reasoning\": \"ok\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, 9.1, s.Value)

	s, err = parseVerdict(`{"score": 7, "reasoning": "` + strings.Repeat("a", 500) + `"}`)
	require.NoError(t, err)
	assert.Len(t, []rune(s.Rationale), maxRationale+3)

	s, err = parseVerdict(`{"score": 0}`)
	require.NoError(t, err)
	assert.Equal(t, "no reasoning", s.Rationale)
}

func TestPrompt(t *testing.T) {
	sig := testSignal()
	p := Prompt(sig, 9)
	assert.Contains(t, p, "Type: BUY @ 22150.50")
	assert.Contains(t, p, "Confluence: 6/9 factors")
	assert.Contains(t, p, "Reasons: EMA, SUPERTREND, ADX, MACD, VWAP, STOCH_RSI")
	assert.Contains(t, p, "ADX: 32.4")

	sig.Direction = strategy.Short
	assert.Contains(t, Prompt(sig, 0), "Type: SELL")
	assert.Contains(t, Prompt(sig, 0), "Confluence: 6 factors")
}

type memCache struct {
	mu   sync.Mutex
	data map[string]Score
	sets int
	err  error
}

func newMemCache() *memCache { return &memCache{data: map[string]Score{}} }

func (m *memCache) Get(_ context.Context, key string) (Score, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Score{}, false, m.err
	}
	s, ok := m.data[key]
	return s, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, s Score, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sets++
	m.data[key] = s
	return nil
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	calls := 0
	oracle := ScorerFunc(func(context.Context, strategy.Signal) Score {
		calls++
		return Score{Value: 9.2, Rationale: "great", Source: SourceOracle}
	})

	cache := newMemCache()
	c := NewCached(oracle, cache, time.Hour, nil)

	first := c.Score(ctx, testSignal())
	assert.Equal(t, SourceOracle, first.Source)

	second := c.Score(ctx, testSignal())
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, 9.2, second.Value)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.sets)
}

func TestCachedSkipsFallbackScores(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	c := NewCached(ScorerFunc(func(context.Context, strategy.Signal) Score {
		return Score{Value: 8, Source: SourceFallback}
	}), cache, time.Hour, nil)

	c.Score(ctx, testSignal())
	c.Score(ctx, testSignal())
	assert.Equal(t, 0, cache.sets)
}

func TestCachedIgnoresCacheErrors(t *testing.T) {
	cache := newMemCache()
	cache.err = errors.New("down")
	c := NewCached(Fixed{Value: 7}, cache, time.Hour, nil)
	assert.Equal(t, 7.0, c.Score(context.Background(), testSignal()).Value)
}

func TestCachedRejectsOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name  string
		value float64
	}{
		{name: "above max", value: 42},
		{name: "negative", value: -1},
		{name: "nan", value: math.NaN()},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			oracle := ScorerFunc(func(context.Context, strategy.Signal) Score {
				calls++
				return Score{Value: 8.1, Source: SourceOracle}
			})
			cache := newMemCache()
			cache.data[Key(testSignal())] = Score{Value: tt.value, Source: SourceOracle}

			got := NewCached(oracle, cache, time.Hour, nil).Score(context.Background(), testSignal())
			assert.Equal(t, SourceOracle, got.Source)
			assert.Equal(t, 8.1, got.Value)
			assert.Equal(t, 1, calls)
			assert.Equal(t, 8.1, cache.data[Key(testSignal())].Value)
		})
	}
}

// stallCache blocks every call until its context ends.
type stallCache struct {
	mu        sync.Mutex
	deadlines int
}

func (s *stallCache) wait(ctx context.Context) error {
	if _, ok := ctx.Deadline(); ok {
		s.mu.Lock()
		s.deadlines++
		s.mu.Unlock()
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stallCache) Get(ctx context.Context, _ string) (Score, bool, error) {
	return Score{}, false, s.wait(ctx)
}

func (s *stallCache) Set(ctx context.Context, _ string, _ Score, _ time.Duration) error {
	return s.wait(ctx)
}

func TestCachedBoundsSlowCache(t *testing.T) {
	oracle := ScorerFunc(func(context.Context, strategy.Signal) Score {
		return Score{Value: 9, Source: SourceOracle}
	})
	cache := &stallCache{}
	c := NewCached(oracle, cache, time.Hour, nil, WithCacheTimeout(20*time.Millisecond))

	start := time.Now()
	got := c.Score(context.Background(), testSignal())
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 9.0, got.Value)
	assert.Equal(t, SourceOracle, got.Source)
	assert.Equal(t, 2, cache.deadlines)
}

func TestRedisCacheUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	rc := NewRedisCache(client, "test:")
	_, ok, err := rc.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.Error(t, err)

	c := NewCached(Fixed{Value: 6.5}, rc, time.Minute, nil)
	assert.Equal(t, 6.5, c.Score(context.Background(), testSignal()).Value)
}

func TestKey(t *testing.T) {
	a := testSignal()
	b := testSignal()
	b.Time = b.Time.Add(time.Hour)
	b.ADX = 32.41
	assert.Equal(t, Key(a), Key(b))
	assert.True(t, strings.HasPrefix(Key(a), "score:"))

	b.Direction = strategy.Short
	assert.NotEqual(t, Key(a), Key(b))
}
