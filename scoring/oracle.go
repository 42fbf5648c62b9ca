package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rustyeddy/confluence/strategy"
)

const (
	DefaultEndpoint = "https://api.cerebras.ai/v1"
	DefaultModel    = "llama-3.3-70b"

	maxRationale = 200
	maxBody      = 64 << 10
)

// OracleConfig configures the remote scorer.
type OracleConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int

	// Checklist is the number of enabled factors, used in the prompt.
	Checklist int

	// FailScore is used when the oracle fails. Nil means defer to the
	// fallback scorer.
	FailScore *float64
}

// Observer receives the outcome ("ok" or "error") and latency of each call.
type Observer func(outcome string, elapsed time.Duration)

type OracleOption func(*Oracle)

func WithHTTPClient(c *http.Client) OracleOption {
	return func(o *Oracle) { o.client = c }
}

func WithLogger(l *slog.Logger) OracleOption {
	return func(o *Oracle) { o.log = l }
}

func WithObserver(fn Observer) OracleOption {
	return func(o *Oracle) { o.observe = fn }
}

// Oracle asks an OpenAI-compatible chat completion endpoint to rate a
// signal.
type Oracle struct {
	cfg      OracleConfig
	fallback Scorer
	client   *http.Client
	log      *slog.Logger
	observe  Observer
}

func NewOracle(cfg OracleConfig, fallback Scorer, opts ...OracleOption) *Oracle {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 100
	}
	o := &Oracle{
		cfg:      cfg,
		fallback: fallback,
		client:   &http.Client{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type verdict struct {
	Score     *float64 `json:"score"`
	Reasoning string   `json:"reasoning"`
}

func (o *Oracle) Score(ctx context.Context, sig strategy.Signal) Score {
	start := time.Now()
	s, err := o.ask(ctx, sig)
	elapsed := time.Since(start)

	if err != nil {
		if o.observe != nil {
			o.observe("error", elapsed)
		}
		o.log.Warn("oracle unavailable", "err", err, "elapsed", elapsed)
		return o.fail(ctx, sig, err)
	}
	if o.observe != nil {
		o.observe("ok", elapsed)
	}
	return s
}

func (o *Oracle) fail(ctx context.Context, sig strategy.Signal, cause error) Score {
	if o.cfg.FailScore != nil || o.fallback == nil {
		v := 0.0
		if o.cfg.FailScore != nil {
			v = *o.cfg.FailScore
		}
		return Score{
			Value:     clamp(v, 0, MaxScore),
			Rationale: "oracle unavailable: " + cause.Error(),
			Source:    SourceFallback,
		}
	}
	s := o.fallback.Score(ctx, sig)
	s.Rationale = fmt.Sprintf("oracle unavailable (%v); %s", cause, s.Rationale)
	s.Source = SourceFallback
	return s
}

func (o *Oracle) ask(ctx context.Context, sig strategy.Signal) (Score, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:          o.cfg.Model,
		Messages:       []chatMessage{{Role: "user", Content: Prompt(sig, o.cfg.Checklist)}},
		Temperature:    o.cfg.Temperature,
		MaxTokens:      o.cfg.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return Score{}, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(o.cfg.Endpoint, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Score{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Score{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Score{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Score{}, fmt.Errorf("API error %d: %s", resp.StatusCode, truncate(string(raw), maxRationale))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return Score{}, fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return Score{}, errors.New("no response choices returned")
	}
	return parseVerdict(cr.Choices[0].Message.Content)
}

// parseVerdict extracts {"score": n, "reasoning": "..."} from the model
// output. Text around the outermost braces is ignored.
func parseVerdict(content string) (Score, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Score{}, fmt.Errorf("no JSON object in %q", truncate(content, 80))
	}

	var v verdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &v); err != nil {
		return Score{}, fmt.Errorf("malformed verdict: %w", err)
	}
	if v.Score == nil {
		return Score{}, errors.New("verdict has no score")
	}
	if *v.Score < 0 || *v.Score > MaxScore {
		return Score{}, fmt.Errorf("score %.2f out of range", *v.Score)
	}

	r := strings.TrimSpace(v.Reasoning)
	if r == "" {
		r = "no reasoning"
	}
	return Score{Value: *v.Score, Rationale: truncate(r, maxRationale), Source: SourceOracle}, nil
}

// Prompt renders the fixed-size description of sig sent to the oracle.
func Prompt(sig strategy.Signal, checklist int) string {
	side := "BUY"
	if sig.Direction == strategy.Short {
		side = "SELL"
	}
	names := make([]string, len(sig.Factors))
	for i, f := range sig.Factors {
		names[i] = string(f)
	}
	conf := fmt.Sprintf("%d factors", sig.Confluence)
	if checklist > 0 {
		conf = fmt.Sprintf("%d/%d factors", sig.Confluence, checklist)
	}

	var b strings.Builder
	b.WriteString("Analyze this index trade setup.\n")
	fmt.Fprintf(&b, "Type: %s @ %.2f\n", side, sig.Entry)
	fmt.Fprintf(&b, "Confluence: %s\n", conf)
	fmt.Fprintf(&b, "Reasons: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "ADX: %.1f (trend strength)\n", sig.ADX)
	fmt.Fprintf(&b, "Volume ratio: %.2f\n", sig.VolumeRatio)
	b.WriteString("Rate confidence 0-10. Be strict. >9.0 requires a perfect setup.\n")
	b.WriteString(`Return JSON: {"score": float, "reasoning": "short explanation"}`)
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
