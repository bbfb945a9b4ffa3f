package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tikhomirovv/tg-moderator-ai/internal/infra/httpclient"
)

// ErrEmptyResponse marks a transient judge failure: the model returned no
// usable completion at all. The caller treats it as "skip this message" and
// mutates no state. A present-but-unparseable completion is NOT an error;
// it degrades to a safe non-violating verdict instead.
var ErrEmptyResponse = errors.New("empty response from judge")

// Client calls an OpenAI-compatible /v1/chat/completions endpoint and turns
// the completion into a Verdict. Works with OpenAI, vLLM, OpenRouter and
// other compatible backends.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewClient builds a judge client. cfg.BaseURL must carry the API version
// prefix (e.g. https://api.openai.com/v1); /chat/completions is appended
// per request.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("judge base url is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("judge model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      strings.TrimSpace(cfg.Model),
		httpClient: httpclient.New(cfg.Timeout),
		logger:     logger,
	}, nil
}

// Evaluate runs one judgment call. Transport failures and empty completions
// return an error; malformed completion content returns a safe verdict.
func (c *Client) Evaluate(ctx context.Context, req Request) (Verdict, error) {
	prompt := BuildPrompt(req.Message, req.Rules, req.Context)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal judge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("build judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Verdict{}, fmt.Errorf("judge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp chatErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return Verdict{}, fmt.Errorf("judge api error: %s", errResp.Error.Message)
		}
		return Verdict{}, fmt.Errorf("judge api error: %s", resp.Status)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return Verdict{}, fmt.Errorf("decode judge response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return Verdict{}, ErrEmptyResponse
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if content == "" {
		return Verdict{}, ErrEmptyResponse
	}

	knownRules := make(map[string]struct{}, len(req.Rules))
	for _, rule := range req.Rules {
		knownRules[rule.ID] = struct{}{}
	}

	verdict, ok := parseVerdict(content, knownRules)
	if !ok {
		c.logger.Warn("unparseable judge response, degrading to no violation",
			zap.String("raw_response", content))
	}

	return verdict, nil
}

// parseVerdict extracts the JSON object from the completion text and
// normalizes it. Any parse failure yields a non-violating verdict with zero
// confidence so the message flow continues; ok reports whether the content
// parsed cleanly.
func parseVerdict(content string, knownRules map[string]struct{}) (Verdict, bool) {
	safe := Verdict{ViolationDetected: false, Confidence: 0, Reasoning: "parse error"}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return safe, false
	}

	var raw struct {
		ViolationDetected bool            `json:"violation_detected"`
		RuleViolated      string          `json:"rule_violated"`
		Confidence        json.RawMessage `json:"confidence"`
		Reasoning         string          `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return safe, false
	}

	verdict := Verdict{
		ViolationDetected: raw.ViolationDetected,
		RuleViolated:      strings.TrimSpace(raw.RuleViolated),
		Confidence:        clampConfidence(coerceNumber(raw.Confidence)),
		Reasoning:         raw.Reasoning,
	}
	if verdict.Reasoning == "" {
		verdict.Reasoning = "no reasoning provided"
	}

	// The judge may only reference rules it was given. An invented id is
	// dropped; the violation flag itself stands.
	if verdict.RuleViolated != "" {
		if _, ok := knownRules[verdict.RuleViolated]; !ok {
			verdict.RuleViolated = ""
		}
	}

	return verdict, true
}

// coerceNumber tolerates confidence arriving as a number, a quoted number,
// or garbage (which counts as zero).
func coerceNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return parsed
		}
	}

	return 0
}

func clampConfidence(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
