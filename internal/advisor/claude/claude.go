package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"swarm-trading-bot/internal/store"
	"swarm-trading-bot/internal/trace"
	"swarm-trading-bot/internal/types"
)

// Advisor queries the Anthropic messages API.
type Advisor struct {
	cfg      *store.Config
	endpoint string
}

func New(cfg *store.Config) *Advisor {
	endpoint := "https://api.anthropic.com/v1/messages"
	// Proxy/bedrock/vertex deployments override via CLAUDE_API_ENDPOINT.
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &Advisor{cfg: cfg, endpoint: endpoint}
}

func (a *Advisor) Name() string { return "claude" }

type wire struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

func (a *Advisor) Signal(ctx context.Context, mctx types.MarketContext) (types.Signal, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return types.Signal{}, errors.New("CLAUDE_API_KEY missing")
	}

	stateB, _ := json.Marshal(mctx)
	system := a.cfg.LLM.System
	if system == "" {
		system = "You are a disciplined crypto trader. Output STRICT JSON with BUY/SELL/HOLD and a 0-100 confidence."
	}
	user := fmt.Sprintf("Schema:%s\nState:%s\n\nRespond ONLY with compact JSON matching the schema.", a.cfg.LLM.Schema, string(stateB))

	reqBody := map[string]any{
		"model":       a.cfg.LLM.Model,
		"system":      system,
		"messages":    []map[string]string{{"role": "user", "content": user}},
		"max_tokens":  a.cfg.LLM.MaxTokens,
		"temperature": a.cfg.LLM.Temperature,
	}

	bb, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, "POST", a.endpoint, bytes.NewReader(bb))
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return types.Signal{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return types.Signal{}, fmt.Errorf("claude http %d: %s", resp.StatusCode, string(body))
	}

	var r struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	respBytes, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(respBytes, &r); err != nil || len(r.Content) == 0 {
		return parseSignalFromText(string(respBytes)), nil
	}

	var text string
	for _, c := range r.Content {
		if c.Type == "text" {
			text = c.Text
			break
		}
	}
	return parseSignalFromText(text), nil
}

// parseSignalFromText locates a JSON object in the text and normalizes it.
// Anything unparseable becomes a zero-confidence HOLD.
func parseSignalFromText(text string) types.Signal {
	t := strings.TrimSpace(text)

	raw := t
	if !strings.HasPrefix(t, "{") {
		start := strings.Index(t, "{")
		end := strings.LastIndex(t, "}")
		if start < 0 || end <= start {
			return types.Signal{Action: types.ActionHold, Confidence: 0, Rationale: "unable_to_parse_output"}
		}
		raw = t[start : end+1]
	}

	var w wire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return types.Signal{Action: types.ActionHold, Confidence: 0, Rationale: "unable_to_parse_output"}
	}

	action := types.Action(strings.ToUpper(strings.TrimSpace(w.Action)))
	if !action.Valid() {
		action = types.ActionHold
	}
	if w.Confidence < 0 || w.Confidence > 100 {
		w.Confidence = 0
	}
	return types.Signal{Action: action, Confidence: w.Confidence, Rationale: w.Rationale}
}
