package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"swarm-trading-bot/internal/store"
	"swarm-trading-bot/internal/trace"
	"swarm-trading-bot/internal/types"
)

type Advisor struct {
	cfg *store.Config
}

func New(cfg *store.Config) *Advisor {
	return &Advisor{cfg: cfg}
}

func (a *Advisor) Name() string { return "openai" }

// wire is the JSON shape the model is asked to produce.
type wire struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

func (a *Advisor) Signal(ctx context.Context, mctx types.MarketContext) (types.Signal, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return types.Signal{}, errors.New("OPENAI_API_KEY missing")
	}

	stateB, _ := json.Marshal(mctx)
	prompt := fmt.Sprintf("You will receive market state as JSON. Respond ONLY with compact JSON matching the schema.\nSchema:%s\nState:%s", a.cfg.LLM.Schema, string(stateB))

	body := map[string]any{
		"model":       a.cfg.LLM.Model,
		"messages":    []map[string]string{{"role": "system", "content": a.cfg.LLM.System}, {"role": "user", "content": prompt}},
		"temperature": a.cfg.LLM.Temperature,
		"max_tokens":  a.cfg.LLM.MaxTokens,
	}
	bb, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(bb))
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return types.Signal{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return types.Signal{}, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return types.Signal{}, err
	}
	if len(r.Choices) == 0 {
		return types.Signal{}, errors.New("no choices")
	}

	out := strings.TrimSpace(r.Choices[0].Message.Content)

	var w wire
	if err := json.Unmarshal([]byte(out), &w); err != nil {
		// Unparseable model output is a HOLD vote, not a round failure.
		return types.Signal{Action: types.ActionHold, Confidence: 0, Rationale: "invalid_json"}, nil
	}

	w.Action = strings.ToUpper(strings.TrimSpace(w.Action))
	action := types.Action(w.Action)
	if !action.Valid() {
		action = types.ActionHold
	}
	if w.Confidence < 0 || w.Confidence > 100 {
		w.Confidence = 0
	}

	return types.Signal{Action: action, Confidence: w.Confidence, Rationale: w.Rationale}, nil
}
