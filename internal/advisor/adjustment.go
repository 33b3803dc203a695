package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"alcyxob/routine-planner/internal/domain"
	"alcyxob/routine-planner/internal/logger"
	"alcyxob/routine-planner/internal/metrics"
)

// Advisor proposes how much to lighten upcoming workouts after a failure.
type Advisor interface {
	SuggestAdjustment(ctx context.Context, reason domain.FailureReason, description string) (domain.Adjustment, error)
}

const adjustmentSystemPrompt = `You are a strength and conditioning coach. An athlete could not complete a scheduled training session.
Given the reason and their description, decide how much to lighten the upcoming sessions.
Answer with a single JSON object and nothing else:
{"repsReductionPct": <number 25-50>, "loadReductionPct": <number 25-50>, "restIncreaseMinutes": <number 0.5-1>}`

type llmAdvisor struct {
	chat *ChatClient
	log  *logger.Logger
}

// NewAdvisor builds an Advisor on top of a chat completions endpoint.
func NewAdvisor(chat *ChatClient, log *logger.Logger) Advisor {
	return &llmAdvisor{chat: chat, log: log.With("service", "Advisor")}
}

// SuggestAdjustment only decodes the answer; range checks belong to the caller.
func (a *llmAdvisor) SuggestAdjustment(ctx context.Context, reason domain.FailureReason, description string) (domain.Adjustment, error) {
	start := time.Now()
	content, err := a.chat.Complete(ctx, []Message{
		{Role: "system", Content: adjustmentSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Reason: %s\nDescription: %s", reason, description)},
	})
	metrics.ObserveExternalCall("advisor", err, time.Since(start))
	if err != nil {
		a.log.Warn("advisor call failed", "reason", reason, "error", err)
		return domain.Adjustment{}, err
	}

	adj, err := parseAdjustment(content)
	if err != nil {
		a.log.Warn("advisor answer rejected", "reason", reason, "content", truncate(content, 200), "error", err)
		return domain.Adjustment{}, err
	}
	return adj, nil
}

func parseAdjustment(content string) (domain.Adjustment, error) {
	// Pointers so a missing key is distinguishable from 0.
	var raw struct {
		Reps *float64 `json:"repsReductionPct"`
		Load *float64 `json:"loadReductionPct"`
		Rest *float64 `json:"restIncreaseMinutes"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return domain.Adjustment{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Reps == nil || raw.Load == nil || raw.Rest == nil {
		return domain.Adjustment{}, fmt.Errorf("%w: missing field", ErrMalformedResponse)
	}
	return domain.Adjustment{
		RepsReductionPct:    *raw.Reps,
		LoadReductionPct:    *raw.Load,
		RestIncreaseMinutes: *raw.Rest,
	}, nil
}
