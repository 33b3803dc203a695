package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"alcyxob/routine-planner/internal/domain"
	"alcyxob/routine-planner/internal/logger"
	"alcyxob/routine-planner/internal/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanGenerator writes workout content for a set of scheduled dates.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, userID primitive.ObjectID, profile domain.TrainingProfile, dates []domain.Date) ([]domain.Workout, error)
}

const generatorSystemPrompt = `You are a personal trainer writing a training block.
Write exactly one workout for every date you are given, using only the listed equipment.
Answer with a single JSON object and nothing else, in this shape:
{"workouts":[{"date":"YYYY-MM-DD","name":"...","exercises":[{"name":"...","metadata":{"muscleGroup":"..."},
"sets":{"count":3,"restMinutes":1.5,"perSet":[{"reps":10,"load":40},{"reps":10,"load":"Bodyweight"}]}}]}]}
"load" is kilograms as a number, or the string "Bodyweight". "perSet" has exactly "count" entries.`

type llmPlanGenerator struct {
	chat *ChatClient
	log  *logger.Logger
}

func NewPlanGenerator(chat *ChatClient, log *logger.Logger) PlanGenerator {
	return &llmPlanGenerator{chat: chat, log: log.With("service", "PlanGenerator")}
}

// GeneratePlan returns workouts sorted by date, one per requested date.
func (g *llmPlanGenerator) GeneratePlan(ctx context.Context, userID primitive.ObjectID, profile domain.TrainingProfile, dates []domain.Date) ([]domain.Workout, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	start := time.Now()
	content, err := g.chat.Complete(ctx, []Message{
		{Role: "system", Content: generatorSystemPrompt},
		{Role: "user", Content: buildGeneratorPrompt(profile, dates)},
	})
	metrics.ObserveExternalCall("generator", err, time.Since(start))
	if err != nil {
		g.log.Warn("plan generation call failed", "userId", userID.Hex(), "error", err)
		return nil, err
	}

	workouts, err := parseWorkouts(content, dates)
	if err != nil {
		g.log.Warn("generated plan rejected", "userId", userID.Hex(), "error", err)
		return nil, err
	}
	g.log.Info("plan generated", "userId", userID.Hex(), "workouts", len(workouts))
	return workouts, nil
}

func buildGeneratorPrompt(profile domain.TrainingProfile, dates []domain.Date) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", orDefault(profile.Goal, "general fitness"))
	fmt.Fprintf(&b, "Experience: %s\n", orDefault(profile.ExperienceLevel, "beginner"))
	if len(profile.Equipment) > 0 {
		fmt.Fprintf(&b, "Equipment: %s\n", strings.Join(profile.Equipment, ", "))
	} else {
		b.WriteString("Equipment: bodyweight only\n")
	}
	if profile.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", profile.Notes)
	}
	b.WriteString("Dates:\n")
	for _, d := range dates {
		fmt.Fprintf(&b, "- %s (%s)\n", d.String(), strings.ToLower(d.Weekday().String()))
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// parseWorkouts decodes the model answer and checks it covers exactly the
// requested dates.
func parseWorkouts(content string, dates []domain.Date) ([]domain.Workout, error) {
	var raw struct {
		Workouts []domain.Workout `json:"workouts"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	wanted := make(map[domain.Date]bool, len(dates))
	for _, d := range dates {
		wanted[d] = false
	}
	for i := range raw.Workouts {
		w := &raw.Workouts[i]
		seen, ok := wanted[w.Date]
		if !ok {
			return nil, fmt.Errorf("%w: unexpected date %s", ErrMalformedResponse, w.Date)
		}
		if seen {
			return nil, fmt.Errorf("%w: duplicate date %s", ErrMalformedResponse, w.Date)
		}
		wanted[w.Date] = true
		for j := range w.Exercises {
			sets := &w.Exercises[j].Sets
			if sets.Count == 0 {
				sets.Count = len(sets.PerSet)
			}
		}
	}
	for d, seen := range wanted {
		if !seen {
			return nil, fmt.Errorf("%w: no workout for %s", ErrMalformedResponse, d)
		}
	}
	domain.SortWorkouts(raw.Workouts)
	return raw.Workouts, nil
}
