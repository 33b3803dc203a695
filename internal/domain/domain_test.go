package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 28)
	if got := d.AddDays(1).String(); got != "2024-02-29" {
		t.Fatalf("leap day: want=2024-02-29 got=%s", got)
	}
	if got := d.AddDays(30).String(); got != "2024-03-29" {
		t.Fatalf("+30: want=2024-03-29 got=%s", got)
	}
	if got := NewDate(2024, time.December, 31).AddDays(1).String(); got != "2025-01-01" {
		t.Fatalf("year rollover: got=%s", got)
	}
	if d.Display() != "28/02/2024" {
		t.Fatalf("Display: want=28/02/2024 got=%s", d.Display())
	}
	if !d.Before(d.AddDays(1)) || d.After(d) || d.Compare(d) != 0 {
		t.Fatalf("comparison broken")
	}
	if NewDate(2024, time.June, 3).Weekday() != time.Monday {
		t.Fatalf("weekday: 2024-06-03 is a Monday")
	}
}

func TestDateOfKeepsLocalFields(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	local := time.Date(2024, time.June, 4, 1, 0, 0, 0, loc) // still June 3rd in UTC
	if got := DateOf(local).String(); got != "2024-06-04" {
		t.Fatalf("DateOf: want=2024-06-04 got=%s", got)
	}
}

func TestDateJSONAndBSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d" bson:"d"`
	}
	in := wrapper{D: NewDate(2024, time.June, 10)}

	js, err := json.Marshal(in)
	if err != nil || string(js) != `{"d":"2024-06-10"}` {
		t.Fatalf("json: got=%s err=%v", js, err)
	}
	var back wrapper
	if err := json.Unmarshal(js, &back); err != nil || back.D != in.D {
		t.Fatalf("json round trip: got=%v err=%v", back.D, err)
	}
	if err := json.Unmarshal([]byte(`{"d":"10/06/2024"}`), &back); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}

	raw, err := bson.Marshal(in)
	if err != nil {
		t.Fatalf("bson.Marshal: %v", err)
	}
	if got := bson.Raw(raw).Lookup("d").StringValue(); got != "2024-06-10" {
		t.Fatalf("bson stored as: %q", got)
	}
	var fromBSON wrapper
	if err := bson.Unmarshal(raw, &fromBSON); err != nil || fromBSON.D != in.D {
		t.Fatalf("bson round trip: got=%v err=%v", fromBSON.D, err)
	}
}

func TestLoadEncoding(t *testing.T) {
	var sets []SetSpec
	err := json.Unmarshal([]byte(`[{"reps":10,"load":50},{"reps":12,"load":"Bodyweight"},{"reps":8,"load":"bodyweight"},{"reps":5,"load":"22.5"}]`), &sets)
	if err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if sets[0].Load != KgLoad(50) || !sets[1].Load.Bodyweight || !sets[2].Load.Bodyweight || sets[3].Load != KgLoad(22.5) {
		t.Fatalf("decoded loads: %+v", sets)
	}
	out, _ := json.Marshal(sets[1])
	if string(out) != `{"reps":12,"load":"Bodyweight"}` {
		t.Fatalf("json.Marshal bodyweight: %s", out)
	}

	if err := json.Unmarshal([]byte(`{"reps":1,"load":"heavy"}`), &sets[0]); !errors.Is(err, ErrPlanSchema) {
		t.Fatalf("want ErrPlanSchema, got=%v", err)
	}

	doc := struct {
		L Load `bson:"l"`
	}{L: BodyweightLoad()}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("bson.Marshal: %v", err)
	}
	doc.L = KgLoad(1)
	if err := bson.Unmarshal(raw, &doc); err != nil || !doc.L.Bodyweight {
		t.Fatalf("bson bodyweight round trip: %+v err=%v", doc.L, err)
	}

	intDoc, _ := bson.Marshal(bson.M{"l": int32(40)})
	if err := bson.Unmarshal(intDoc, &doc); err != nil || doc.L != KgLoad(40) {
		t.Fatalf("bson int32 load: %+v err=%v", doc.L, err)
	}
}

func sampleWorkout() Workout {
	return Workout{
		Date: NewDate(2024, time.June, 3),
		Name: "Upper body",
		Exercises: []Exercise{{
			Name: "Bench press",
			Sets: SetScheme{Count: 2, RestMinutes: 1.5, PerSet: []SetSpec{
				{Reps: 10, Load: KgLoad(50)},
				{Reps: 10, Load: BodyweightLoad()},
			}},
		}, {
			Name: "Plank",
			Sets: SetScheme{Count: 1, RestMinutes: 1, PerSet: []SetSpec{{Reps: 1, Load: BodyweightLoad()}}},
		}},
	}
}

func TestWorkoutApplyAdjustment(t *testing.T) {
	w := sampleWorkout()
	w.Apply(Adjustment{RepsReductionPct: 30, LoadReductionPct: 40, RestIncreaseMinutes: 0.5})

	bench := w.Exercises[0].Sets
	if bench.Count != 2 || len(bench.PerSet) != 2 {
		t.Fatalf("set count changed: %+v", bench)
	}
	if bench.PerSet[0].Reps != 7 || bench.PerSet[0].Load != KgLoad(30) {
		t.Fatalf("weighted set: want {7 30} got=%+v", bench.PerSet[0])
	}
	if bench.PerSet[1].Reps != 7 || !bench.PerSet[1].Load.Bodyweight {
		t.Fatalf("bodyweight set: want {7 Bodyweight} got=%+v", bench.PerSet[1])
	}
	if bench.RestMinutes != 2 {
		t.Fatalf("rest: want=2 got=%v", bench.RestMinutes)
	}
	if got := w.Exercises[1].Sets.PerSet[0].Reps; got != 1 {
		t.Fatalf("reps floor at 1: got=%d", got)
	}
}

func TestWorkoutApplyZeroAdjustmentIsNoop(t *testing.T) {
	w := sampleWorkout()
	w.Apply(Adjustment{})
	if w.Exercises[0].Sets.PerSet[0] != (SetSpec{Reps: 10, Load: KgLoad(50)}) || w.Exercises[0].Sets.RestMinutes != 1.5 {
		t.Fatalf("zero adjustment mutated workout: %+v", w.Exercises[0].Sets)
	}
}

func TestAdjustmentValidate(t *testing.T) {
	ok := []Adjustment{
		{RepsReductionPct: 25, LoadReductionPct: 50, RestIncreaseMinutes: 0.5},
		{RepsReductionPct: 50, LoadReductionPct: 25, RestIncreaseMinutes: 1},
	}
	for _, a := range ok {
		if err := a.Validate(); err != nil {
			t.Fatalf("Validate(%+v): %v", a, err)
		}
	}
	bad := []Adjustment{
		{RepsReductionPct: 24.9, LoadReductionPct: 30, RestIncreaseMinutes: 0.5},
		{RepsReductionPct: 30, LoadReductionPct: 51, RestIncreaseMinutes: 0.5},
		{RepsReductionPct: 30, LoadReductionPct: 30, RestIncreaseMinutes: 1.5},
		{},
	}
	for _, a := range bad {
		if err := a.Validate(); !errors.Is(err, ErrAdjustmentOutOfRange) {
			t.Fatalf("Validate(%+v): want ErrAdjustmentOutOfRange got=%v", a, err)
		}
	}
}

func TestPlanMigrateAndUpsert(t *testing.T) {
	legacy := &TrainingPlan{Workouts: []Workout{sampleWorkout()}}
	legacy.Workouts[0].Exercises[0].Sets.Count = 0
	if err := legacy.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if legacy.SchemaVersion != CurrentPlanSchemaVersion || legacy.Workouts[0].Exercises[0].Sets.Count != 2 {
		t.Fatalf("migration did not fill set count: %+v", legacy.Workouts[0].Exercises[0].Sets)
	}

	future := &TrainingPlan{SchemaVersion: CurrentPlanSchemaVersion + 1}
	if err := future.Migrate(); !errors.Is(err, ErrPlanSchema) {
		t.Fatalf("want ErrPlanSchema for unknown version, got=%v", err)
	}
	undated := &TrainingPlan{SchemaVersion: CurrentPlanSchemaVersion, Workouts: []Workout{{Name: "x"}}}
	if err := undated.Migrate(); !errors.Is(err, ErrPlanSchema) {
		t.Fatalf("want ErrPlanSchema for undated workout, got=%v", err)
	}

	plan := &TrainingPlan{Workouts: []Workout{{Date: NewDate(2024, 6, 17), Name: "b"}, {Date: NewDate(2024, 6, 10), Name: "a"}}}
	plan.Upsert(Workout{Date: NewDate(2024, 6, 10), Name: "a2"})
	plan.Upsert(Workout{Date: NewDate(2024, 6, 3), Name: "z"})
	plan.SortWorkouts()
	names := []string{plan.Workouts[0].Name, plan.Workouts[1].Name, plan.Workouts[2].Name}
	if names[0] != "z" || names[1] != "a2" || names[2] != "b" {
		t.Fatalf("upsert/sort: got=%v", names)
	}

	clone := plan.Clone()
	clone.Workouts[0].Name = "changed"
	if plan.Workouts[0].Name != "z" {
		t.Fatalf("Clone shares workouts")
	}
}
