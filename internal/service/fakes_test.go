package service

import (
	"alcyxob/routine-planner/internal/domain"
	"alcyxob/routine-planner/internal/repository"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory stand-in for the Mongo collections. Its
// transactor snapshots every collection and restores it when fn fails.
type memStore struct {
	mu        sync.Mutex
	users     map[primitive.ObjectID]domain.User
	periods   map[primitive.ObjectID]domain.RoutinePeriod
	days      map[primitive.ObjectID]domain.ScheduledDay
	reports   []domain.FailureReport
	plans     map[primitive.ObjectID]*domain.TrainingPlan
	snapshots []domain.PlanSnapshot

	planErr     error // returned by GetByUserID when set
	savePlanErr error // returned by Save when set
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[primitive.ObjectID]domain.User),
		periods: make(map[primitive.ObjectID]domain.RoutinePeriod),
		days:    make(map[primitive.ObjectID]domain.ScheduledDay),
		plans:   make(map[primitive.ObjectID]*domain.TrainingPlan),
	}
}

type memState struct {
	periods map[primitive.ObjectID]domain.RoutinePeriod
	days    map[primitive.ObjectID]domain.ScheduledDay
	plans   map[primitive.ObjectID]*domain.TrainingPlan
}

func (s *memStore) snapshot() memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := memState{
		periods: make(map[primitive.ObjectID]domain.RoutinePeriod, len(s.periods)),
		days:    make(map[primitive.ObjectID]domain.ScheduledDay, len(s.days)),
		plans:   make(map[primitive.ObjectID]*domain.TrainingPlan, len(s.plans)),
	}
	for k, v := range s.periods {
		st.periods[k] = v
	}
	for k, v := range s.days {
		st.days[k] = v
	}
	for k, v := range s.plans {
		st.plans[k] = v.Clone()
	}
	return st
}

func (s *memStore) restore(st memState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods, s.days, s.plans = st.periods, st.days, st.plans
}

// --- Transactor ---

type memTxn struct{ s *memStore }

func (t memTxn) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	st := t.s.snapshot()
	if err := fn(ctx); err != nil {
		t.s.restore(st)
		return err
	}
	return nil
}

// retryTxn reruns fn once on a fresh snapshot after its first successful
// attempt, the way a driver retries a transaction whose commit hit a
// transient error.
type retryTxn struct {
	s        *memStore
	attempts int
}

func (t *retryTxn) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	st := t.s.snapshot()
	t.attempts++
	if err := fn(ctx); err != nil {
		t.s.restore(st)
		return err
	}
	if t.attempts > 1 {
		return nil
	}
	t.s.restore(st)
	return t.WithinTransaction(ctx, fn)
}

// --- Users ---

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(_ context.Context, u *domain.User) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	r.s.users[u.ID] = *u
	return u.ID, nil
}

func (r memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUserRepo) UpdateProfile(_ context.Context, id primitive.ObjectID, p domain.TrainingProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Profile = p
	r.s.users[id] = u
	return nil
}

// --- Periods ---

type memPeriodRepo struct{ s *memStore }

func (r memPeriodRepo) Create(_ context.Context, p *domain.RoutinePeriod) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == primitive.NilObjectID {
		p.ID = primitive.NewObjectID()
	}
	r.s.periods[p.ID] = *p
	return p.ID, nil
}

func (r memPeriodRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.RoutinePeriod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.periods[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memPeriodRepo) GetCurrent(_ context.Context, userID primitive.ObjectID, today domain.Date) (*domain.RoutinePeriod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *domain.RoutinePeriod
	for _, p := range r.s.periods {
		if p.UserID != userID || p.EndDate.Before(today) {
			continue
		}
		if best == nil || p.StartDate.After(best.StartDate) {
			cp := p
			best = &cp
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r memPeriodRepo) ListEndingOn(_ context.Context, date domain.Date) ([]domain.RoutinePeriod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.RoutinePeriod
	for _, p := range r.s.periods {
		if p.EndDate == date {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPeriodRepo) ExistsStartingOn(_ context.Context, userID primitive.ObjectID, date domain.Date) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.periods {
		if p.UserID == userID && p.StartDate == date {
			return true, nil
		}
	}
	return false, nil
}

func (r memPeriodRepo) UpdateWindow(_ context.Context, id primitive.ObjectID, end domain.Date, sessionStart, sessionEnd string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.periods[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.EndDate, p.SessionStart, p.SessionEnd = end, sessionStart, sessionEnd
	r.s.periods[id] = p
	return nil
}

// --- Scheduled days ---

type memDayRepo struct{ s *memStore }

func (r memDayRepo) CreateMany(_ context.Context, days []domain.ScheduledDay) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range days {
		for _, existing := range r.s.days {
			if existing.UserID == d.UserID && existing.Weekday == d.Weekday && existing.Date == d.Date {
				return repository.ErrDuplicate
			}
		}
	}
	for i := range days {
		if days[i].ID == primitive.NilObjectID {
			days[i].ID = primitive.NewObjectID()
		}
		r.s.days[days[i].ID] = days[i]
	}
	return nil
}

func (r memDayRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ScheduledDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.days[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r memDayRepo) FindConflicts(_ context.Context, userID primitive.ObjectID, candidates []domain.DayConflict) ([]domain.DayConflict, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.DayConflict
	for _, c := range candidates {
		for _, d := range r.s.days {
			if d.UserID == userID && d.Weekday == c.Weekday && d.Date == c.Date {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (r memDayRepo) filter(keep func(domain.ScheduledDay) bool) []domain.ScheduledDay {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ScheduledDay
	for _, d := range r.s.days {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (r memDayRepo) ListByPeriod(_ context.Context, periodID primitive.ObjectID) ([]domain.ScheduledDay, error) {
	return r.filter(func(d domain.ScheduledDay) bool { return d.PeriodID == periodID }), nil
}

func (r memDayRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.ScheduledDay, error) {
	return r.filter(func(d domain.ScheduledDay) bool { return d.UserID == userID }), nil
}

func (r memDayRepo) ListByUserAndStatus(_ context.Context, userID primitive.ObjectID, status domain.DayStatus) ([]domain.ScheduledDay, error) {
	return r.filter(func(d domain.ScheduledDay) bool { return d.UserID == userID && d.Status == status }), nil
}

func (r memDayRepo) DistinctWeekdays(_ context.Context, periodID primitive.ObjectID) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, d := range r.filter(func(d domain.ScheduledDay) bool { return d.PeriodID == periodID }) {
		if !seen[d.Weekday] {
			seen[d.Weekday] = true
			out = append(out, d.Weekday)
		}
	}
	return out, nil
}

func (r memDayRepo) MarkPendingFailedInPeriod(_ context.Context, periodID primitive.ObjectID, through domain.Date) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, d := range r.s.days {
		if d.PeriodID == periodID && d.Status == domain.DayPending && !d.Date.After(through) {
			d.Status = domain.DayFailed
			r.s.days[id] = d
			n++
		}
	}
	return n, nil
}

func (r memDayRepo) MovePendingAfter(_ context.Context, periodID primitive.ObjectID, after domain.Date, to *domain.RoutinePeriod) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, d := range r.s.days {
		if d.PeriodID == periodID && d.Status == domain.DayPending && d.Date.After(after) {
			d.PeriodID, d.PeriodStart, d.PeriodEnd = to.ID, to.StartDate, to.EndDate
			r.s.days[id] = d
			n++
		}
	}
	return n, nil
}

func (r memDayRepo) MarkFailed(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if d, ok := r.s.days[id]; ok && d.Status == domain.DayPending {
			d.Status = domain.DayFailed
			r.s.days[id] = d
			n++
		}
	}
	return n, nil
}

func (r memDayRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to domain.DayStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.days[id]
	if !ok || d.Status != from {
		return repository.ErrUpdateFailed
	}
	d.Status = to
	r.s.days[id] = d
	return nil
}

func (r memDayRepo) Delete(_ context.Context, id, userID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.days[id]
	if !ok || d.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.s.days, id)
	return nil
}

// --- Failure reports ---

type memReportRepo struct{ s *memStore }

func (r memReportRepo) Create(_ context.Context, rep *domain.FailureReport) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep.ID = primitive.NewObjectID()
	rep.CreatedAt = time.Now()
	r.s.reports = append(r.s.reports, *rep)
	return rep.ID, nil
}

func (r memReportRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.FailureReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.FailureReport
	for _, rep := range r.s.reports {
		if rep.UserID == userID {
			out = append(out, rep)
		}
	}
	return out, nil
}

// --- Training plans ---

type memPlanRepo struct{ s *memStore }

func (r memPlanRepo) GetByUserID(_ context.Context, userID primitive.ObjectID) (*domain.TrainingPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.planErr != nil {
		return nil, r.s.planErr
	}
	p, ok := r.s.plans[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p.Clone(), nil
}

func (r memPlanRepo) Save(_ context.Context, plan *domain.TrainingPlan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.savePlanErr != nil {
		return r.s.savePlanErr
	}
	if current, ok := r.s.plans[plan.UserID]; ok && current.Version != plan.Version {
		return repository.ErrVersionConflict
	}
	if plan.ID == primitive.NilObjectID {
		plan.ID = primitive.NewObjectID()
	}
	plan.Version++
	plan.SchemaVersion = domain.CurrentPlanSchemaVersion
	r.s.plans[plan.UserID] = plan.Clone()
	return nil
}

// --- Plan snapshots ---

type memSnapshotRepo struct{ s *memStore }

func (r memSnapshotRepo) Create(_ context.Context, snap *domain.PlanSnapshot) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.snapshots {
		if existing.UserID == snap.UserID && existing.PlanVersion == snap.PlanVersion {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	snap.ID = primitive.NewObjectID()
	r.s.snapshots = append(r.s.snapshots, *snap)
	return snap.ID, nil
}

func (r memSnapshotRepo) GetByVersion(_ context.Context, userID primitive.ObjectID, version int64) (*domain.PlanSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, snap := range r.s.snapshots {
		if snap.UserID == userID && snap.PlanVersion == version {
			cp := snap
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memSnapshotRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.PlanSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.PlanSnapshot
	for _, snap := range r.s.snapshots {
		if snap.UserID == userID {
			out = append(out, snap)
		}
	}
	return out, nil
}

// --- Collaborators ---

type fakeAdvisor struct {
	adj   domain.Adjustment
	err   error
	calls int
}

func (f *fakeAdvisor) SuggestAdjustment(context.Context, domain.FailureReason, string) (domain.Adjustment, error) {
	f.calls++
	return f.adj, f.err
}

type fakeGenerator struct {
	mu    sync.Mutex
	err   error
	calls [][]domain.Date
}

func (f *fakeGenerator) GeneratePlan(_ context.Context, _ primitive.ObjectID, _ domain.TrainingProfile, dates []domain.Date) ([]domain.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dates)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Workout, len(dates))
	for i, d := range dates {
		out[i] = workout(d, 10, domain.KgLoad(20))
	}
	return out, nil
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived []int64
}

func (f *fakeArchiver) Archive(_ context.Context, plan *domain.TrainingPlan, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, plan.Version)
}

type fakeStorage struct {
	objects map[string][]byte
	putErr  error
}

func newFakeStorage() *fakeStorage { return &fakeStorage{objects: map[string][]byte{}} }

func (f *fakeStorage) PutObject(_ context.Context, key, _ string, body []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = body
	return nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.example/" + key + "?sig=1", nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

// --- Helpers ---

func date(s string) domain.Date {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// at returns a fixed local instant "YYYY-MM-DD HH:MM" in UTC.
func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

// workout builds a one-exercise workout with two identical sets.
func workout(d domain.Date, reps int, load domain.Load) domain.Workout {
	return domain.Workout{
		Date: d,
		Name: "Session " + d.String(),
		Exercises: []domain.Exercise{{
			Name: "Squat",
			Sets: domain.SetScheme{
				Count:       2,
				RestMinutes: 1.5,
				PerSet:      []domain.SetSpec{{Reps: reps, Load: load}, {Reps: reps, Load: load}},
			},
		}},
	}
}

// seedDay stores a pending day for userID on d.
func (s *memStore) seedDay(userID, periodID primitive.ObjectID, d domain.Date, status domain.DayStatus) domain.ScheduledDay {
	day := domain.ScheduledDay{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		PeriodID:     periodID,
		Weekday:      lowerWeekday(d),
		Date:         d,
		SessionStart: "07:00",
		SessionEnd:   "08:00",
		Status:       status,
	}
	s.mu.Lock()
	s.days[day.ID] = day
	s.mu.Unlock()
	return day
}

func (s *memStore) countDays(userID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.days {
		if d.UserID == userID {
			n++
		}
	}
	return n
}

func (s *memStore) plan(userID primitive.ObjectID) *domain.TrainingPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.plans[userID]; ok {
		return p.Clone()
	}
	return nil
}

func lowerWeekday(d domain.Date) string {
	names := [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	return names[d.Weekday()]
}
