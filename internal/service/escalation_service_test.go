package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/mailer"
)

type emailRecorder struct {
	mu       sync.Mutex
	messages []mailer.Message
	accept   bool
}

func (r *emailRecorder) Dispatch(ctx context.Context, msg mailer.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.accept
}

type lockerStub struct {
	err      error
	acquired int
	released int
}

func (l *lockerStub) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

type escalationFixture struct {
	store  *memStore
	repo   *memGrievances
	notes  *notifierRecorder
	emails *emailRecorder
	locker *lockerStub
	svc    *EscalationService
	now    time.Time
}

func newEscalationFixture(t *testing.T) *escalationFixture {
	t.Helper()
	store := newMemStore()
	store.addUser("citizen", "citizen", "citizen@example.com", false)
	admin := store.addUser("admin", "admin", "admin@example.com", true)
	f := &escalationFixture{
		store:  store,
		repo:   &memGrievances{memStore: store},
		notes:  &notifierRecorder{},
		emails: &emailRecorder{accept: true},
		locker: &lockerStub{},
		now:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewEscalationService(&passthroughTx{}, f.repo, superusers{users: []models.User{admin}}, f.notes, f.emails, f.locker,
		EscalationConfig{Level1Hours: 0, Level2Hours: 48, AdminEmail: "ops@example.com"}, nil, zap.NewNop())
	return f
}

func (f *escalationFixture) overdue(hours float64, level int) *models.Grievance {
	g := f.store.addGrievance("citizen", strPtr(catRoads), models.StatusPending)
	g.DueDate = f.now.Add(-time.Duration(hours * float64(time.Hour)))
	g.EscalationLevel = level
	return g
}

func TestNextEscalationLevel(t *testing.T) {
	cases := []struct {
		name    string
		current int
		hours   float64
		want    int
	}{
		{"not overdue", 0, -1, 0},
		{"just overdue", 0, 0, 1},
		{"past both thresholds enters one level", 0, 100, 1},
		{"level one below critical", 1, 47.9, 0},
		{"level one at critical", 1, 48, 2},
		{"level two stays", 2, 500, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nextEscalationLevel(tc.current, tc.hours, 0, 48))
		})
	}
}

func TestSweepAdvancesOneLevelPerSweep(t *testing.T) {
	f := newEscalationFixture(t)
	g := f.overdue(100, models.EscalationNone)
	ctx := context.Background()

	first, err := f.svc.Sweep(ctx, f.now)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, models.EscalationLevel1, first[0].EscalationLevel)
	assert.Equal(t, models.EscalationLevel1, f.store.grievances[g.ID].EscalationLevel)

	second, err := f.svc.Sweep(ctx, f.now)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, models.EscalationLevel2, f.store.grievances[g.ID].EscalationLevel)
	require.NotNil(t, f.store.grievances[g.ID].LastEscalatedAt)

	third, err := f.svc.Sweep(ctx, f.now)
	require.NoError(t, err)
	assert.Empty(t, third)
	assert.Equal(t, models.EscalationLevel2, f.store.grievances[g.ID].EscalationLevel)

	require.Len(t, f.emails.messages, 2)
	assert.Equal(t, "Grievance Overdue (Level 1)", f.emails.messages[0].Subject)
	assert.Equal(t, "CRITICAL: Grievance Escalation (Level 2)", f.emails.messages[1].Subject)
	assert.Equal(t, []string{"admin@example.com", "ops@example.com"}, f.emails.messages[0].To)
}

func TestSweepBetweenThresholdsStopsAtLevelOne(t *testing.T) {
	f := newEscalationFixture(t)
	g := f.overdue(30, models.EscalationNone)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Sweep(context.Background(), f.now)
		require.NoError(t, err)
	}
	assert.Equal(t, models.EscalationLevel1, f.store.grievances[g.ID].EscalationLevel)
	assert.Len(t, f.notes.titled("Escalation Level 1"), 1)
}

func TestSweepIgnoresResolvedAndOnTime(t *testing.T) {
	f := newEscalationFixture(t)
	resolved := f.overdue(100, models.EscalationNone)
	resolved.Status = models.StatusResolved
	onTime := f.store.addGrievance("citizen", nil, models.StatusInProgress)
	onTime.DueDate = f.now.Add(time.Hour)

	escalated, err := f.svc.Sweep(context.Background(), f.now)
	require.NoError(t, err)
	assert.Empty(t, escalated)
	assert.Empty(t, f.emails.messages)
	assert.Empty(t, f.notes.calls)
}

func TestSweepPersistsLevelWhenEmailFails(t *testing.T) {
	f := newEscalationFixture(t)
	f.emails.accept = false
	g := f.overdue(60, models.EscalationLevel1)

	escalated, err := f.svc.Sweep(context.Background(), f.now)
	require.NoError(t, err)
	require.Len(t, escalated, 1)
	assert.Equal(t, models.EscalationLevel2, f.store.grievances[g.ID].EscalationLevel)

	calls := f.notes.titled("Escalation Level 2")
	require.Len(t, calls, 1)
	assert.Equal(t, "admin", calls[0].UserID)
	assert.Equal(t, "Grievance '"+g.Title+"' is overdue and needs attention.", calls[0].Message)
}

func TestSweepLogsUndeliveredAlerts(t *testing.T) {
	f := newEscalationFixture(t)
	core, logs := observer.New(zapcore.WarnLevel)
	f.svc.logger = zap.New(core)
	f.emails.accept = false
	f.notes.failWith = errors.New("insert failed")
	g := f.overdue(10, models.EscalationNone)

	escalated, err := f.svc.Sweep(context.Background(), f.now)
	require.NoError(t, err)
	require.Len(t, escalated, 1)
	assert.Equal(t, models.EscalationLevel1, f.store.grievances[g.ID].EscalationLevel)

	emailLogs := logs.FilterMessage("escalation email not accepted").All()
	require.Len(t, emailLogs, 1)
	assert.Equal(t, g.ID, emailLogs[0].ContextMap()["grievance_id"])

	notifyLogs := logs.FilterMessage("notification not delivered").All()
	require.Len(t, notifyLogs, 1)
	assert.Equal(t, "admin", notifyLogs[0].ContextMap()["user_id"])
	assert.Equal(t, "Escalation Level 1", notifyLogs[0].ContextMap()["title"])
}

func TestSweepContinuesAfterPerGrievanceFailure(t *testing.T) {
	f := newEscalationFixture(t)
	f.repo.advanceErr = errors.New("deadlock detected")
	f.overdue(10, models.EscalationNone)

	escalated, err := f.svc.Sweep(context.Background(), f.now)
	require.NoError(t, err)
	assert.Empty(t, escalated)
	assert.Empty(t, f.emails.messages)
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	f := newEscalationFixture(t)
	f.locker.err = appErrors.ErrLockNotAcquired
	g := f.overdue(10, models.EscalationNone)

	_, err := f.svc.Sweep(context.Background(), f.now)
	require.ErrorIs(t, err, appErrors.ErrLockNotAcquired)
	assert.Equal(t, models.EscalationNone, f.store.grievances[g.ID].EscalationLevel)
}

func TestSweepReleasesLock(t *testing.T) {
	f := newEscalationFixture(t)
	f.overdue(10, models.EscalationNone)

	_, err := f.svc.Sweep(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, f.locker.acquired)
	assert.Equal(t, 1, f.locker.released)
}

func TestEscalationBodyFallsBackForMissingCategory(t *testing.T) {
	detail := models.GrievanceDetail{
		Grievance:     models.Grievance{Title: "Pothole", DueDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		OwnerUsername: "citizen",
	}
	body := escalationBody(detail, 2)
	assert.True(t, strings.HasPrefix(body, "Grievance Escalation Level 2\n\n"))
	assert.Contains(t, body, "Category: N/A")
	assert.Contains(t, body, "User: citizen")
	assert.True(t, strings.HasSuffix(body, "Please take immediate action."))
}
