package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
)

// passthroughTx runs fn without a real transaction; the fakes ignore q.
type passthroughTx struct {
	calls int
	err   error
}

func (p *passthroughTx) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	p.calls++
	if p.err != nil {
		return p.err
	}
	return fn(nil)
}

// memStore is a small in-memory database shared by the officer, assignment and
// grievance fakes.
type memStore struct {
	mu          sync.Mutex
	users       map[string]models.User
	officers    []*models.Officer
	categories  map[string]map[string]bool // officer id -> category ids
	grievances  map[string]*models.Grievance
	assignments []*models.Assignment
	history     []models.StatusHistory
	clock       time.Time
	seq         int
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[string]models.User{},
		categories: map[string]map[string]bool{},
		grievances: map[string]*models.Grievance{},
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addUser(id, username, email string, superuser bool) models.User {
	u := models.User{ID: id, Username: username, Email: email, IsSuperuser: superuser, Role: models.RoleCitizen}
	if superuser {
		u.Role = models.RoleAdmin
	}
	m.users[id] = u
	return u
}

func (m *memStore) addOfficer(id string, active bool, categoryIDs ...string) *models.Officer {
	userID := "user-" + id
	m.addUser(userID, id, id+"@example.com", false)
	o := &models.Officer{ID: id, UserID: userID, Username: id, IsActive: active, CreatedAt: m.tick()}
	m.officers = append(m.officers, o)
	cats := map[string]bool{}
	for _, c := range categoryIDs {
		cats[c] = true
	}
	m.categories[id] = cats
	return o
}

func (m *memStore) addGrievance(ownerID string, categoryID *string, status models.GrievanceStatus) *models.Grievance {
	m.seq++
	now := m.tick()
	g := models.NewGrievance(fmt.Sprintf("00000000-0000-4000-8000-%012d", m.seq), ownerID, categoryID, fmt.Sprintf("grievance %d", m.seq), "details", models.PriorityLow, now, models.DefaultSLAWindow)
	g.Status = status
	m.grievances[g.ID] = g
	return g
}

func (m *memStore) assign(g *models.Grievance, officerID string) *models.Assignment {
	a := &models.Assignment{ID: "a-" + g.ID, GrievanceID: g.ID, OfficerID: officerID, AssignedAt: m.tick()}
	m.assignments = append(m.assignments, a)
	return a
}

func (m *memStore) workload(officerID string) int {
	n := 0
	for _, a := range m.assignments {
		if a.OfficerID != officerID {
			continue
		}
		if g, ok := m.grievances[a.GrievanceID]; ok && g.Status.Open() {
			n++
		}
	}
	return n
}

func (m *memStore) officerByID(id string) *models.Officer {
	for _, o := range m.officers {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (m *memStore) assignmentFor(grievanceID string) *models.Assignment {
	for _, a := range m.assignments {
		if a.GrievanceID == grievanceID {
			return a
		}
	}
	return nil
}

func (m *memStore) detail(g *models.Grievance) models.GrievanceDetail {
	d := models.GrievanceDetail{Grievance: *g, OwnerUsername: m.users[g.UserID].Username}
	if a := m.assignmentFor(g.ID); a != nil {
		if o := m.officerByID(a.OfficerID); o != nil {
			name := o.Username
			d.OfficerName = &name
		}
	}
	return d
}

type memOfficers struct{ *memStore }

func (f memOfficers) CandidatesForUpdate(ctx context.Context, q sqlx.ExtContext, categoryID, excludeID string) ([]models.OfficerCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.OfficerCandidate{}
	for _, o := range f.officers {
		if !o.IsActive || o.ID == excludeID || !f.categories[o.ID][categoryID] {
			continue
		}
		out = append(out, models.OfficerCandidate{
			OfficerID: o.ID, UserID: o.UserID, Username: o.Username,
			Workload: f.workload(o.ID), CreatedAt: o.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f memOfficers) FindByUserID(ctx context.Context, userID string) (*models.Officer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.officers {
		if o.UserID == userID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f memOfficers) List(ctx context.Context) ([]models.Officer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Officer, 0, len(f.officers))
	for _, o := range f.officers {
		out = append(out, *o)
	}
	return out, nil
}

func (f memOfficers) LockByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Officer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o := f.officerByID(id); o != nil {
		cp := *o
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f memOfficers) SetActive(ctx context.Context, q sqlx.ExecerContext, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.officerByID(id)
	if o == nil {
		return sql.ErrNoRows
	}
	o.IsActive = active
	return nil
}

type memAssignments struct{ *memStore }

func (f memAssignments) Create(ctx context.Context, q sqlx.ExtContext, a *models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assignmentFor(a.GrievanceID) != nil {
		return fmt.Errorf("duplicate assignment for %s", a.GrievanceID)
	}
	cp := *a
	f.assignments = append(f.assignments, &cp)
	return nil
}

func (f memAssignments) FindByGrievance(ctx context.Context, grievanceID string) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a := f.assignmentFor(grievanceID); a != nil {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f memAssignments) LockByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assignments {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f memAssignments) ListOpenByOfficer(ctx context.Context, officerID string) ([]models.OpenAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.OpenAssignment{}
	for _, a := range f.assignments {
		g := f.grievances[a.GrievanceID]
		if a.OfficerID != officerID || g == nil || !g.Status.Open() {
			continue
		}
		out = append(out, models.OpenAssignment{
			AssignmentID: a.ID, GrievanceID: g.ID, Title: g.Title, OwnerID: g.UserID, CategoryID: g.CategoryID,
		})
	}
	return out, nil
}

func (f memAssignments) Reassign(ctx context.Context, q sqlx.ExecerContext, id, officerID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assignments {
		if a.ID == id {
			a.OfficerID = officerID
			a.AssignedBy = nil
			a.AssignedAt = at
			return nil
		}
	}
	return sql.ErrNoRows
}

type memGrievances struct {
	*memStore
	advanceErr error
}

func (f *memGrievances) Create(ctx context.Context, q sqlx.ExtContext, g *models.Grievance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *g
	f.grievances[g.ID] = &cp
	return nil
}

func (f *memGrievances) FindByID(ctx context.Context, id string) (*models.Grievance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.grievances[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *memGrievances) LockByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Grievance, error) {
	return f.FindByID(ctx, id)
}

func (f *memGrievances) Update(ctx context.Context, q sqlx.ExtContext, g *models.Grievance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.grievances[g.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.Status = g.Status
	stored.Priority = g.Priority
	stored.OfficerRemark = g.OfficerRemark
	stored.UpdatedAt = g.UpdatedAt
	return nil
}

func (f *memGrievances) ListDetails(ctx context.Context, filter models.GrievanceFilter) ([]models.GrievanceDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.GrievanceDetail{}
	for _, g := range f.sorted() {
		if !matches(f.memStore, g, filter) {
			continue
		}
		out = append(out, f.detail(g))
	}
	return out, nil
}

func (f *memGrievances) Count(ctx context.Context, filter models.GrievanceFilter) (int, error) {
	items, err := f.ListDetails(ctx, filter)
	return len(items), err
}

func (f *memGrievances) ListOverdue(ctx context.Context, now time.Time) ([]models.GrievanceDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.GrievanceDetail{}
	for _, g := range f.sorted() {
		if g.Status.Open() && g.DueDate.Before(now) && g.EscalationLevel < models.EscalationLevel2 {
			out = append(out, f.detail(g))
		}
	}
	return out, nil
}

func (f *memGrievances) AdvanceEscalation(ctx context.Context, q sqlx.ExecerContext, id string, from, to int, at time.Time) (bool, error) {
	if f.advanceErr != nil {
		return false, f.advanceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.grievances[id]
	if !ok || g.EscalationLevel != from {
		return false, nil
	}
	g.EscalationLevel = to
	escalatedAt := at
	g.LastEscalatedAt = &escalatedAt
	return true, nil
}

func (f *memGrievances) sorted() []*models.Grievance {
	out := make([]*models.Grievance, 0, len(f.grievances))
	for _, g := range f.grievances {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func matches(m *memStore, g *models.Grievance, filter models.GrievanceFilter) bool {
	if filter.ID != "" && g.ID != filter.ID {
		return false
	}
	if filter.UserID != "" && g.UserID != filter.UserID {
		return false
	}
	if filter.Status != "" && g.Status != filter.Status {
		return false
	}
	if filter.CategoryID != "" && (g.CategoryID == nil || *g.CategoryID != filter.CategoryID) {
		return false
	}
	if filter.OfficerID != "" {
		a := m.assignmentFor(g.ID)
		if a == nil || a.OfficerID != filter.OfficerID {
			return false
		}
	}
	return true
}

type memHistory struct{ *memStore }

func (f memHistory) Create(ctx context.Context, q sqlx.ExtContext, entry *models.StatusHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, *entry)
	return nil
}

func (f memHistory) ListByGrievance(ctx context.Context, grievanceID string) ([]models.StatusHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.StatusHistory{}
	for i := len(f.history) - 1; i >= 0; i-- {
		if f.history[i].GrievanceID == grievanceID {
			out = append(out, f.history[i])
		}
	}
	return out, nil
}

type superusers struct {
	users []models.User
	err   error
}

func (s superusers) ListSuperusers(ctx context.Context) ([]models.User, error) {
	return s.users, s.err
}

type notifyCall struct {
	UserID      string
	Title       string
	Message     string
	GrievanceID *string
}

type notifierRecorder struct {
	mu    sync.Mutex
	calls []notifyCall
	// failWith makes every call report NotifyFailed.
	failWith error
}

func (r *notifierRecorder) Notify(ctx context.Context, userID, title, message string, grievanceID *string) NotifyResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notifyCall{UserID: userID, Title: title, Message: message, GrievanceID: grievanceID})
	if r.failWith != nil {
		return NotifyResult{Outcome: NotifyFailed, Err: r.failWith}
	}
	if strings.TrimSpace(userID) == "" {
		return NotifyResult{Outcome: NotifySkipped}
	}
	return NotifyResult{Outcome: NotifyDelivered}
}

func (r *notifierRecorder) titled(title string) []notifyCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []notifyCall{}
	for _, c := range r.calls {
		if c.Title == title {
			out = append(out, c)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }
