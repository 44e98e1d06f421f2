// Package memory is an in-process implementation of the repository method sets.
// It backs service and handler tests and mirrors the ordering and not-found behaviour
// of the PostgreSQL repositories. Timestamps come from a fake clock that advances one
// second per write so "newest first" orderings are deterministic.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
)

// Epoch is the first timestamp handed out by the fake clock
var Epoch = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// DB holds every table behind one lock
type DB struct {
	mu  sync.Mutex
	now time.Time
	seq map[string]int64

	users         map[int64]*models.User
	experiments   map[int64]*models.Experiment
	files         map[int64]*models.ExperimentFile
	reports       map[int64]*models.ExperimentReport
	notifications map[int64]*models.Notification
	logs          []models.LogEntry
	messages      map[int64]*models.Message

	Users         *Users
	Experiments   *Experiments
	Files         *Files
	Reports       *Reports
	Notifications *Notifications
	Logs          *Logs
	Messages      *Messages
	Stats         *Stats
}

// New returns an empty database
func New() *DB {
	db := &DB{
		now:           Epoch,
		seq:           map[string]int64{},
		users:         map[int64]*models.User{},
		experiments:   map[int64]*models.Experiment{},
		files:         map[int64]*models.ExperimentFile{},
		reports:       map[int64]*models.ExperimentReport{},
		notifications: map[int64]*models.Notification{},
		messages:      map[int64]*models.Message{},
	}
	db.Users = &Users{db}
	db.Experiments = &Experiments{db}
	db.Files = &Files{db}
	db.Reports = &Reports{db}
	db.Notifications = &Notifications{db}
	db.Logs = &Logs{db}
	db.Messages = &Messages{db}
	db.Stats = &Stats{db}
	return db
}

// tick advances the clock; callers hold mu
func (db *DB) tick() time.Time {
	db.now = db.now.Add(time.Second)
	return db.now
}

func (db *DB) nextID(table string) int64 {
	db.seq[table]++
	return db.seq[table]
}

// Users implements the user store
type Users struct{ db *DB }

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

// Create inserts a user, rejecting duplicate emails
func (r *Users) Create(_ context.Context, user *models.User) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return 0, apperrors.ErrEmailAlreadyExists
		}
	}
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}
	user.ID = r.db.nextID("users")
	user.CreatedAt = r.db.tick()
	user.UpdatedAt = user.CreatedAt
	if len(user.Prefs) == 0 {
		user.Prefs = json.RawMessage("{}")
	}
	r.db.users[user.ID] = cloneUser(user)
	return user.ID, nil
}

// GetByID retrieves a user by ID
func (r *Users) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// GetByEmail retrieves a user by email
func (r *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

// List returns users ordered by id
func (r *Users) List(_ context.Context) ([]*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListAdminIDs returns the ids of admin users
func (r *Users) ListAdminIDs(ctx context.Context) ([]int64, error) {
	users, _ := r.List(ctx)
	ids := make([]int64, 0)
	for _, u := range users {
		if u.Role == models.RoleAdmin {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (r *Users) update(id int64, fn func(u *models.User)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = r.db.tick()
	return nil
}

// UpdateStatus sets the login status
func (r *Users) UpdateStatus(_ context.Context, id int64, status models.UserStatus) error {
	return r.update(id, func(u *models.User) { u.Status = status })
}

// UpdatePassword stores a new hash
func (r *Users) UpdatePassword(_ context.Context, id int64, hash string) error {
	return r.update(id, func(u *models.User) { u.Password = hash })
}

// UpdateAvatar stores a new avatar path
func (r *Users) UpdateAvatar(_ context.Context, id int64, avatar string) error {
	return r.update(id, func(u *models.User) { u.Avatar = &avatar })
}

// UpdatePrefs replaces the preference document
func (r *Users) UpdatePrefs(_ context.Context, id int64, prefs json.RawMessage) error {
	return r.update(id, func(u *models.User) { u.Prefs = append(json.RawMessage(nil), prefs...) })
}

// UpdateProfile changes the non-nil fields
func (r *Users) UpdateProfile(_ context.Context, id int64, name, phone *string) error {
	return r.update(id, func(u *models.User) {
		if name != nil {
			u.Name = *name
		}
		if phone != nil {
			p := *phone
			u.Phone = &p
		}
	})
}

// Delete removes a user
func (r *Users) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return apperrors.ErrUserNotFound
	}
	delete(r.db.users, id)
	return nil
}

// Experiments implements the experiment store
type Experiments struct{ db *DB }

func cloneExperiment(e *models.Experiment) *models.Experiment {
	c := *e
	return &c
}

// Create inserts an experiment
func (r *Experiments) Create(_ context.Context, exp *models.Experiment) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if exp.Status == "" {
		exp.Status = models.StatusPending
	}
	exp.ID = r.db.nextID("experiments")
	exp.CreatedAt = r.db.tick()
	exp.UpdatedAt = exp.CreatedAt
	r.db.experiments[exp.ID] = cloneExperiment(exp)
	return exp.ID, nil
}

// GetByID retrieves an experiment by ID
func (r *Experiments) GetByID(_ context.Context, id int64) (*models.Experiment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.experiments[id]
	if !ok {
		return nil, apperrors.ErrResourceNotFound
	}
	return cloneExperiment(e), nil
}

// GetForAssignee retrieves an experiment only when it is assigned to userID
func (r *Experiments) GetForAssignee(ctx context.Context, id, userID int64) (*models.Experiment, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.IsAssignedTo(userID) {
		return nil, apperrors.ErrResourceNotFound
	}
	return e, nil
}

func (r *Experiments) list(match func(e *models.Experiment) bool, joinUsers bool) []*models.Experiment {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Experiment, 0)
	for _, e := range r.db.experiments {
		if !match(e) {
			continue
		}
		c := cloneExperiment(e)
		if joinUsers && c.AssignedTo != nil {
			if u, ok := r.db.users[*c.AssignedTo]; ok {
				name, email := u.Name, u.Email
				c.AssignedUserName, c.AssignedUserEmail = &name, &email
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// ListByAssignee returns the experiments of userID, newest first
func (r *Experiments) ListByAssignee(_ context.Context, userID int64) ([]*models.Experiment, error) {
	return r.list(func(e *models.Experiment) bool { return e.IsAssignedTo(userID) }, false), nil
}

// ListAll returns every experiment with assignee details, newest first
func (r *Experiments) ListAll(_ context.Context) ([]*models.Experiment, error) {
	return r.list(func(*models.Experiment) bool { return true }, true), nil
}

func (r *Experiments) update(id int64, fn func(e *models.Experiment)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.experiments[id]
	if !ok {
		return apperrors.ErrResourceNotFound
	}
	fn(e)
	e.UpdatedAt = r.db.tick()
	return nil
}

// Update changes title and description
func (r *Experiments) Update(_ context.Context, id int64, title string, description *string) error {
	return r.update(id, func(e *models.Experiment) {
		e.Title = title
		e.Description = description
	})
}

// UpdateStatus sets the status
func (r *Experiments) UpdateStatus(_ context.Context, id int64, status models.ExperimentStatus) error {
	return r.update(id, func(e *models.Experiment) { e.Status = status })
}

// Assign sets the assignee; nil clears it
func (r *Experiments) Assign(_ context.Context, id int64, userID *int64) error {
	var assignee *int64
	if userID != nil {
		v := *userID
		assignee = &v
	}
	return r.update(id, func(e *models.Experiment) { e.AssignedTo = assignee })
}

// MarkDone moves an owned, non-approved experiment to done
func (r *Experiments) MarkDone(_ context.Context, id, userID int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.experiments[id]
	if !ok || !e.IsAssignedTo(userID) || e.IsApproved() {
		return 0, nil
	}
	e.Status = models.StatusDone
	e.UpdatedAt = r.db.tick()
	return 1, nil
}

// Delete removes an experiment together with its files and reports
func (r *Experiments) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.experiments[id]; !ok {
		return apperrors.ErrResourceNotFound
	}
	for fid, f := range r.db.files {
		if f.ExperimentID == id {
			delete(r.db.files, fid)
		}
	}
	for rid, rep := range r.db.reports {
		if rep.ExperimentID == id {
			delete(r.db.reports, rid)
		}
	}
	delete(r.db.experiments, id)
	return nil
}

// Files implements the attachment store
type Files struct{ db *DB }

// Create inserts a file row
func (r *Files) Create(_ context.Context, file *models.ExperimentFile) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	file.ID = r.db.nextID("files")
	file.UploadedAt = r.db.tick()
	c := *file
	r.db.files[file.ID] = &c
	return file.ID, nil
}

func (r *Files) list(match func(f *models.ExperimentFile, e *models.Experiment) bool) []*models.ExperimentFile {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.ExperimentFile, 0)
	for _, f := range r.db.files {
		e, ok := r.db.experiments[f.ExperimentID]
		if !ok || !match(f, e) {
			continue
		}
		c := *f
		title := e.Title
		c.ExperimentTitle = &title
		if c.UploadedBy != nil {
			if u, ok := r.db.users[*c.UploadedBy]; ok {
				name := u.Name
				c.UploadedByName = &name
			}
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// ListByExperiment returns an experiment's files, newest first
func (r *Files) ListByExperiment(_ context.Context, experimentID int64) ([]*models.ExperimentFile, error) {
	return r.list(func(f *models.ExperimentFile, _ *models.Experiment) bool { return f.ExperimentID == experimentID }), nil
}

// ListForAssignee returns files of experiments assigned to userID
func (r *Files) ListForAssignee(_ context.Context, userID int64) ([]*models.ExperimentFile, error) {
	return r.list(func(_ *models.ExperimentFile, e *models.Experiment) bool { return e.IsAssignedTo(userID) }), nil
}

// ListApproved returns files of approved experiments
func (r *Files) ListApproved(_ context.Context) ([]*models.ExperimentFile, error) {
	return r.list(func(_ *models.ExperimentFile, e *models.Experiment) bool { return e.IsApproved() }), nil
}

// GetInExperiment retrieves a file only when it belongs to experimentID
func (r *Files) GetInExperiment(_ context.Context, fileID, experimentID int64) (*models.ExperimentFile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.files[fileID]
	if !ok || f.ExperimentID != experimentID {
		return nil, apperrors.ErrResourceNotFound
	}
	c := *f
	return &c, nil
}

// Delete removes a file row
func (r *Files) Delete(_ context.Context, fileID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.files[fileID]; !ok {
		return apperrors.ErrResourceNotFound
	}
	delete(r.db.files, fileID)
	return nil
}

// Reports implements the report store
type Reports struct{ db *DB }

// Upsert keeps one report per experiment and submitter
func (r *Reports) Upsert(_ context.Context, report *models.ExperimentReport) (*models.ExperimentReport, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.tick()
	for _, existing := range r.db.reports {
		if existing.ExperimentID == report.ExperimentID && existing.UserID == report.UserID {
			existing.ToolsUsed = report.ToolsUsed
			existing.ProcedureText = report.ProcedureText
			existing.Result = report.Result
			existing.UpdatedAt = now
			c := *existing
			return &c, nil
		}
	}
	c := *report
	c.ID = r.db.nextID("reports")
	c.CreatedAt, c.UpdatedAt = now, now
	r.db.reports[c.ID] = &c
	out := c
	return &out, nil
}

// GetLatest returns the most recently updated report, or nil
func (r *Reports) GetLatest(_ context.Context, experimentID int64) (*models.ExperimentReport, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var latest *models.ExperimentReport
	for _, rep := range r.db.reports {
		if rep.ExperimentID != experimentID {
			continue
		}
		if latest == nil || rep.UpdatedAt.After(latest.UpdatedAt) ||
			(rep.UpdatedAt.Equal(latest.UpdatedAt) && rep.ID > latest.ID) {
			latest = rep
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

// GetByUser returns userID's report, or nil
func (r *Reports) GetByUser(_ context.Context, experimentID, userID int64) (*models.ExperimentReport, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, rep := range r.db.reports {
		if rep.ExperimentID == experimentID && rep.UserID == userID {
			c := *rep
			return &c, nil
		}
	}
	return nil, nil
}

// Notifications implements the inbox store
type Notifications struct{ db *DB }

// Create inserts an unread notification
func (r *Notifications) Create(_ context.Context, n *models.Notification) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n.ID = r.db.nextID("notifications")
	n.CreatedAt = r.db.tick()
	n.IsRead = false
	c := *n
	r.db.notifications[n.ID] = &c
	return n.ID, nil
}

// ListByUser returns up to limit notifications of userID, newest first
func (r *Notifications) ListByUser(_ context.Context, userID int64, limit int) ([]*models.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Notification, 0)
	for _, n := range r.db.notifications {
		if n.UserID == userID {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkRead flips one notification owned by userID
func (r *Notifications) MarkRead(_ context.Context, id, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifications[id]
	if !ok || n.UserID != userID {
		return apperrors.ErrResourceNotFound
	}
	n.IsRead = true
	return nil
}

// MarkAllRead flips every unread notification of userID
func (r *Notifications) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var affected int64
	for _, n := range r.db.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			affected++
		}
	}
	return affected, nil
}

// CountUnread counts unread notifications of userID
func (r *Notifications) CountUnread(_ context.Context, userID int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var count int64
	for _, n := range r.db.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// Logs implements the audit log store
type Logs struct{ db *DB }

// Insert appends an entry
func (r *Logs) Insert(_ context.Context, entry *models.LogEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	entry.ID = r.db.nextID("logs")
	entry.CreatedAt = r.db.tick()
	r.db.logs = append(r.db.logs, *entry)
	return nil
}

func containsFold(s *string, q string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), q)
}

func matchLog(e models.LogEntry, f models.LogFilter) bool {
	if f.Event != "" && e.Event != f.Event {
		return false
	}
	if f.UserID != nil && (e.UserID == nil || *e.UserID != *f.UserID) {
		return false
	}
	if f.Severity != "" && string(e.Severity) != f.Severity {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		details := string(e.Details)
		if !strings.Contains(strings.ToLower(e.Event), q) &&
			!containsFold(e.UserName, q) && !containsFold(e.Role, q) &&
			!containsFold(e.ResourceType, q) && !containsFold(e.ResourceID, q) &&
			!containsFold(&details, q) {
			return false
		}
	}
	return true
}

func (r *Logs) filtered(f models.LogFilter) []models.LogEntry {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.LogEntry, 0)
	for i := len(r.db.logs) - 1; i >= 0; i-- {
		if matchLog(r.db.logs[i], f) {
			out = append(out, r.db.logs[i])
		}
	}
	return out
}

// List returns one page of matching entries, newest first, plus the total
func (r *Logs) List(_ context.Context, filter models.LogFilter, offset, limit uint64) ([]models.LogEntry, int64, error) {
	all := r.filtered(filter)
	total := int64(len(all))
	if offset >= uint64(len(all)) {
		return []models.LogEntry{}, total, nil
	}
	end := offset + limit
	if end > uint64(len(all)) {
		end = uint64(len(all))
	}
	return all[offset:end], total, nil
}

// ListAll returns every matching entry, newest first
func (r *Logs) ListAll(_ context.Context, filter models.LogFilter) ([]models.LogEntry, error) {
	return r.filtered(filter), nil
}

// Entries returns a copy of the log in insertion order
func (r *Logs) Entries() []models.LogEntry {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]models.LogEntry(nil), r.db.logs...)
}

// Messages implements the direct message store
type Messages struct{ db *DB }

// Create stores an unread message
func (r *Messages) Create(_ context.Context, msg *models.Message) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	msg.ID = r.db.nextID("messages")
	msg.CreatedAt = r.db.tick()
	msg.IsRead = false
	c := *msg
	r.db.messages[msg.ID] = &c
	return msg.ID, nil
}

// Conversation returns messages between a and b, oldest first
func (r *Messages) Conversation(_ context.Context, a, b int64) ([]*models.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.Message, 0)
	for _, m := range r.db.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountUnread counts unread messages addressed to userID
func (r *Messages) CountUnread(_ context.Context, userID int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var count int64
	for _, m := range r.db.messages {
		if m.ReceiverID == userID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkConversationRead flips unread messages from otherID to userID
func (r *Messages) MarkConversationRead(_ context.Context, userID, otherID int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var affected int64
	for _, m := range r.db.messages {
		if m.ReceiverID == userID && m.SenderID == otherID && !m.IsRead {
			m.IsRead = true
			affected++
		}
	}
	return affected, nil
}

// Stats implements the dashboard aggregates
type Stats struct{ db *DB }

// Counts returns the headline numbers
func (r *Stats) Counts(_ context.Context, viewerID int64) (dto.DashboardCounts, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var c dto.DashboardCounts
	for _, u := range r.db.users {
		c.TotalUsers++
		if u.IsActive() {
			c.ActiveUsers++
		}
	}
	for _, e := range r.db.experiments {
		c.TotalExperiments++
		switch e.Status {
		case models.StatusPending:
			c.PendingCount++
		case models.StatusApproved:
			c.ApprovedCount++
		}
	}
	for _, n := range r.db.notifications {
		if n.UserID == viewerID && !n.IsRead {
			c.UnreadNotifications++
		}
	}
	return c, nil
}

// UsersByRole groups users by role
func (r *Stats) UsersByRole(_ context.Context) ([]dto.RoleCount, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	counts := map[string]int64{}
	for _, u := range r.db.users {
		counts[string(u.Role)]++
	}
	out := make([]dto.RoleCount, 0, len(counts))
	for role, n := range counts {
		out = append(out, dto.RoleCount{Role: role, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

// ExperimentsByStatus groups experiments by status
func (r *Stats) ExperimentsByStatus(_ context.Context) ([]dto.StatusCount, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	counts := map[string]int64{}
	for _, e := range r.db.experiments {
		counts[string(e.Status)]++
	}
	out := make([]dto.StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, dto.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

