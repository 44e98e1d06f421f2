package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/app/models/dto"
	"github.com/quantumlab/labtrack/internal/pkg/helpers"
	"github.com/quantumlab/labtrack/internal/pkg/taskqueue"
	"github.com/rs/zerolog"
)

// AuditEvent describes one thing that happened
type AuditEvent struct {
	Event        string
	ResourceType string
	ResourceID   int64
	Severity     models.Severity
	Details      map[string]interface{}
}

// AuditService writes and reads the append-only audit log
type AuditService struct {
	store  LogStore
	tasks  taskqueue.Dispatcher
	logger zerolog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(store LogStore, tasks taskqueue.Dispatcher, logger zerolog.Logger) *AuditService {
	return &AuditService{
		store:  store,
		tasks:  tasks,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Record queues an audit entry. It never blocks the caller and never fails it:
// a dropped or failed write is only logged.
func (s *AuditService) Record(actor *Actor, ev AuditEvent) {
	entry := s.buildEntry(actor, ev)
	s.tasks.Submit("audit", func(ctx context.Context) error {
		return s.store.Insert(ctx, entry)
	})
}

func (s *AuditService) buildEntry(actor *Actor, ev AuditEvent) *models.LogEntry {
	entry := &models.LogEntry{
		Event:    ev.Event,
		Severity: ev.Severity,
	}
	if !entry.Severity.Valid() {
		entry.Severity = models.SeverityInfo
	}
	if ev.ResourceType != "" {
		entry.ResourceType = &ev.ResourceType
	}
	if ev.ResourceID != 0 {
		id := strconv.FormatInt(ev.ResourceID, 10)
		entry.ResourceID = &id
	}

	if actor != nil {
		id, name, role := actor.ID, actor.DisplayName(), string(actor.Role)
		entry.UserID = &id
		entry.UserName = &name
		entry.Role = &role
		entry.IP = helpers.NullIfBlank(&actor.IP)
		entry.UserAgent = helpers.NullIfBlank(&actor.UserAgent)
	}

	details := ev.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", ev.Event).Msg("Audit details are not JSON encodable; storing an empty object")
		raw = []byte("{}")
	}
	entry.Details = raw
	return entry
}

// List returns one page of entries matching the query, newest first
func (s *AuditService) List(ctx context.Context, q dto.LogQuery) (*dto.LogPage, error) {
	page, limit := helpers.NormalizePage(q.Page, q.Limit)
	offset, size := helpers.CalculateOffsetLimit(page, limit)

	entries, total, err := s.store.List(ctx, q.Filter(), offset, size)
	if err != nil {
		return nil, err
	}

	return &dto.LogPage{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: helpers.TotalPages(total, limit),
		Data:  entries,
	}, nil
}

// ExportCSV renders every entry matching filter as CSV, newest first. The header row
// lists column names; every value is double-quoted with embedded quotes doubled and
// NULL written as an empty quoted value. No rows produce an empty document.
func (s *AuditService) ExportCSV(ctx context.Context, filter models.LogFilter) ([]byte, error) {
	entries, err := s.store.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return EncodeLogsCSV(entries), nil
}

// EncodeLogsCSV renders entries in export format
func EncodeLogsCSV(entries []models.LogEntry) []byte {
	if len(entries) == 0 {
		return []byte{}
	}

	var b strings.Builder
	b.WriteString(strings.Join(models.LogColumns, ","))
	for _, e := range entries {
		b.WriteByte('\n')
		values := []string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.UTC().Format(time.RFC3339),
			optInt(e.UserID),
			helpers.DerefString(e.UserName),
			helpers.DerefString(e.Role),
			e.Event,
			helpers.DerefString(e.ResourceType),
			helpers.DerefString(e.ResourceID),
			string(e.Severity),
			helpers.DerefString(e.IP),
			helpers.DerefString(e.UserAgent),
			string(e.Details),
		}
		for i, v := range values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoteCSV(v))
		}
	}
	return []byte(b.String())
}

func quoteCSV(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func optInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
