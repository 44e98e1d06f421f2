package dto

import "github.com/quantumlab/labtrack/internal/app/models"

// LogQuery binds the audit log query string
type LogQuery struct {
	Event    string `form:"event"`
	UserID   *int64 `form:"user_id"`
	Severity string `form:"severity" binding:"omitempty,labseverity"`
	Q        string `form:"q"`
	// Page and Limit are parsed leniently by the controller
	Page     int    `form:"-"`
	Limit    int    `form:"-"`
}

// Filter projects the query onto the repository filter
func (q LogQuery) Filter() models.LogFilter {
	return models.LogFilter{
		Event:    q.Event,
		UserID:   q.UserID,
		Severity: q.Severity,
		Query:    q.Q,
	}
}

// LogPage is a page of audit entries, newest first
type LogPage struct {
	Total int64             `json:"total" example:"42"`
	Page  int               `json:"page" example:"1"`
	Limit int               `json:"limit" example:"20"`
	Pages int               `json:"pages" example:"3"`
	Data  []models.LogEntry `json:"data"`
}
