package models

import (
	"encoding/json"
	"time"
)

// LogColumns is the audit log column order used by listings and the CSV export
var LogColumns = []string{
	"id", "created_at", "user_id", "user_name", "role", "event",
	"resource_type", "resource_id", "severity", "ip", "user_agent", "details",
}

// LogEntry is one append-only audit record
type LogEntry struct {
	ID           int64           `json:"id" db:"id"`
	UserID       *int64          `json:"user_id" db:"user_id"`
	UserName     *string         `json:"user_name" db:"user_name"`
	Role         *string         `json:"role" db:"role"`
	Event        string          `json:"event" db:"event" example:"experiment.create"`
	ResourceType *string         `json:"resource_type" db:"resource_type" example:"experiment"`
	ResourceID   *string         `json:"resource_id" db:"resource_id" example:"12"`
	Severity     Severity        `json:"severity" db:"severity" example:"info"`
	IP           *string         `json:"ip" db:"ip"`
	UserAgent    *string         `json:"user_agent" db:"user_agent"`
	Details      json.RawMessage `json:"details" db:"details" swaggertype:"object"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// LogFilter narrows audit log queries. Zero values mean "no filter".
type LogFilter struct {
	Event    string
	UserID   *int64
	Severity string
	Query    string
}
