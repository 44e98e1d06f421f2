package models

import "time"

// Experiment defines the experiment model based on the 'experiments' table
type Experiment struct {
	ID          int64            `json:"id" db:"id" example:"12"`
	Title       string           `json:"title" db:"title" example:"Resistor Test"`
	Description *string          `json:"description" db:"description"`
	Status      ExperimentStatus `json:"status" db:"status" example:"pending"`
	AssignedTo  *int64           `json:"assigned_to" db:"assigned_to" example:"4"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`

	// Joined from users; only populated by the admin listing
	AssignedUserName  *string `json:"assigned_user_name,omitempty"`
	AssignedUserEmail *string `json:"assigned_user_email,omitempty"`
}

// IsAssignedTo reports whether userID owns the experiment
func (e *Experiment) IsAssignedTo(userID int64) bool {
	return e.AssignedTo != nil && *e.AssignedTo == userID
}

// IsApproved reports whether the approved-lock applies
func (e *Experiment) IsApproved() bool {
	return e.Status == StatusApproved
}

// ExperimentFile is a file attached to an experiment
type ExperimentFile struct {
	ID           int64     `json:"id" db:"id"`
	ExperimentID int64     `json:"experiment_id" db:"experiment_id"`
	OriginalName string    `json:"original_name" db:"original_name" example:"results.pdf"`
	StoredName   string    `json:"stored_name" db:"stored_name" example:"1718000000000_results.pdf"`
	MimeType     string    `json:"mime_type" db:"mime_type" example:"application/pdf"`
	Size         int64     `json:"size" db:"size_bytes" example:"20480"`
	Path         string    `json:"path" db:"path" example:"/uploads/experiments/12/1718000000000_results.pdf"`
	UploadedBy   *int64    `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt   time.Time `json:"uploaded_at" db:"uploaded_at"`

	UploadedByName  *string `json:"uploaded_by_name,omitempty"`
	ExperimentTitle *string `json:"experiment_title,omitempty"`
}

// ExperimentReport holds the structured write-up of one submitter
type ExperimentReport struct {
	ID            int64     `json:"id" db:"id"`
	ExperimentID  int64     `json:"experiment_id" db:"experiment_id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	ToolsUsed     *string   `json:"tools_used" db:"tools_used"`
	ProcedureText *string   `json:"procedure_text" db:"procedure_text"`
	Result        *string   `json:"result" db:"result"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
