package dto

// CreateExperimentRequest creates an experiment, optionally assigned.
// Title presence is checked after trimming by the service.
type CreateExperimentRequest struct {
	Title       string  `json:"title" example:"Resistor Test"`
	Description *string    `json:"description" example:"Measure resistance with a multimeter"`
	AssignedTo  FlexibleID `json:"assigned_to" swaggertype:"integer" example:"4"`
}

// UpdateExperimentRequest edits title and description
type UpdateExperimentRequest struct {
	Title       string  `json:"title" example:"Resistor Test v2"`
	Description *string `json:"description"`
}

// UpdateStatusRequest moves an experiment to a new lifecycle state
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required" example:"approved" enums:"pending,active,done,approved"`
}

// AssignExperimentRequest (re)assigns an experiment. A null or empty assignee clears it.
type AssignExperimentRequest struct {
	AssignedTo FlexibleID `json:"assigned_to" swaggertype:"integer" example:"4"`
}

// StatusChangeResponse echoes a status change
type StatusChangeResponse struct {
	ID     int64  `json:"id" example:"12"`
	Status string `json:"status" example:"done"`
}

// AssignmentResponse echoes an assignment change
type AssignmentResponse struct {
	ID         int64  `json:"id" example:"12"`
	AssignedTo *int64 `json:"assigned_to" example:"4"`
}

// ReportRequest carries the report fields; at least one must be non-empty
type ReportRequest struct {
	ToolsUsed     *string `json:"tools_used" example:"Multimeter, breadboard"`
	ProcedureText *string `json:"procedure_text" example:"Measured across three resistors"`
	Result        *string `json:"result" example:"All within 5% tolerance"`
}
