package dto

// SendMessageRequest is a direct message from the caller
type SendMessageRequest struct {
	ReceiverID int64  `json:"receiverId" example:"4"`
	Content    string `json:"content" example:"Please re-upload the oscilloscope capture"`
}
