package model

// CreateBatchRequest is the payload for POST /api/notify/batch.
// Recipients are directory references (distributor/guard/worker ids); the
// dispatcher resolves them to deliverable addresses before any send.
type CreateBatchRequest struct {
	Channel    string             `json:"channel" validate:"required,oneof=email whatsapp"`
	Recipients []string           `json:"recipients" validate:"required,min=1,dive,required"`
	Template   CredentialTemplate `json:"template" validate:"required"`
	Language   string             `json:"language,omitempty"`
}

// CredentialTemplate carries the account credentials to deliver.
type CredentialTemplate struct {
	Account  string `json:"account" validate:"required"`
	Password string `json:"password" validate:"required"`
	LoginURL string `json:"loginUrl,omitempty" validate:"omitempty,url"`
}

// CreateBatchResponse acknowledges an accepted batch.
type CreateBatchResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
}

// JobProgress is the point-in-time snapshot served to polling clients.
type JobProgress struct {
	Status                 JobStatus  `json:"status"`
	Progress               int        `json:"progress"`
	Total                  int        `json:"total"`
	Success                int        `json:"success"`
	Failed                 int        `json:"failed"`
	Errors                 []JobError `json:"errors"`
	EstimatedTimeRemaining *int64     `json:"estimatedTimeRemaining,omitempty"` // seconds
}

// ProgressResponse wraps a snapshot for GET /api/notify/progress/:jobId.
type ProgressResponse struct {
	Success  bool        `json:"success"`
	Progress JobProgress `json:"progress"`
}

// CancelResponse acknowledges a cancellation request.
type CancelResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
}
