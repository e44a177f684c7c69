package models

type UploadResponse struct {
	UploadID   string `json:"upload_id"`
	CVPath     string `json:"cv_path"`
	ReportPath string `json:"report_path"`
}

type EvaluateRequest struct {
	UploadID string `json:"upload_id" validate:"required,uuid"`
}

type EvaluateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Error        *string         `json:"error,omitempty"`
	Result       *EvaluationData `json:"result,omitempty"`
	DetailScores JSONMap         `json:"detail_scores,omitempty"`
}

type EvaluationData struct {
	CVMatchRate     float64 `json:"cv_match_rate"`
	CVFeedback      string  `json:"cv_feedback"`
	ProjectScore    float64 `json:"project_score"`
	ProjectFeedback string  `json:"project_feedback"`
	OverallSummary  string  `json:"overall_summary"`
}

type RagUploadResponse struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Tags    []string `json:"tags"`
	Stored  bool     `json:"stored"`
	Current bool     `json:"current"`
}
