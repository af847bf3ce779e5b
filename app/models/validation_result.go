package models

// Result statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// PassingScore is the minimum score for a success status.
const PassingScore = 50

// ValidationResult kết quả cuối cùng của một lần chạy pipeline
type ValidationResult struct {
	Status         string                 `json:"status"`
	Message        string                 `json:"message,omitempty"`
	Quality        Quality                `json:"quality,omitempty"`
	Score          int                    `json:"score"`
	Corrections    []Correction           `json:"corrections"`
	Input          AddressInput           `json:"input"`
	Corrected      *CorrectedAddress      `json:"corrected,omitempty"`
	Validation     map[string]interface{} `json:"validation,omitempty"`
	HasCorrections bool                   `json:"has_corrections"`
}

// StatusForScore success khi score >= 50, ngược lại failed
func StatusForScore(score int) string {
	if score >= PassingScore {
		return StatusSuccess
	}
	return StatusFailed
}

// NewErrorResult builds the error-shaped result for credential or transport failures.
func NewErrorResult(input AddressInput, corrections []Correction, message string) *ValidationResult {
	if corrections == nil {
		corrections = []Correction{}
	}
	return &ValidationResult{
		Status:         StatusError,
		Message:        message,
		Corrections:    corrections,
		Input:          input,
		HasCorrections: len(corrections) > 0,
	}
}
