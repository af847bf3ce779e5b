package responses

import (
	"time"

	"github.com/address-validator/app/models"
)

// Timestamp định dạng thời gian dùng chung cho mọi response
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ValidateAddressResponse envelope kết quả validate đơn lẻ
type ValidateAddressResponse struct {
	Success   bool                     `json:"success"`
	Data      *models.ValidationResult `json:"data"`
	Timestamp string                   `json:"timestamp"`
	RequestID string                   `json:"request_id,omitempty"`
}

// BatchValidateResponse kết quả validate hàng loạt, cùng thứ tự với input
type BatchValidateResponse struct {
	Success   bool                       `json:"success"`
	Total     int                        `json:"total"`
	Summary   map[string]int             `json:"summary"` // số kết quả theo status
	Data      []*models.ValidationResult `json:"data"`
	Timestamp string                     `json:"timestamp"`
	RequestID string                     `json:"request_id,omitempty"`
}

// Summarize counts results per status.
func Summarize(results []*models.ValidationResult) map[string]int {
	summary := map[string]int{
		models.StatusSuccess: 0,
		models.StatusFailed:  0,
		models.StatusError:   0,
	}
	for _, r := range results {
		summary[r.Status]++
	}
	return summary
}

// JobCreatedResponse response khi tạo job
type JobCreatedResponse struct {
	JobID          string `json:"job_id"`
	TotalAddresses int    `json:"total_addresses"`
	StatusURL      string `json:"status_url"`
	ResultsURL     string `json:"results_url"`
	Message        string `json:"message"`
}

// JobStatusResponse response trạng thái job
type JobStatusResponse struct {
	JobID     string  `json:"job_id"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"` // 0.0 - 1.0
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// ErrorResponse response lỗi
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`             // Mã lỗi
	Message   string      `json:"message"`           // Thông báo lỗi
	Missing   []string    `json:"missing,omitempty"` // Trường bắt buộc bị thiếu
	Details   interface{} `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// SuccessResponse response thành công
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// HealthCheckResponse response kiểm tra sức khỏe
type HealthCheckResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services,omitempty"`
}
