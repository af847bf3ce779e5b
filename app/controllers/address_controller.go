package controllers

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/address-validator/app/models"
	"github.com/address-validator/app/requests"
	"github.com/address-validator/app/responses"
	"github.com/address-validator/app/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServiceName tên service trả về trong health check
const ServiceName = "swiss-address-validator"

// Version phiên bản API
const Version = "1.0.0"

// AddressController controller xử lý các request validate địa chỉ
type AddressController struct {
	service *services.ValidationService
	logger  *zap.Logger
}

// NewAddressController tạo mới AddressController
func NewAddressController(service *services.ValidationService, logger *zap.Logger) *AddressController {
	return &AddressController{
		service: service,
		logger:  logger,
	}
}

func (ac *AddressController) fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, responses.ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: responses.Timestamp(),
		RequestID: c.GetString("request_id"),
	})
}

// ValidateAddress validate và sửa một địa chỉ
func (ac *AddressController) ValidateAddress(c *gin.Context) {
	var req requests.ValidateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ac.fail(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	in := req.ToInput()
	if missing := in.MissingFields(); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:     "MISSING_FIELDS",
			Message:   "missing required fields: " + strings.Join(missing, ", "),
			Missing:   missing,
			Timestamp: responses.Timestamp(),
			RequestID: c.GetString("request_id"),
		})
		return
	}

	// the envelope is always a success; the result carries its own status
	res := ac.service.Validate(c.Request.Context(), in)
	c.JSON(http.StatusOK, responses.ValidateAddressResponse{
		Success:   true,
		Data:      res,
		Timestamp: responses.Timestamp(),
		RequestID: c.GetString("request_id"),
	})
}

// bindBatch đọc batch và kiểm tra giới hạn; false khi đã trả lỗi
func (ac *AddressController) bindBatch(c *gin.Context) ([]models.AddressInput, bool) {
	var req requests.BatchValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ac.fail(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return nil, false
	}
	if len(req.Addresses) == 0 {
		ac.fail(c, http.StatusBadRequest, "EMPTY_BATCH", "addresses must not be empty")
		return nil, false
	}
	if limit := ac.service.MaxBatchSize(); limit > 0 && len(req.Addresses) > limit {
		ac.fail(c, http.StatusRequestEntityTooLarge, "TOO_MANY_ADDRESSES", services.ErrBatchTooLarge.Error())
		return nil, false
	}
	return req.ToInputs(), true
}

// BatchValidate validate hàng loạt, đồng bộ
func (ac *AddressController) BatchValidate(c *gin.Context) {
	inputs, ok := ac.bindBatch(c)
	if !ok {
		return
	}

	results, err := ac.service.ValidateBatch(c.Request.Context(), inputs)
	if err != nil {
		ac.batchError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.BatchValidateResponse{
		Success:   true,
		Total:     len(results),
		Summary:   responses.Summarize(results),
		Data:      results,
		Timestamp: responses.Timestamp(),
		RequestID: c.GetString("request_id"),
	})
}

// CreateJob tạo job validate chạy nền
func (ac *AddressController) CreateJob(c *gin.Context) {
	inputs, ok := ac.bindBatch(c)
	if !ok {
		return
	}

	status, err := ac.service.StartJob(inputs)
	if err != nil {
		ac.batchError(c, err)
		return
	}

	base := "/v1/addresses/jobs/" + status.JobID
	c.JSON(http.StatusAccepted, responses.JobCreatedResponse{
		JobID:          status.JobID,
		TotalAddresses: status.Total,
		StatusURL:      base + "/status",
		ResultsURL:     base + "/results",
		Message:        "job accepted",
	})
}

func (ac *AddressController) batchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyBatch):
		ac.fail(c, http.StatusBadRequest, "EMPTY_BATCH", err.Error())
	case errors.Is(err, services.ErrBatchTooLarge):
		ac.fail(c, http.StatusRequestEntityTooLarge, "TOO_MANY_ADDRESSES", err.Error())
	default:
		ac.logger.Error("Batch validation failed", zap.Error(err))
		ac.fail(c, http.StatusInternalServerError, "BATCH_ERROR", err.Error())
	}
}

// GetJobStatus lấy trạng thái job
func (ac *AddressController) GetJobStatus(c *gin.Context) {
	status, err := ac.service.GetJobStatus(c.Param("jobID"))
	if err != nil {
		ac.fail(c, http.StatusNotFound, "JOB_NOT_FOUND", err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.JobStatusResponse{
		JobID:     status.JobID,
		Status:    status.Status,
		Progress:  status.Progress,
		Processed: status.Processed,
		Total:     status.Total,
		CreatedAt: status.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: status.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// GetJobResults lấy kết quả job với hỗ trợ NDJSON + gzip streaming
func (ac *AddressController) GetJobResults(c *gin.Context) {
	results, err := ac.service.GetJobResults(c.Param("jobID"))
	switch {
	case errors.Is(err, services.ErrJobNotFound):
		ac.fail(c, http.StatusNotFound, "JOB_NOT_FOUND", err.Error())
		return
	case errors.Is(err, services.ErrJobRunning):
		ac.fail(c, http.StatusConflict, "JOB_RUNNING", err.Error())
		return
	case err != nil:
		ac.fail(c, http.StatusInternalServerError, "JOB_ERROR", err.Error())
		return
	}

	if c.Query("format") == "ndjson" {
		ac.streamNDJSONResults(c, results, c.Query("gzip") == "1")
		return
	}

	c.JSON(http.StatusOK, responses.BatchValidateResponse{
		Success:   true,
		Total:     len(results),
		Summary:   responses.Summarize(results),
		Data:      results,
		Timestamp: responses.Timestamp(),
		RequestID: c.GetString("request_id"),
	})
}

// HealthCheck kiểm tra sức khỏe service
func (ac *AddressController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: responses.Timestamp(),
		Uptime:    time.Since(ac.service.GetStartTime()).Round(time.Second).String(),
		Version:   Version,
	})
}

// streamNDJSONResults ghi mỗi kết quả một dòng JSON, có thể nén gzip
func (ac *AddressController) streamNDJSONResults(c *gin.Context, results []*models.ValidationResult, gzipEnabled bool) {
	c.Header("Content-Type", "application/x-ndjson")

	var writer gin.ResponseWriter = c.Writer
	if gzipEnabled {
		c.Header("Content-Encoding", "gzip")
		gzWriter := gzip.NewWriter(c.Writer)
		defer gzWriter.Close()
		writer = &gzipResponseWriter{
			ResponseWriter: c.Writer,
			gzWriter:       gzWriter,
		}
	}
	c.Status(http.StatusOK)

	encoder := json.NewEncoder(writer)
	for _, result := range results {
		if err := encoder.Encode(result); err != nil {
			ac.logger.Warn("NDJSON stream aborted", zap.Error(err))
			return
		}
		writer.Flush()
	}
}

// gzipResponseWriter wrapper cho gzip writer
type gzipResponseWriter struct {
	gin.ResponseWriter
	gzWriter *gzip.Writer
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	return w.gzWriter.Write(data)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.gzWriter.Write([]byte(s))
}

func (w *gzipResponseWriter) Flush() {
	w.gzWriter.Flush()
	w.ResponseWriter.Flush()
}
