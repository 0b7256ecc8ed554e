package httpx

import (
	"errors"
	"net/http"

	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
	"github.com/soundscribe/soundscribe/internal/service"
)

// JobHandlers serves job submission, status, and stats endpoints.
type JobHandlers struct {
	Svc *service.JobService
}

// SubmitJobRequest is the POST /transcribe request body.
type SubmitJobRequest struct {
	// InputS3Path is the "bucket/object" locator of the source audio.
	InputS3Path string `json:"input_s3_path"`
	// OutputS3Path is the "bucket/object" locator for the rendered transcript.
	OutputS3Path string `json:"output_s3_path"`
	// WebhookURL, when set, is POSTed the terminal payload.
	WebhookURL string `json:"webhook_url,omitempty"`
	// ConsulNotification, when true, writes the terminal payload to a
	// per-job key in the discovery store.
	ConsulNotification bool `json:"consul_notification,omitempty"`
}

// SubmitJobResponse is the POST /transcribe response body.
type SubmitJobResponse struct {
	JobID     string `json:"job_id"`
	ConsulKey string `json:"consul_key,omitempty"`
}

// JobStatusResponse is the GET /status/{job_id} response body.
type JobStatusResponse struct {
	JobID  string           `json:"job_id"`
	Status model.JobStatus  `json:"status"`
	Result *model.JobResult `json:"result,omitempty"`
	Error  *model.JobError  `json:"error,omitempty"`
}

// Submit handles POST /transcribe. The job is accepted immediately and runs
// asynchronously; the response carries the id to poll.
func (h *JobHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	receipt, err := h.Svc.Submit(service.SubmitParams{
		InputPath:          req.InputS3Path,
		OutputPath:         req.OutputS3Path,
		WebhookURL:         req.WebhookURL,
		ConsulNotification: req.ConsulNotification,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, SubmitJobResponse{
		JobID:     receipt.JobID,
		ConsulKey: receipt.ConsulKey,
	})
}

// Status handles GET /status/{job_id}.
func (h *JobHandlers) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("job_id is required"),
		})
		return
	}

	job, err := h.Svc.Status(id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, JobStatusResponse{
		JobID:  job.ID,
		Status: job.Status,
		Result: job.Result,
		Error:  job.Error,
	})
}

// Stats handles GET /stats.
func (h *JobHandlers) Stats(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.Svc.Stats())
}

// writeAppError maps the error taxonomy onto HTTP status codes.
func writeAppError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		code = http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		code = http.StatusNotFound
	}
	WriteError(w, ErrorParams{
		Code:    code,
		ErrCode: string(apperrors.GetCode(err)),
		Err:     err,
	})
}
