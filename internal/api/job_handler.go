package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/inkwell-ai/inkwell-api/internal/api/shared"
	"github.com/inkwell-ai/inkwell-api/internal/domain"
	"github.com/inkwell-ai/inkwell-api/internal/platform/logger"
	"github.com/inkwell-ai/inkwell-api/internal/service"
)

// JobHandler handles job-related API requests.
type JobHandler struct {
	jobService service.JobService
	validator  *validator.Validate
}

// NewJobHandler creates a new JobHandler with the given dependencies.
func NewJobHandler(jobService service.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		validator:  validator.New(),
	}
}

// Generate handles POST /api/generate. The request is accepted, not
// completed: the response is 202 with the pending job, and the outcome
// arrives later through the job status endpoint or the live gateway.
func (h *JobHandler) Generate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req GenerateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	job, err := h.jobService.CreateJob(r.Context(), userID, req.Kind, req.Prompt)
	if err != nil {
		log.Error("failed to create job", "error", err, "user_id", userID)
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, NewJobResponse(job))
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	job, err := h.jobService.GetJob(r.Context(), userID, jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewJobResponse(job))
}

// GetArtifact handles GET /api/jobs/{id}/artifact.
func (h *JobHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	artifact, err := h.jobService.GetArtifact(r.Context(), userID, jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewArtifactResponse(artifact))
}

// SaveJob handles POST /api/jobs/{id}/save. Saving requires the job to
// have completed successfully; anything else is a conflict.
func (h *JobHandler) SaveJob(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	job, err := h.jobService.SaveJob(r.Context(), userID, jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewJobResponse(job))
}

// ListSaved handles GET /api/jobs/saved with limit/offset paging.
func (h *JobHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	jobs, hasMore, err := h.jobService.ListSaved(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := SavedJobsResponse{
		Jobs:    make([]JobResponse, 0, len(jobs)),
		HasMore: hasMore,
		Limit:   limit,
		Offset:  offset,
	}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, NewJobResponse(job))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// CreateFeedback handles POST /api/jobs/{id}/feedback.
func (h *JobHandler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	feedback, err := h.jobService.CreateFeedback(r.Context(), userID, jobID, req.Rating, req.Comment)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, FeedbackResponse{
		ID:         feedback.ID,
		ArtifactID: feedback.ArtifactID,
		Rating:     feedback.Rating,
		Comment:    feedback.Comment,
		CreatedAt:  feedback.CreatedAt,
	})
}
