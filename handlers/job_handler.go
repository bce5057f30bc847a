package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/pogoleague/league-system/middleware"
	"github.com/pogoleague/league-system/models"
	"github.com/pogoleague/league-system/services"
)

type JobHandler struct {
	jobService services.JobService
}

func NewJobHandler(jobService services.JobService) *JobHandler {
	return &JobHandler{jobService: jobService}
}

// Schedule — админ откладывает переход жизненного цикла на будущее:
// action + смещение в часах от текущего момента.
func (h *JobHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	gymID, err := readIntParam(r, "gymID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Action       models.JobAction `json:"action"`
		HoursFromNow float64          `json:"hours_from_now"`
		DisputeID    *int             `json:"dispute_id,omitempty"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.HoursFromNow <= 0 {
		badRequestResponse(w, r, errors.New("hours_from_now must be positive"))
		return
	}

	job, err := h.jobService.Schedule(r.Context(), actor, services.ScheduleJobInput{
		GymID:     gymID,
		DisputeID: input.DisputeID,
		Action:    input.Action,
		FireAt:    time.Now().Add(time.Duration(input.HoursFromNow * float64(time.Hour))),
		Origin:    "manual schedule",
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"job": job}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	gymID, err := readIntParam(r, "gymID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	jobs, err := h.jobService.ListGymJobs(r.Context(), gymID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"jobs": jobs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	gymID, err := readIntParam(r, "gymID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	cancelled, err := h.jobService.CancelPendingJobs(r.Context(), actor, gymID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"cancelled": cancelled}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
