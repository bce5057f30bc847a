package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pogoleague/league-system/middleware"
	"github.com/pogoleague/league-system/repositories"
	"github.com/pogoleague/league-system/services"
)

const maxPhotoSize = 10 << 20 // 10MB

type GymHandler struct {
	gymService        services.GymService
	leadershipService services.LeadershipService
	disputeService    services.DisputeService
}

func NewGymHandler(gymService services.GymService, leadershipService services.LeadershipService, disputeService services.DisputeService) *GymHandler {
	return &GymHandler{
		gymService:        gymService,
		leadershipService: leadershipService,
		disputeService:    disputeService,
	}
}

func (h *GymHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.GymInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	gym, err := h.gymService.CreateGym(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"gym": gym}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GymHandler) Get(w http.ResponseWriter, r *http.Request) {
	gymID, err := readIntParam(r, "gymID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	gym, err := h.gymService.GetGym(r.Context(), gymID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"gym": gym}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GymHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListGymsFilter{}

	if league := r.URL.Query().Get("league"); league != "" {
		filter.League = &league
	}
	if inDisputeStr := r.URL.Query().Get("in_dispute"); inDisputeStr != "" {
		inDispute, err := strconv.ParseBool(inDisputeStr)
		if err != nil {
			badRequestResponse(w, r, errors.New("invalid in_dispute query parameter"))
			return
		}
		filter.InDispute = &inDispute
	}

	gyms, err := h.gymService.ListGyms(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"gyms": gyms}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GymHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var input services.GymInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	gym, err := h.gymService.UpdateGym(r.Context(), actor, gymID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"gym": gym}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GymHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
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

	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		badRequestResponse(w, r, errors.New("failed to parse multipart form"))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		badRequestResponse(w, r, errors.New("photo file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	gym, err := h.gymService.UploadPhoto(r.Context(), actor, gymID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"gym": gym}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GymHandler) LeadershipHistory(w http.ResponseWriter, r *http.Request) {
	gymID, err := readIntParam(r, "gymID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
	}

	periods, err := h.leadershipService.History(r.Context(), gymID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"periods": periods}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GymHandler) Renounce(w http.ResponseWriter, r *http.Request) {
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

	outcome, err := h.disputeService.RenounceLeadership(r.Context(), actor, gymID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GymHandler) SubmitChallenge(w http.ResponseWriter, r *http.Request) {
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

	challenge, err := h.gymService.SubmitChallenge(r.Context(), actor, gymID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GymHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	gymID, err := readIntParam(r, "gymID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenges, err := h.gymService.ListChallenges(r.Context(), gymID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenges": challenges}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GymHandler) RecordDefense(w http.ResponseWriter, r *http.Request) {
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
		LeaderWon bool `json:"leader_won"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	gym, err := h.gymService.RecordDefense(r.Context(), actor, gymID, input.LeaderWon)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"gym": gym}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
