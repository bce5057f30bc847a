package handlers

import (
	"net/http"

	"github.com/pogoleague/league-system/middleware"
	"github.com/pogoleague/league-system/models"
	"github.com/pogoleague/league-system/services"
)

type DisputeHandler struct {
	disputeService services.DisputeService
}

func NewDisputeHandler(disputeService services.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputeService: disputeService}
}

// Create — ручное открытие диспута на зал.
func (h *DisputeHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	outcome, err := h.disputeService.CreateDispute(r.Context(), actor, gymID, models.OriginManual)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DisputeHandler) Get(w http.ResponseWriter, r *http.Request) {
	disputeID, err := readIntParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	dispute, err := h.disputeService.GetDispute(r.Context(), disputeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dispute": dispute}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DisputeHandler) Start(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	disputeID, err := readIntParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.disputeService.StartDispute(r.Context(), actor, disputeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DisputeHandler) Close(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	disputeID, err := readIntParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.disputeService.CloseDispute(r.Context(), actor, disputeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DisputeHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	disputeID, err := readIntParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.disputeService.RegisterParticipant(r.Context(), actor, disputeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DisputeHandler) ChooseType(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	disputeID, err := readIntParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		BattleType string `json:"battle_type"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.disputeService.ChooseType(r.Context(), actor, disputeID, input.BattleType); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "battle type set"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DisputeHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	disputeID, err := readIntParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.disputeService.Withdraw(r.Context(), actor, disputeID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "withdrawn from dispute"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DisputeHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	disputeID, err := readIntParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.ReportResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.disputeService.ReportResult(r.Context(), actor, disputeID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DisputeHandler) ConfirmResult(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.GetActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	resultID, err := readIntParam(r, "resultID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.disputeService.ConfirmResult(r.Context(), actor, resultID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DisputeHandler) Standings(w http.ResponseWriter, r *http.Request) {
	disputeID, err := readIntParam(r, "disputeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.disputeService.Standings(r.Context(), disputeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
