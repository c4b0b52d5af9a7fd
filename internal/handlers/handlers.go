// Package handlers exposes the core's operations over HTTP: a struct
// holding its dependencies, one gin method per route, errors mapped through
// a shared envelope.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cliffdoyle/chess-arbiter/internal/apperr"
	"github.com/cliffdoyle/chess-arbiter/internal/domain"
	"github.com/cliffdoyle/chess-arbiter/internal/recorder"
	"github.com/cliffdoyle/chess-arbiter/internal/repository"
	"github.com/cliffdoyle/chess-arbiter/internal/roundctl"
	"github.com/cliffdoyle/chess-arbiter/internal/standings"
)

// Handler groups the HTTP surface's dependencies.
type Handler struct {
	controller  *roundctl.Controller
	recorder    recorder.Recorder
	calculator  standings.Calculator
	pairings    repository.PairingRepository
	tournaments repository.TournamentRepository
}

// New creates a Handler.
func New(controller *roundctl.Controller, rec recorder.Recorder, calc standings.Calculator, pairings repository.PairingRepository, tournaments repository.TournamentRepository) *Handler {
	return &Handler{controller: controller, recorder: rec, calculator: calc, pairings: pairings, tournaments: tournaments}
}

// Register wires the routes onto the given routers: mutating endpoints go on
// protected (behind the auth guard), read-only listings and standings on
// public.
func (h *Handler) Register(public, protected gin.IRouter) {
	protected.POST("/pairings/generate", h.GeneratePairings)
	protected.POST("/pairings/generate/section", h.GenerateSectionPairings)
	protected.PUT("/pairings/:id/result", h.RecordResult)
	protected.PATCH("/pairings/:id/result", h.CorrectResult)
	protected.POST("/pairings/:id/bye-result", h.RecordByeResult)
	protected.POST("/tournaments/:id/continue", h.Continue)
	public.GET("/pairings", h.ListPairings)
	public.GET("/tournaments/:id/standings", h.Standings)
}

type generateRequest struct {
	TournamentID string `json:"tournamentId" binding:"required"`
}

// GeneratePairings handles POST /pairings/generate.
func (h *Handler) GeneratePairings(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &apperr.ValidationError{Detail: err.Error()})
		return
	}
	if err := h.controller.StartRound(c.Request.Context(), req.TournamentID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"tournamentId": req.TournamentID})
}

type generateSectionRequest struct {
	TournamentID string `json:"tournamentId" binding:"required"`
	Section      string `json:"section" binding:"required"`
}

// GenerateSectionPairings handles POST /pairings/generate/section.
func (h *Handler) GenerateSectionPairings(c *gin.Context) {
	var req generateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &apperr.ValidationError{Detail: err.Error()})
		return
	}
	if err := h.controller.PairSection(c.Request.Context(), req.TournamentID, req.Section); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"tournamentId": req.TournamentID, "section": req.Section})
}

type recordResultRequest struct {
	Code domain.ResultCode `json:"code" binding:"required"`
}

// RecordResult handles PUT /pairings/:id/result.
func (h *Handler) RecordResult(c *gin.Context) {
	pairingID := c.Param("id")
	var req recordResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &apperr.ValidationError{Detail: err.Error()})
		return
	}
	if err := h.recorder.RecordGameResult(c.Request.Context(), pairingID, req.Code); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"pairingId": pairingID, "code": req.Code})
}

// CorrectResult handles PATCH /pairings/:id/result, overwriting a game
// result that was already recorded (distinct from RecordResult, which
// rejects a divergent resubmission as a conflict).
func (h *Handler) CorrectResult(c *gin.Context) {
	pairingID := c.Param("id")
	var req recordResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &apperr.ValidationError{Detail: err.Error()})
		return
	}
	if err := h.recorder.CorrectResult(c.Request.Context(), pairingID, req.Code); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"pairingId": pairingID, "code": req.Code})
}

type recordByeRequest struct {
	ByeType domain.ByeType `json:"byeType" binding:"required"`
}

// RecordByeResult handles POST /pairings/:id/bye-result.
func (h *Handler) RecordByeResult(c *gin.Context) {
	pairingID := c.Param("id")
	var req recordByeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &apperr.ValidationError{Detail: err.Error()})
		return
	}
	if err := h.recorder.RecordByeResult(c.Request.Context(), pairingID, req.ByeType); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"pairingId": pairingID, "byeType": req.ByeType})
}

// ListPairings handles GET /pairings?tournament=&round=&section=.
func (h *Handler) ListPairings(c *gin.Context) {
	tournamentID := c.Query("tournament")
	round := 0
	if roundStr := c.Query("round"); roundStr != "" {
		parsed, err := strconv.Atoi(roundStr)
		if err != nil {
			respondError(c, &apperr.ValidationError{Detail: "round must be an integer"})
			return
		}
		round = parsed
	}
	if tournamentID == "" {
		respondError(c, &apperr.ValidationError{Detail: "tournament query parameter is required"})
		return
	}

	section := c.Query("section")

	var out []*domain.Pairing
	var err error
	if section != "" {
		out, err = h.pairings.ListByTournamentRoundSection(c.Request.Context(), tournamentID, round, section)
	} else {
		// Listing every section of a round reads what the engine actually
		// persisted (internal/repository.PairingRepository.ListByTournamentRound),
		// not the Partitioner's roster-derived section list, which never
		// contains quad's per-quad sub-sections.
		out, err = h.pairings.ListByTournamentRound(c.Request.Context(), tournamentID, round)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, out)
}

// Standings handles GET /tournaments/:id/standings?section=.
func (h *Handler) Standings(c *gin.Context) {
	tournamentID := c.Param("id")
	section := c.DefaultQuery("section", "Open")

	t, err := h.tournaments.Get(c.Request.Context(), tournamentID)
	if err != nil {
		respondError(c, &apperr.NotFoundError{Entity: "tournament", ID: tournamentID})
		return
	}

	rows, err := h.calculator.Standings(c.Request.Context(), tournamentID, section, t.TiebreakOrderOrDefault())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, rows)
}

// Continue handles POST /tournaments/:id/continue: validate the current
// round is fully recorded, then either complete the tournament or pair the
// next round.
func (h *Handler) Continue(c *gin.Context) {
	tournamentID := c.Param("id")
	if err := h.controller.Continue(c.Request.Context(), tournamentID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"tournamentId": tournamentID})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// respondError maps the apperr taxonomy to HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal"

	var validationErr *apperr.ValidationError
	var notFoundErr *apperr.NotFoundError
	var stateErr *apperr.StateError
	var pairingErr *apperr.PairingError
	var conflictErr *apperr.ConflictError
	var timeoutErr *apperr.TimeoutError

	switch {
	case errors.As(err, &validationErr):
		status, code = http.StatusBadRequest, "validation"
	case errors.As(err, &notFoundErr):
		status, code = http.StatusNotFound, "not_found"
	case errors.As(err, &stateErr):
		status, code = http.StatusConflict, "state"
	case errors.As(err, &conflictErr):
		status, code = http.StatusConflict, "conflict"
	case errors.As(err, &pairingErr):
		status, code = http.StatusUnprocessableEntity, "pairing"
	case errors.As(err, &timeoutErr):
		// Distinct from engine infeasibility: the operation ran out of
		// budget and the caller may retry.
		status, code = http.StatusServiceUnavailable, "timeout"
	}

	c.JSON(status, gin.H{"success": false, "error": code, "detail": err.Error()})
}
