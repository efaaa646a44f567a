package handler

import (
	"errors"
	"io"
	"net/http"

	"leadscore_backend/internal/leadscore/ports"
	"leadscore_backend/internal/leadscore/scoring"
	"leadscore_backend/internal/leadscore/service"
	"leadscore_backend/internal/leadscore/transport"
	"leadscore_backend/platform/httpkit"
	"leadscore_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgInvalidLeadID    = "invalid lead id"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the scoring routes. rescoreLimit guards the
// asynchronous rescoring endpoint and may be nil.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, rescoreLimit gin.HandlerFunc) {
	rg.GET("/top", h.TopLeads)
	rg.GET("/:leadId", h.Get)
	rg.GET("/:leadId/history", h.History)
	rg.POST("/:leadId/calculate", h.Calculate)
	if rescoreLimit != nil {
		rg.POST("/:leadId/rescore", rescoreLimit, h.Rescore)
	} else {
		rg.POST("/:leadId/rescore", h.Rescore)
	}
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// Calculate scores a lead synchronously. Without a body the lead record
// supplies the attributes.
func (h *Handler) Calculate(c *gin.Context) {
	if httpkit.MustGetIdentity(c) == nil {
		return
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.CalculateScoreRequest
	err := c.ShouldBindJSON(&req)
	if errors.Is(err, io.EOF) {
		score, err := h.svc.RescoreLead(c.Request.Context(), leadID)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, score)
		return
	}
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	score, err := h.svc.CalculateLeadScore(c.Request.Context(), leadID, req.LeadData())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, score)
}

// Rescore queues a background recalculation. A request folded into a task
// that is still pending reports "already_queued".
func (h *Handler) Rescore(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	status := transport.RescoreQueued
	err := h.svc.EnqueueRescore(c.Request.Context(), leadID)
	if errors.Is(err, ports.ErrRescorePending) {
		status = transport.RescoreAlreadyQueued
		err = nil
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.RescoreAcceptedResponse{LeadID: leadID, Status: status})
}

func (h *Handler) Get(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	score, err := h.svc.GetLeadScore(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, score)
}

func (h *Handler) History(c *gin.Context) {
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}
	history, err := h.svc.GetLeadScoreHistory(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.HistoryResponse{LeadID: leadID, History: history})
}

// TopLeads lists the caller's best-scored leads.
func (h *Handler) TopLeads(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var query transport.TopLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	top, err := h.svc.GetTopLeads(c.Request.Context(), identity.UserID(), query.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": top, "grades": gradeCounts(top)})
}

func gradeCounts(top []service.TopLead) map[scoring.Grade]int {
	counts := map[scoring.Grade]int{
		scoring.GradeA: 0, scoring.GradeB: 0, scoring.GradeC: 0, scoring.GradeD: 0, scoring.GradeF: 0,
	}
	for _, item := range top {
		counts[item.ScoreGrade]++
	}
	return counts
}
