package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
	"github.com/mindoraRwanda/mindorabeta/internal/identity"
	"github.com/mindoraRwanda/mindorabeta/internal/monitoring"
	"github.com/mindoraRwanda/mindorabeta/internal/report"
	"github.com/mindoraRwanda/mindorabeta/internal/store"
)

// MonitoringHandler exposes monitoring records and reports.
type MonitoringHandler struct {
	*Handler
	svc      *monitoring.Service
	renderer *report.Renderer
}

// NewMonitoringHandler creates a monitoring handler. renderer may be nil to
// disable PDF reports.
func NewMonitoringHandler(base *Handler, svc *monitoring.Service, renderer *report.Renderer) *MonitoringHandler {
	return &MonitoringHandler{Handler: base, svc: svc, renderer: renderer}
}

// RegisterRoutes registers monitoring routes. Callers must already be
// authenticated.
func (h *MonitoringHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/monitoring", func(r chi.Router) {
		r.With(identity.RequireRole(domain.RolePatient)).Get("/me", h.GetMine)

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireRole(domain.RoleTherapist))
			r.Post("/patients/{patientID}", h.CreateEntry)
			r.Patch("/entries/{entryID}", h.UpdateEntry)
			r.Get("/patients/{patientID}/report", h.GetReport)
			r.Get("/patients/{patientID}/report.pdf", h.GetReportPDF)
		})

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireRole(domain.RoleAdmin))
			r.Get("/high-risk", h.HighRisk)
			r.Post("/run", h.RunPass)
		})
	})
}

type entryRequest struct {
	RiskLevel *domain.RiskLevel `json:"riskLevel"`
	Notes     *string           `json:"notes"`
}

// GetMine returns the caller's own monitoring record, or null when the
// patient is not monitored yet.
func (h *MonitoringHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetPatientMonitoring(r.Context(), identity.UserIDFromContext(r.Context()))
	if errors.Is(err, store.ErrNotFound) {
		JSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, rec)
}

// CreateEntry opens a monitoring record for a patient.
func (h *MonitoringHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if req.RiskLevel == nil {
		Error(w, http.StatusBadRequest, "riskLevel is required")
		return
	}
	notes := ""
	if req.Notes != nil {
		notes = *req.Notes
	}

	rec, err := h.svc.CreateEntry(r.Context(), chi.URLParam(r, "patientID"),
		identity.UserIDFromContext(r.Context()), *req.RiskLevel, notes)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, rec)
}

// UpdateEntry changes a monitoring record's risk level or notes.
func (h *MonitoringHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	rec, err := h.svc.UpdateEntry(r.Context(), chi.URLParam(r, "entryID"), store.MonitoringUpdate{
		RiskLevel: req.RiskLevel,
		Notes:     req.Notes,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, rec)
}

// GetReport returns a patient's report over ?days= (default 30).
func (h *MonitoringHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.GenerateReport(r.Context(), chi.URLParam(r, "patientID"), queryInt(r, "days", 0))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, rep)
}

// GetReportPDF returns a patient's report rendered as a PDF.
func (h *MonitoringHandler) GetReportPDF(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		Error(w, http.StatusNotImplemented, "PDF reports are not enabled")
		return
	}
	patientID := chi.URLParam(r, "patientID")
	rep, err := h.svc.GenerateReport(r.Context(), patientID, queryInt(r, "days", 0))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, rep); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%s.pdf"`, patientID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HighRisk lists patients at HIGH or CRITICAL risk.
func (h *MonitoringHandler) HighRisk(w http.ResponseWriter, r *http.Request) {
	patients, err := h.svc.HighRiskPatients(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if patients == nil {
		patients = []domain.HighRiskPatient{}
	}
	JSON(w, http.StatusOK, patients)
}

// RunPass runs the daily monitoring pass on demand.
func (h *MonitoringHandler) RunPass(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunDailyMonitoringPass(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, result)
}
