package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"campusmarket/internal/service"
)

// @Summary      Report a listing or user
// @Tags         reports
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body service.CreateReportInput true "Report"
// @Success      201  {object}  domain.Report
// @Failure      400  {object}  errorBody
// @Failure      409  {object}  errorBody
// @Router       /reports [post]
func handleCreateReport(svc *service.ReportService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.CreateReportInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, log, err)
			return
		}
		rep, err := svc.Create(r.Context(), CurrentIdentity(r), in)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, rep)
	}
}

// @Summary      List unresolved reports
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  domain.Report
// @Failure      403  {object}  errorBody
// @Router       /admin/reports [get]
func handleListReports(svc *service.ReportService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reps, err := svc.ListUnresolved(r.Context(), CurrentIdentity(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, reps)
	}
}

// @Summary      Resolve report
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "Report ID"
// @Success      200  {object}  domain.Report
// @Failure      404  {object}  errorBody
// @Failure      409  {object}  errorBody
// @Router       /admin/reports/{id} [patch]
func handleResolveReport(svc *service.ReportService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.Resolve(r.Context(), CurrentIdentity(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}
