package adapthttp

import (
	"net/http"

	"restoadmin/internal/domain"
)

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := s.billing.List(r.Context(), domain.BillFilter{
		FromDate: q.Get("from_date"),
		ToDate:   q.Get("to_date"),
		Search:   q.Get("search"),
		Page:     intQuery(r, "page", 1),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bill, err := s.billing.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.billing.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	months, err := s.billing.MonthlyRevenue(r.Context(), intQuery(r, "year", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": months})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.dashboard.Overview(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
