package adapthttp

import (
	"net/http"

	"restoadmin/internal/app"
	"restoadmin/internal/domain"
)

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var c app.Checkout
	if err := parseJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	q, err := s.checkout.Quote(c)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleSubmitBill(w http.ResponseWriter, r *http.Request) {
	var c app.Checkout
	if err := parseJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bill, err := s.checkout.Submit(r.Context(), c)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (s *Server) handleCustomerSearch(w http.ResponseWriter, r *http.Request) {
	customers, err := s.checkout.SearchCustomers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": customers})
}

func (s *Server) handleCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := s.checkout.Customer(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleLoyaltyHistory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	items, err := s.checkout.LoyaltyHistory(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleAdjustPoints(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var adj domain.PointsAdjustment
	if err := parseJSON(r, &adj); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := s.checkout.AdjustPoints(r.Context(), id, adj)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
