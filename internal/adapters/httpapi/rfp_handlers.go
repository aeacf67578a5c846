package httpapi

import (
	"context"
	"net/http"
	"time"
)

type createRFPRequest struct {
	Text string `json:"text"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) createRFPFromText(w http.ResponseWriter, r *http.Request) {
	var req createRFPRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rfp, err := s.service.CreateRFPFromText(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rfp)
}

func (s *Server) listRFPs(w http.ResponseWriter, r *http.Request) {
	rfps, err := s.service.ListRFPs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rfps)
}

func (s *Server) getRFP(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := s.service.GetRFPDetail(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) deleteRFP(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.service.DeleteRFP(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.service.Recommend(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "healthy", Store: "pass", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	status := http.StatusOK
	if err := s.service.Store().Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Store = "fail"
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}
