package httpapi

import (
	"net/http"

	"github.com/mikey/rfp-manager/internal/core"
)

type vendorRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

func (v vendorRequest) toVendor(id int64) *core.Vendor {
	return &core.Vendor{ID: id, Name: v.Name, Email: v.Email, Contact: v.Contact}
}

func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := s.service.ListVendors(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, vendors)
}

func (s *Server) createVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	vendor, err := s.service.CreateVendor(r.Context(), req.toVendor(0))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, vendor)
}

func (s *Server) getVendor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	vendor, err := s.service.GetVendor(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, vendor)
}

func (s *Server) updateVendor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req vendorRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	vendor, err := s.service.UpdateVendor(r.Context(), req.toVendor(id))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, vendor)
}

func (s *Server) deleteVendor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.service.DeleteVendor(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
