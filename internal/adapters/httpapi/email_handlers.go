package httpapi

import (
	"net/http"

	"github.com/mikey/rfp-manager/internal/core"
	"go.uber.org/zap"
)

type pollErrorResponse struct {
	Status string   `json:"status"`
	Error  string   `json:"error"`
	Stack  []string `json:"stack,omitempty"`
}

type sendRFPRequest struct {
	RFPID     int64   `json:"rfpId"`
	VendorIDs []int64 `json:"vendorIds"`
}

type sendToVendorRequest struct {
	RFPID    int64 `json:"rfpId"`
	VendorID int64 `json:"vendorId"`
}

type parseProposalRequest struct {
	Email string `json:"email"`
}

func (s *Server) pollInbox(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.PollInbox(r.Context())
	if err != nil {
		s.logger.Error("Inbox poll failed", zap.Error(err))
		resp := pollErrorResponse{Status: "error", Error: err.Error()}
		if s.cfg.DebugErrors {
			resp.Stack = core.ErrorChain(err)
		}
		s.writeJSON(w, statusFor(err), resp)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) debugInbox(w http.ResponseWriter, r *http.Request) {
	report := s.service.DiagnoseInbox(r.Context())
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, report)
}

func (s *Server) sendRFP(w http.ResponseWriter, r *http.Request) {
	var req sendRFPRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.service.SendRFP(r.Context(), req.RFPID, req.VendorIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) sendToVendor(w http.ResponseWriter, r *http.Request) {
	var req sendToVendorRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var vendorIDs []int64
	if req.VendorID > 0 {
		vendorIDs = []int64{req.VendorID}
	}
	result, err := s.service.SendRFP(r.Context(), req.RFPID, vendorIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) parseProposal(w http.ResponseWriter, r *http.Request) {
	var req parseProposalRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	terms, err := s.service.ParseProposal(r.Context(), req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, terms)
}
