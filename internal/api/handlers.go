package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/menuhub/hubsync/internal/identity"
	"github.com/menuhub/hubsync/internal/protocol"
	"github.com/menuhub/hubsync/internal/transport"
)

// healthCheckTimeout bounds each dependency check.
const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Hub     string            `json:"hub"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "healthy",
		Version: s.version,
		Hub:     s.agent.Status().State.String(),
	}

	status := http.StatusOK
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
		for name, c := range s.checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := c.HealthCheck(ctx)
			cancel()
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.Status())
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	desc, err := s.device.Descriptor(r.Context())
	if err != nil {
		s.logger.Error("loading device descriptor", "error", err)
		writeInternalError(w, "failed to load device descriptor")
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handlePatchDevice(w http.ResponseWriter, r *http.Request) {
	var info identity.Info
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := s.device.SetInfo(r.Context(), info); err != nil {
		s.logger.Error("updating device descriptor", "error", err)
		writeInternalError(w, "failed to update device descriptor")
		return
	}
	s.handleGetDevice(w, r)
}

type pairRequest struct {
	Code string `json:"code"`
	// Wait defaults to true. When false the attempt runs in the
	// background and the handler returns 202 straight away.
	Wait *bool `json:"wait,omitempty"`
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Code == "" {
		writeBadRequest(w, "code is required")
		return
	}

	if req.Wait != nil && !*req.Wait {
		ctx := s.background
		go func() {
			if err := s.agent.ConnectToHub(ctx, req.Code); err != nil {
				s.logger.Warn("background pairing failed", "error", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, s.agent.Status())
		return
	}

	if err := s.agent.ConnectToHub(r.Context(), req.Code); err != nil {
		writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.agent.Status())
}

func (s *Server) handleUnpair(w http.ResponseWriter, r *http.Request) {
	if err := s.agent.Disconnect(r.Context()); err != nil {
		writeAgentError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePendingOffer(w http.ResponseWriter, _ *http.Request) {
	if s.manual == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeNotImplemented, "manual signalling is not enabled")
		return
	}
	req, ok := s.manual.PendingOffer()
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no offer awaiting an answer")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleDeliverAnswer(w http.ResponseWriter, r *http.Request) {
	if s.manual == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeNotImplemented, "manual signalling is not enabled")
		return
	}
	var answer transport.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&answer); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if answer.SDP == "" {
		writeBadRequest(w, "sdp is required")
		return
	}
	if answer.Type == "" {
		answer.Type = "answer"
	}
	if err := s.manual.Deliver(answer); err != nil {
		if errors.Is(err, transport.ErrNoPendingOffer) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type placeOrderRequest struct {
	Order protocol.Order  `json:"order"`
	Items []protocol.Item `json:"items"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Order == nil {
		writeBadRequest(w, "order is required")
		return
	}

	res, err := s.agent.PlaceOrder(r.Context(), req.Order, req.Items)
	if err != nil {
		writeAgentError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Deferred {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	res, err := s.agent.UpdateOrder(r.Context(), clientID, updates)
	if err != nil {
		writeAgentError(w, err)
		return
	}
	status := http.StatusOK
	if res.Deferred {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func (s *Server) handleRequestSync(w http.ResponseWriter, r *http.Request) {
	if err := s.agent.RequestSync(r.Context()); err != nil {
		writeAgentError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
