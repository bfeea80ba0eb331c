package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/axiomwire/ratelimitd/pkg/breaker"
	"github.com/axiomwire/ratelimitd/pkg/correlation"
	"github.com/axiomwire/ratelimitd/pkg/ratelimit"
)

const defaultLimitKey = "global"
const defaultCost = 1

// checkRequestBody is the wire shape of POST /v1/check's body (spec.md
// section 6): client_id required, limit_key and cost optional with defaults.
type checkRequestBody struct {
	ClientID string `json:"client_id"`
	LimitKey string `json:"limit_key,omitempty"`
	Cost     int64  `json:"cost,omitempty"`
}

type checkResponseBody struct {
	Allowed      bool    `json:"allowed"`
	Remaining    int64   `json:"remaining"`
	RetryAfterMs int64   `json:"retry_after_ms"`
	Limit        int64   `json:"limit"`
	Window       int64   `json:"window"`
	ResetAt      float64 `json:"reset_at"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var body checkRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body")
		return
	}
	if body.LimitKey == "" {
		body.LimitKey = defaultLimitKey
	}
	if body.Cost == 0 {
		body.Cost = defaultCost
	}

	req := ratelimit.CheckRequest{
		ClientID: body.ClientID,
		LimitKey: body.LimitKey,
		Cost:     body.Cost,
	}

	resp, err := s.checker.Check(r.Context(), req)
	if err != nil {
		s.writeCheckError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, checkResponseBody{
		Allowed:      resp.Allowed,
		Remaining:    resp.Remaining,
		RetryAfterMs: resp.RetryAfterMs,
		Limit:        resp.Limit,
		Window:       resp.Window,
		ResetAt:      resp.ResetAt,
	})
}

func (s *Server) writeCheckError(w http.ResponseWriter, r *http.Request, err error) {
	code := ratelimit.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case ratelimit.CodeBadRequest:
		status = http.StatusBadRequest
	case ratelimit.CodeServiceUnavailable:
		status = http.StatusServiceUnavailable
	case ratelimit.CodeInternal:
		status = http.StatusInternalServerError
		s.logger.Error("unreachable error code surfaced from Check",
			zap.String("correlation_id", correlation.FromContext(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: string(code)})
}

type healthResponse struct {
	Status         string `json:"status"`
	StoreAvailable bool   `json:"store_available"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := s.storeHealthy()
	status := "ok"
	if !healthy {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: status, StoreAvailable: healthy})
}

type breakerStatusResponse struct {
	State                 string  `json:"state"`
	FailureCount          int     `json:"failure_count"`
	TimeUntilRetrySeconds float64 `json:"time_until_retry_seconds"`
}

func (s *Server) handleBreakerStatus(w http.ResponseWriter, r *http.Request) {
	state, failures, retry := s.breaker.Status()
	writeJSON(w, http.StatusOK, breakerStatusResponse{
		State:                 stateName(state),
		FailureCount:          failures,
		TimeUntilRetrySeconds: retry,
	})
}

func stateName(s breaker.State) string {
	return s.String()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}
