package api

import (
	"encoding/json"
	"net/http"

	"github.com/ratefence/ratefence/pkg/ratefence"
)

// Handler serves admission checks over HTTP, for callers that want a
// yes/no decision without putting the limiter in front of their own
// handlers.
type Handler struct {
	limiter ratefence.Limiter
}

// NewHandler creates a new API handler.
func NewHandler(limiter ratefence.Limiter) *Handler {
	return &Handler{limiter: limiter}
}

// CheckRequest represents the incoming admission check request.
type CheckRequest struct {
	// Address is the client's network address in any textual form
	// containing an IPv4 dotted quad ("203.0.113.7", "203.0.113.7:port").
	Address string `json:"address"`
}

// CheckResponse represents the admission check response.
type CheckResponse struct {
	Allowed       bool   `json:"allowed"`                // Whether the request is admitted
	ClientID      string `json:"client_id"`              // Resolved client identity
	WaitSeconds   int64  `json:"wait_seconds,omitempty"` // Seconds until retry (if denied)
	Limit         int    `json:"limit"`                  // Request budget per window
	PeriodSeconds int64  `json:"period_seconds"`         // Window length
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CheckAdmission handles POST /check requests.
func (h *Handler) CheckAdmission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST requests are allowed")
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if req.Address == "" {
		h.sendError(w, http.StatusBadRequest, "missing_address", "address is required")
		return
	}

	id := ratefence.ParseClientID(req.Address)
	if id == 0 {
		// A client that cannot be identified cannot be rate limited;
		// mirror the middleware's service-unavailable semantics.
		h.sendError(w, http.StatusServiceUnavailable, "unidentified_client",
			"address contains no usable IPv4 identity")
		return
	}

	wait := h.limiter.Admit(id)
	policy := h.limiter.Policy()

	response := CheckResponse{
		Allowed:       wait == 0,
		ClientID:      id.String(),
		WaitSeconds:   wait,
		Limit:         policy.Requests,
		PeriodSeconds: policy.Period,
	}

	statusCode := http.StatusOK
	if !response.Allowed {
		statusCode = http.StatusTooManyRequests
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) sendError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
