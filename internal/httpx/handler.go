package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/webshop-ops/freefinance-bridge/internal/events"
	"github.com/webshop-ops/freefinance-bridge/internal/freefinance"
	kafkax "github.com/webshop-ops/freefinance-bridge/internal/kafka"
)

// TokenExchanger is satisfied by the FreeFinance client.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (freefinance.TokenPair, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type RequestAudit interface {
	RecordAuthRequest(ctx context.Context, stateOK bool, payload []byte) error
	RecordInvoiceRequest(ctx context.Context, eventID string, payload []byte) error
}

// Handler owns the two trigger endpoints: the OAuth authorization-code
// callback and the invoice-request intake that feeds the worker via Kafka.
type Handler struct {
	Auth     TokenExchanger
	Producer Publisher
	Audit    RequestAudit
	Service  string

	StateSecret string
	// LenientState keeps processing a request whose state parameter does
	// not match, answering with an error body only. Off by default; the
	// strict reject is the intended behavior.
	LenientState bool

	Log zerolog.Logger
}

type invoiceRequest struct {
	EntityID     int    `json:"entity_id"`
	IncrementID  string `json:"increment_id"`
	OrderComment string `json:"order_comment"`
}

type invoiceAccepted struct {
	EventID string `json:"event_id"`
}

func (h *Handler) Register(r *chi.Mux) {
	r.Get("/freefinance/callback", h.authCallback)
	r.Post("/invoices", h.createInvoice)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// stateOK compares the request's state parameter against the shared secret.
func (h *Handler) stateOK(r *http.Request) bool {
	state := r.URL.Query().Get("state")
	return subtle.ConstantTimeCompare([]byte(state), []byte(h.StateSecret)) == 1
}

func (h *Handler) authCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	ok := h.stateOK(r)
	payload, _ := json.Marshal(map[string]any{
		"code_present": r.URL.Query().Get("code") != "",
		"remote":       r.RemoteAddr,
	})
	if err := h.Audit.RecordAuthRequest(ctx, ok, payload); err != nil {
		h.Log.Error().Err(err).Msg("audit auth request failed")
	}

	if !ok {
		h.Log.Warn().Str("remote", r.RemoteAddr).Msg("auth callback with bad state")
		if !h.LenientState {
			http.Error(w, "state parameter missing or wrong", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("state parameter missing or wrong\n"))
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code parameter missing", http.StatusBadRequest)
		return
	}

	if _, err := h.Auth.ExchangeCode(ctx, code); err != nil {
		h.Log.Error().Err(err).Msg("token exchange failed")
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}
	_, _ = w.Write([]byte("authorization complete, token pair stored\n"))
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.stateOK(r) {
		h.Log.Warn().Str("remote", r.RemoteAddr).Msg("invoice request with bad state")
		if !h.LenientState {
			http.Error(w, "state parameter missing or wrong", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("state parameter missing or wrong\n"))
	}

	var req invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.EntityID == 0 && req.IncrementID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "entity_id or increment_id required"})
		return
	}

	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventInvoiceRequested,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: req.IncrementID,
	}
	ev.Payload = kafkax.MustMarshal(events.InvoiceRequestedPayload{
		EntityID:     req.EntityID,
		IncrementID:  req.IncrementID,
		OrderComment: req.OrderComment,
	})

	if err := h.Audit.RecordInvoiceRequest(ctx, ev.EventID, ev.Payload); err != nil {
		h.Log.Error().Err(err).Msg("audit invoice request failed")
	}

	h.Producer.Publish(events.PartitionKey(ev.EventID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventInvoiceRequested)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	writeJSON(w, http.StatusAccepted, invoiceAccepted{EventID: ev.EventID})
}
