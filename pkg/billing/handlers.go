package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/menuforge/menuforge/pkg/httputil"
	"github.com/menuforge/menuforge/pkg/observability"
)

// maxWebhookBody bounds how much payload a provider may post
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment provider callbacks
type WebhookHandler struct {
	stripe            *StripeProcessor
	mercadoPago       *MercadoPagoProcessor
	stripeSecret      string
	mercadoPagoSecret string
	tolerance         time.Duration
	logger            *observability.Logger
	metrics           *observability.Metrics
}

// NewWebhookHandler creates the webhook handler
func NewWebhookHandler(reconciler *Reconciler, stripeSecret, mercadoPagoSecret string, logger *observability.Logger, metrics *observability.Metrics) *WebhookHandler {
	return &WebhookHandler{
		stripe:            NewStripeProcessor(reconciler),
		mercadoPago:       NewMercadoPagoProcessor(reconciler),
		stripeSecret:      stripeSecret,
		mercadoPagoSecret: mercadoPagoSecret,
		tolerance:         DefaultSignatureTolerance,
		logger:            logger,
		metrics:           metrics,
	}
}

// RegisterRoutes registers the webhook endpoints
func (h *WebhookHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/webhooks/stripe", h.HandleStripe).Methods("POST")
	router.HandleFunc("/webhooks/mercadopago", h.HandleMercadoPago).Methods("POST")
}

// HandleStripe processes a Stripe webhook delivery. The signature gate is
// hard: nothing from an unverified payload is parsed or applied.
func (h *WebhookHandler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read payload")
		return
	}

	if err := VerifyStripeSignature(payload, r.Header.Get("Stripe-Signature"), h.stripeSecret, h.tolerance, time.Now()); err != nil {
		h.metrics.WebhookEventsTotal.WithLabelValues("stripe", "unknown", "bad_signature").Inc()
		h.logger.Warn("rejected stripe webhook with bad signature")
		httputil.WriteBadRequest(w, "invalid signature")
		return
	}

	var event StripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.metrics.WebhookEventsTotal.WithLabelValues("stripe", "unknown", "bad_payload").Inc()
		httputil.WriteBadRequest(w, "invalid payload")
		return
	}

	handled, err := h.stripe.Process(r.Context(), &event)
	h.respond(w, ProviderStripe, event.Type, handled, err)
}

// HandleMercadoPago processes a MercadoPago webhook delivery
func (h *WebhookHandler) HandleMercadoPago(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read payload")
		return
	}

	var n MercadoPagoNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		h.metrics.WebhookEventsTotal.WithLabelValues("mercadopago", "unknown", "bad_payload").Inc()
		httputil.WriteBadRequest(w, "invalid payload")
		return
	}

	if err := VerifyMercadoPagoSignature(
		r.Header.Get("x-signature"), r.Header.Get("x-request-id"), n.Data.ID, h.mercadoPagoSecret); err != nil {
		h.metrics.WebhookEventsTotal.WithLabelValues("mercadopago", "unknown", "bad_signature").Inc()
		h.logger.Warn("rejected mercadopago webhook with bad signature")
		httputil.WriteBadRequest(w, "invalid signature")
		return
	}

	handled, err := h.mercadoPago.Process(r.Context(), &n)
	h.respond(w, ProviderMercadoPago, n.Type, handled, err)
}

// respond maps processing outcomes to HTTP statuses. Persistence failures
// get a 500 so the provider retries; correlation misses get a 400 with no
// mutation performed.
func (h *WebhookHandler) respond(w http.ResponseWriter, provider Provider, eventType string, handled bool, err error) {
	name := string(provider)
	if err == nil {
		outcome := "ignored"
		if handled {
			outcome = "applied"
		}
		h.metrics.WebhookEventsTotal.WithLabelValues(name, eventType, outcome).Inc()
		httputil.WriteSuccess(w, map[string]bool{"received": true})
		return
	}

	var missing *MissingCorrelationError
	if errors.As(err, &missing) {
		h.metrics.WebhookEventsTotal.WithLabelValues(name, eventType, "no_match").Inc()
		h.logger.WithError(err).Warn("webhook event matched no account")
		httputil.WriteBadRequest(w, "event matches no account")
		return
	}

	var persistence *PersistenceError
	if errors.As(err, &persistence) {
		h.metrics.WebhookEventsTotal.WithLabelValues(name, eventType, "error").Inc()
		h.logger.WithError(err).Error("failed to apply webhook event")
		httputil.WriteInternalError(w, "failed to process event")
		return
	}

	h.metrics.WebhookEventsTotal.WithLabelValues(name, eventType, "error").Inc()
	h.logger.WithError(err).Error("webhook processing failed")
	httputil.WriteInternalError(w, "failed to process event")
}
