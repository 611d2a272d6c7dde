package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance bounds how old a signed webhook timestamp may be
const DefaultSignatureTolerance = 5 * time.Minute

// StripeEvent is the envelope of a Stripe webhook payload
type StripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// stripeObject covers the fields used across the event types we handle
type stripeObject struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	CustomerEmail     string `json:"customer_email"`
	ClientReferenceID string `json:"client_reference_id"`
	Subscription      string `json:"subscription"`
	CustomerDetails   struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

// VerifyStripeSignature checks a Stripe-Signature header against the raw
// payload. The header carries a timestamp and one or more v1 signatures;
// each v1 value is HMAC-SHA256 of "<timestamp>.<payload>". The timestamp
// must fall within the tolerance window.
func VerifyStripeSignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrInvalidSignature
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return ErrInvalidSignature
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// StripeProcessor turns verified Stripe events into reconciler calls
type StripeProcessor struct {
	reconciler *Reconciler
}

// NewStripeProcessor creates a Stripe event processor
func NewStripeProcessor(reconciler *Reconciler) *StripeProcessor {
	return &StripeProcessor{reconciler: reconciler}
}

// Process applies one parsed Stripe event. Unhandled event types return
// (false, nil) so the caller can acknowledge without side effects.
func (p *StripeProcessor) Process(ctx context.Context, event *StripeEvent) (bool, error) {
	var obj stripeObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return false, fmt.Errorf("failed to parse event object: %w", err)
	}

	email := obj.CustomerEmail
	if email == "" {
		email = obj.CustomerDetails.Email
	}
	payer := Payer{CustomerID: obj.Customer, UserRef: obj.ClientReferenceID, Email: email}

	switch event.Type {
	case "checkout.session.completed":
		externalID := obj.Subscription
		if externalID == "" {
			externalID = obj.ID
		}
		return true, p.reconciler.Activate(ctx, ProviderStripe, externalID, payer)

	case "customer.subscription.deleted":
		return true, p.reconciler.Cancel(ctx, ProviderStripe, obj.ID, payer)

	case "invoice.payment_failed":
		return true, p.reconciler.Cancel(ctx, ProviderStripe, obj.Subscription, payer)

	default:
		return false, nil
	}
}
