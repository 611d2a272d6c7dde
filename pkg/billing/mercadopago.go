package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// MercadoPagoNotification is the envelope MercadoPago posts to the webhook.
// Preapproval notifications carry the subscription state directly; other
// types are acknowledged and ignored.
type MercadoPagoNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
	// Preapproval is the inlined subscription object delivered with
	// preapproval notifications.
	Preapproval struct {
		ID                string `json:"id"`
		PayerEmail        string `json:"payer_email"`
		ExternalReference string `json:"external_reference"`
		Status            string `json:"status"`
	} `json:"preapproval"`
}

// VerifyMercadoPagoSignature checks the x-signature header. The header
// carries "ts=<unix>,v1=<hex>" where v1 is HMAC-SHA256 over the manifest
// "id:<dataID>;request-id:<requestID>;ts:<ts>;".
func VerifyMercadoPagoSignature(xSignature, xRequestID, dataID, secret string) error {
	if xSignature == "" {
		return ErrInvalidSignature
	}

	var ts, v1 string
	for _, part := range strings.Split(xSignature, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return ErrInvalidSignature
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, xRequestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return ErrInvalidSignature
	}
	return nil
}

// MercadoPagoProcessor turns verified MercadoPago notifications into
// reconciler calls.
type MercadoPagoProcessor struct {
	reconciler *Reconciler
}

// NewMercadoPagoProcessor creates a MercadoPago notification processor
func NewMercadoPagoProcessor(reconciler *Reconciler) *MercadoPagoProcessor {
	return &MercadoPagoProcessor{reconciler: reconciler}
}

// Process applies one verified notification. Only preapproval notifications
// mutate state; everything else is acknowledged untouched.
func (p *MercadoPagoProcessor) Process(ctx context.Context, n *MercadoPagoNotification) (bool, error) {
	if n.Type != "preapproval" {
		return false, nil
	}

	externalID := n.Preapproval.ID
	if externalID == "" {
		externalID = n.Data.ID
	}
	payer := Payer{UserRef: n.Preapproval.ExternalReference, Email: n.Preapproval.PayerEmail}

	switch n.Preapproval.Status {
	case "authorized":
		return true, p.reconciler.Activate(ctx, ProviderMercadoPago, externalID, payer)
	case "cancelled", "paused":
		return true, p.reconciler.Cancel(ctx, ProviderMercadoPago, externalID, payer)
	case "pending":
		return true, p.reconciler.MarkPending(ctx, ProviderMercadoPago, externalID, payer)
	default:
		return false, nil
	}
}
