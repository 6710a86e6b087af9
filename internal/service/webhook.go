package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/kodjomensah/warimarket/internal/models"
	"github.com/kodjomensah/warimarket/internal/repo"
	"github.com/kodjomensah/warimarket/internal/transport"
	"github.com/kodjomensah/warimarket/pkg/logging"
)

// WebhookService reconciles asynchronous provider results onto payments.
type WebhookService struct {
	Repo     *repo.GormRepo
	Payments *PaymentService
	Orders   *OrderService
	// Secrets maps provider slug to the shared HMAC secret.
	Secrets map[string][]byte
}

// ProcessWebhook verifies the payload signature, then applies the provider
// result to the referenced payment. Verification happens before anything is
// read out of the body, and redelivery of an already-applied result is a
// no-op rather than an error.
func (s *WebhookService) ProcessWebhook(ctx context.Context, provider string, body []byte, signature string) (*models.Payment, error) {
	secret, ok := s.Secrets[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrValidation, provider)
	}

	if !verifySignature(secret, body, signature) {
		logging.FromContext(ctx).Warn("webhook_signature_rejected", "provider", provider)
		return nil, fmt.Errorf("%w: provider %q", ErrInvalidSignature, provider)
	}

	var hook transport.PaymentWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrValidation, err)
	}
	if hook.Reference == "" {
		return nil, fmt.Errorf("%w: reference required", ErrValidation)
	}

	mapped, err := mapProviderStatus(hook.Status)
	if err != nil {
		return nil, err
	}

	payment, err := s.Repo.GetPaymentByReference(ctx, hook.Reference)
	if err != nil {
		return nil, wrapNotFound(err, "payment "+hook.Reference)
	}

	if payment.Status != models.PaymentStatusPending {
		return s.reconcileDuplicate(ctx, provider, payment, mapped, hook.TransactionID)
	}

	err = s.Repo.WithTx(ctx, func(tx *gorm.DB) error {
		fresh, err := s.Payments.getPaymentTx(tx, payment.ID)
		if err != nil {
			return err
		}
		// Re-check under the transaction; a concurrent delivery may have
		// settled the payment between the read above and here.
		if fresh.Status != models.PaymentStatusPending {
			payment = fresh
			return nil
		}

		if err := s.Payments.applyStatusTx(tx, fresh, mapped, hook.TransactionID, hook.Message); err != nil {
			return err
		}
		fresh.ProviderPayload = string(body)
		if err := s.Repo.SavePayment(tx, fresh); err != nil {
			return err
		}
		payment = fresh

		if mapped == models.PaymentStatusFailed {
			return s.Orders.CancelBySystem(ctx, tx, fresh.OrderID, "payment failed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if payment.Status != models.PaymentStatusPending {
		s.Payments.publish(ctx, payment.Reference, map[string]any{
			"type":       "payment_" + string(payment.Status),
			"payment_id": payment.ID,
			"reference":  payment.Reference,
			"order_id":   payment.OrderID,
			"provider":   provider,
		})
	}
	return payment, nil
}

// reconcileDuplicate decides between the idempotent no-op and the operator
// alarm. Same outcome (and same external id, when the provider sends one)
// means redelivery; anything else contradicts the recorded settlement.
func (s *WebhookService) reconcileDuplicate(ctx context.Context, provider string, payment *models.Payment, mapped models.PaymentStatus, externalID string) (*models.Payment, error) {
	sameOutcome := payment.Status == mapped ||
		(payment.Status == models.PaymentStatusExpired && mapped == models.PaymentStatusFailed)
	sameExternal := externalID == "" || externalID == payment.ExternalID

	if sameOutcome && sameExternal {
		if err := s.Repo.IncrementPaymentRetry(ctx, payment.ID); err != nil {
			return nil, err
		}
		payment.RetryCount++
		return payment, nil
	}

	logging.FromContext(ctx).Warn("webhook_conflict",
		"provider", provider,
		"reference", payment.Reference,
		"recorded_status", payment.Status,
		"incoming_status", mapped,
		"recorded_external_id", payment.ExternalID,
		"incoming_external_id", externalID,
	)
	return nil, fmt.Errorf("%w: payment %s", ErrConflictingWebhook, payment.Reference)
}

// verifySignature checks a hex HMAC-SHA256 over the raw body. Comparison is
// constant time.
func verifySignature(secret, body []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

// SignPayload produces the signature a provider is expected to send.
// Exported for tests and for the sandbox replay tool.
func SignPayload(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func mapProviderStatus(code string) (models.PaymentStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "SUCCESS", "SUCCESSFUL", "COMPLETED", "PAID", "00", "0":
		return models.PaymentStatusCompleted, nil
	case "FAILED", "FAILURE", "CANCELLED", "DECLINED", "EXPIRED", "TIMEOUT":
		return models.PaymentStatusFailed, nil
	default:
		return "", fmt.Errorf("%w: unknown provider status %q", ErrValidation, code)
	}
}
