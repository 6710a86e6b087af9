package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func randomSuffix(n int) string {
	s := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// OrderNumber builds the human-readable order number, e.g. WM-20260830-7F3A1C.
func OrderNumber(now time.Time) string {
	return fmt.Sprintf("WM-%s-%s", now.UTC().Format("20060102"), randomSuffix(6))
}

// PaymentReference builds the unique transaction reference handed to the
// payment provider, e.g. WPAY-20260830-9C4E21AB.
func PaymentReference(now time.Time) string {
	return fmt.Sprintf("WPAY-%s-%s", now.UTC().Format("20060102"), randomSuffix(8))
}
