package service

import (
	"fmt"
	"math"

	"github.com/kodjomensah/warimarket/internal/models"
)

type FeeRule struct {
	Rate   float64
	MinFee int64
	MaxFee int64
}

// feeSchedule holds the per-method processing fee: a rate clamped between a
// floor and a ceiling. Amounts are whole francs (XOF has no subunit).
var feeSchedule = map[models.PaymentMethod]FeeRule{
	models.PaymentMethodMTNMoMo:        {Rate: 0.02, MinFee: 100, MaxFee: 5000},
	models.PaymentMethodOrangeMoney:    {Rate: 0.015, MinFee: 100, MaxFee: 4000},
	models.PaymentMethodMoovMoney:      {Rate: 0.02, MinFee: 100, MaxFee: 5000},
	models.PaymentMethodWave:           {Rate: 0.01, MinFee: 0, MaxFee: 3000},
	models.PaymentMethodCard:           {Rate: 0.029, MinFee: 200, MaxFee: 10000},
	models.PaymentMethodBankTransfer:   {Rate: 0.005, MinFee: 500, MaxFee: 10000},
	models.PaymentMethodCashOnDelivery: {Rate: 0, MinFee: 0, MaxFee: 0},
	models.PaymentMethodOther:          {Rate: 0.02, MinFee: 100, MaxFee: 5000},
}

// ComputeFee returns clamp(amount*rate, min, max) for the method. The fee is
// computed exactly once, at payment creation.
func ComputeFee(method models.PaymentMethod, amount int64) (int64, error) {
	rule, ok := feeSchedule[method]
	if !ok {
		return 0, fmt.Errorf("%w: unknown payment method %q", ErrValidation, method)
	}

	fee := int64(math.Round(float64(amount) * rule.Rate))
	if fee < rule.MinFee {
		fee = rule.MinFee
	}
	if fee > rule.MaxFee {
		fee = rule.MaxFee
	}
	return fee, nil
}

func ParsePaymentMethod(s string) (models.PaymentMethod, error) {
	m := models.PaymentMethod(s)
	if _, ok := feeSchedule[m]; !ok {
		return "", fmt.Errorf("%w: unknown payment method %q", ErrValidation, s)
	}
	return m, nil
}
