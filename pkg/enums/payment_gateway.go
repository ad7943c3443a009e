package enums

import (
	"fmt"
	"strconv"
	"strings"
)

// PaymentGateway identifies the channel that settled a credit.
type PaymentGateway int

const (
	PaymentGatewayNone       PaymentGateway = 0
	PaymentGatewayGooglePlay PaymentGateway = 1
	PaymentGatewayRazorpay   PaymentGateway = 2
	PaymentGatewayStripe     PaymentGateway = 3
)

var paymentGatewayNames = map[PaymentGateway]string{
	PaymentGatewayNone:       "none",
	PaymentGatewayGooglePlay: "google_play",
	PaymentGatewayRazorpay:   "razorpay",
	PaymentGatewayStripe:     "stripe",
}

func (g PaymentGateway) IsValid() bool {
	_, ok := paymentGatewayNames[g]
	return ok
}

func (g PaymentGateway) String() string {
	if name, ok := paymentGatewayNames[g]; ok {
		return name
	}
	return "unknown"
}

// ParsePaymentGateway accepts either the numeric code or the snake_case name.
func ParsePaymentGateway(value string) (PaymentGateway, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if n, err := strconv.Atoi(value); err == nil {
		if g := PaymentGateway(n); g.IsValid() {
			return g, nil
		}
		return 0, fmt.Errorf("invalid payment gateway %q", value)
	}
	for g, name := range paymentGatewayNames {
		if name == value {
			return g, nil
		}
	}
	return 0, fmt.Errorf("invalid payment gateway %q", value)
}
