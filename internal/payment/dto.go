// AngelaMos | 2026
// dto.go

package payment

type ProcessPaymentRequest struct {
	BookingID string  `json:"booking_id" validate:"required,uuid"`
	Amount    float64 `json:"amount"     validate:"required,gt=0"`
}

type SessionResponse struct {
	PaymentSessionID string `json:"payment_session_id"`
	OrderID          string `json:"order_id"`
	BookingID        string `json:"booking_id"`
	PaymentStatus    string `json:"payment_status"`
	Reused           bool   `json:"reused"`
}

// webhookPayload is the subset of the gateway's payment notification that
// settlement needs.
type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			PaymentStatus string `json:"payment_status"`
		} `json:"payment"`
	} `json:"data"`
}
