// Package paystack holds the provider-facing pieces: webhook signature
// verification, the webhook event envelope, and a REST client for
// transaction initialization and verification.
package paystack

// EventChargeSuccess is the only webhook event type that settles money.
// Everything else is acknowledged and ignored.
const EventChargeSuccess = "charge.success"

// StatusSuccess is the data.status value of a settled charge. The webhook
// handler trusts this field, not the event name alone.
const StatusSuccess = "success"

// Event is the envelope Paystack posts to the webhook endpoint.
type Event struct {
	Event string     `json:"event"`
	Data  ChargeData `json:"data"`
}

// ChargeData carries the charge fields this service consumes. Paystack sends
// a much larger object; the rest is ignored on purpose.
type ChargeData struct {
	ID              int64  `json:"id"`
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"` // subunits (kobo)
	Currency        string `json:"currency"`
	Channel         string `json:"channel"`
	PaidAt          string `json:"paid_at"`
	GatewayResponse string `json:"gateway_response"`
}
