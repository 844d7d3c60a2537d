package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureHeader is the HTTP header Paystack signs webhook deliveries with.
const SignatureHeader = "x-paystack-signature"

// VerifySignature reports whether header is the hex encoded HMAC-SHA512 of
// the raw request body under the account secret. The body bytes must be
// exactly what arrived on the wire; re-serialized JSON will not match.
// Comparison is constant time.
func VerifySignature(secret string, body []byte, header string) bool {
	if header == "" {
		return false
	}
	provided, err := hex.DecodeString(header)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}

// SignBody computes the hex encoded HMAC-SHA512 that a webhook delivery of
// body would carry.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
