// Package dispatch delivers queued domain events to subscriber endpoints with
// HMAC signing, bounded exponential-backoff retries and per-attempt audit
// logging.
package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex HMAC-SHA256 of body under secret. The signature is
// computed over the exact serialized bytes sent on the wire so subscribers
// can verify without re-marshaling.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader formats the signature the way it travels in
// X-Webhook-Signature.
func SignatureHeader(body []byte, secret string) string {
	return "sha256=" + Sign(body, secret)
}
