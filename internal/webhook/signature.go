// Package webhook verifies and dispatches inbound carrier webhook events.
package webhook

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// maxSkew bounds how far a signed timestamp may drift from wall clock time
// before a webhook is rejected as stale or forged.
const maxSkew = 5 * time.Minute

// SignatureVerifier validates a carrier's Ed25519-signed webhook body
// against its published public key. The signed message is
// "timestamp|.|body", matching the carrier's documented signing scheme.
type SignatureVerifier struct {
	publicKey ed25519.PublicKey
}

// NewSignatureVerifier parses a base64-encoded Ed25519 public key.
func NewSignatureVerifier(publicKeyBase64 string) (*SignatureVerifier, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(publicKeyBase64))
	if err != nil {
		return nil, fmt.Errorf("webhook: decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("webhook: public key has wrong length %d", len(raw))
	}
	return &SignatureVerifier{publicKey: ed25519.PublicKey(raw)}, nil
}

// Verify checks signatureBase64 against timestamp|.|body, rejecting stale
// or clock-skewed timestamps before the cryptographic check.
func (v *SignatureVerifier) Verify(timestamp, signatureBase64 string, body []byte) error {
	if v == nil || len(v.publicKey) == 0 {
		return errors.New("webhook: signature verifier not configured")
	}
	ts := strings.TrimSpace(timestamp)
	if ts == "" {
		return errors.New("webhook: missing signature timestamp")
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("webhook: invalid signature timestamp: %w", err)
	}
	sentAt := time.Unix(sec, 0)
	if diff := time.Since(sentAt); diff > maxSkew || diff < -maxSkew {
		return fmt.Errorf("webhook: signature timestamp skew %s exceeds limit", diff)
	}

	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureBase64))
	if err != nil {
		return fmt.Errorf("webhook: decode signature: %w", err)
	}
	message := ts + "|.|" + string(body)
	if !ed25519.Verify(v.publicKey, []byte(message), sig) {
		return errors.New("webhook: signature mismatch")
	}
	return nil
}
