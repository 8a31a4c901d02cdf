package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Verification failure reasons. Callers match with errors.Is; the reason
// must never be echoed back to the sender.
var (
	ErrMissingSignature   = errors.New("signature header is required")
	ErrMalformedSignature = errors.New("malformed signature header")
	ErrStaleTimestamp     = errors.New("signature timestamp outside tolerance")
	ErrInvalidSignature   = errors.New("signature verification failed")
)

// DefaultTolerance bounds replay exposure to a 5-minute window.
const DefaultTolerance = 5 * time.Minute

// Verifier checks finbank webhook signatures.
//
// The header format is "t=<unix-seconds>,v1=<hex-hmac-sha256>" and the
// signed string is "{t}.{raw_body}". The body must be the exact bytes
// received; re-serializing the JSON invalidates the signature.
type Verifier struct {
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a Verifier with the default replay tolerance.
func NewVerifier() *Verifier {
	return &Verifier{
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify authenticates body against the signature header using secret.
func (v *Verifier) Verify(secret, header string, body []byte) error {
	if header == "" {
		return ErrMissingSignature
	}

	ts, sigHex, err := parseHeader(header)
	if err != nil {
		return err
	}

	age := v.now().Unix() - ts
	if age > int64(v.tolerance.Seconds()) || -age > int64(v.tolerance.Seconds()) {
		return fmt.Errorf("%w: timestamp %d", ErrStaleTimestamp, ts)
	}

	// Decode hex to bytes so the comparison runs on raw MACs.
	expected, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("%w: v1 is not hex", ErrMalformedSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)

	// Constant-time comparison, never a short-circuiting string compare.
	if !hmac.Equal(expected, mac.Sum(nil)) {
		return ErrInvalidSignature
	}

	return nil
}

// parseHeader extracts the t and v1 fields from "t=...,v1=...".
func parseHeader(header string) (int64, string, error) {
	var tsRaw, sigHex string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			tsRaw = value
		case "v1":
			sigHex = value
		}
	}

	if tsRaw == "" || sigHex == "" {
		return 0, "", fmt.Errorf("%w: t and v1 are required", ErrMalformedSignature)
	}

	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: invalid timestamp", ErrMalformedSignature)
	}

	return ts, sigHex, nil
}
