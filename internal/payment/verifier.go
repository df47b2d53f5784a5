// Package payment is the boundary to the external payment gateway.  The
// capacity engine never talks to it: for the ADVANCED tier the handler
// establishes "payment confirmed" as a fact before a seat is reserved, so
// no lock or transaction is ever held across a gateway call.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Verifier reports whether a payment reference has been confirmed by the
// gateway.
type Verifier interface {
	Confirmed(ctx context.Context, ref string) (bool, error)
}

// HTTPVerifier checks a confirm endpoint of the gateway.  The wire format
// is deliberately minimal: GET {base}/{ref} returning 200 with a
// {"confirmed": bool} body.  404 means the reference is unknown, which is
// treated as not confirmed rather than an error.
type HTTPVerifier struct {
	base   string
	client *http.Client
}

// NewHTTPVerifier builds a verifier for the given confirm endpoint base URL.
func NewHTTPVerifier(base string) *HTTPVerifier {
	return &HTTPVerifier{
		base:   strings.TrimSuffix(base, "/"),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *HTTPVerifier) Confirmed(ctx context.Context, ref string) (bool, error) {
	if ref == "" {
		return false, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.base+"/"+ref, nil)
	if err != nil {
		return false, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("payment verify: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Confirmed bool `json:"confirmed"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false, fmt.Errorf("payment verify: decode: %w", err)
		}
		return body.Confirmed, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("payment verify: unexpected status %d", resp.StatusCode)
	}
}
