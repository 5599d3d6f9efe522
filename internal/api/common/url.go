// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// MaxStripeIDLength is the longest object ID accepted in a path
const MaxStripeIDLength = 255

// StripeIDParam reads a Stripe object ID (cus_..., ch_...) from a chi path
// parameter. The value is path-unescaped and must be non-empty, at most
// MaxStripeIDLength bytes, and made of ASCII letters, digits and underscores.
// Error messages name the parameter and are safe to return to the caller.
func StripeIDParam(r *http.Request, paramName string) (string, error) {
	id, err := url.PathUnescape(chi.URLParam(r, paramName))
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", paramName)
	}

	switch {
	case strings.TrimSpace(id) == "":
		return "", fmt.Errorf("%s cannot be empty", paramName)
	case strings.ContainsAny(id, " \t\n\r"):
		return "", fmt.Errorf("%s cannot contain whitespace", paramName)
	case len(id) > MaxStripeIDLength:
		return "", fmt.Errorf("%s exceeds %d characters", paramName, MaxStripeIDLength)
	case strings.IndexFunc(id, notIDRune) >= 0:
		return "", fmt.Errorf("%s is not a valid Stripe object ID", paramName)
	}
	return id, nil
}

func notIDRune(c rune) bool {
	return !(c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9'))
}
