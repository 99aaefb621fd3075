package gemini

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/proforma-verifier/internal/llm"
)

const entityNotFoundMessage = "Requested entity was not found"

// IsEntityNotFound reports whether err is the service's "entity not found" answer,
// which for this API means the key or model is not usable.
func IsEntityNotFound(err error) bool {
	if err == nil {
		return false
	}
	if status.Code(err) == codes.NotFound {
		return true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusNotFound {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Status == "NOT_FOUND") {
		return true
	}
	var httpErr *llm.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return true
	}
	return strings.Contains(err.Error(), entityNotFoundMessage)
}
