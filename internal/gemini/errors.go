package gemini

import (
	"errors"
	"net/http"
	"strings"

	"github.com/m2tx/manualchat/internal/model"
	"google.golang.org/genai"
)

func apiError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

// classifyError maps a Gemini failure to a TransportError, keeping the raw
// message.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var kerr *model.Error
	if errors.As(err, &kerr) {
		return err
	}
	if isCacheGone(err) {
		return model.NewError(model.KindCacheExpired, err)
	}
	return model.NewError(model.KindTransport, err)
}

// classifyCacheError treats any not-found answer as an expired context.
func classifyCacheError(err error) error {
	if apiErr, ok := apiError(err); ok && (apiErr.Code == http.StatusNotFound || apiErr.Status == "NOT_FOUND") {
		return model.NewError(model.KindCacheExpired, err)
	}
	return classifyError(err)
}

// isCacheGone recognizes the answers the API gives for an expired or deleted
// cached content: 404, or 403/400 mentioning the cached content.
func isCacheGone(err error) bool {
	apiErr, ok := apiError(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	mentionsCache := strings.Contains(msg, "cachedcontent") || strings.Contains(msg, "cached content")
	switch apiErr.Code {
	case http.StatusNotFound:
		return mentionsCache
	case http.StatusForbidden, http.StatusBadRequest:
		return mentionsCache && (strings.Contains(msg, "not found") || strings.Contains(msg, "expired") || strings.Contains(msg, "permission denied"))
	}
	return false
}
