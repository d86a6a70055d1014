// ABOUTME: Maps OpenAI and transport failures onto the shared error kinds
// ABOUTME: Credential problems, transient network faults and model errors stay distinct
package llm

import (
	"context"
	"errors"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// ClassifyError wraps err in a *models.Error of the matching kind.
// Already classified errors pass through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var classified *models.Error
	if errors.As(err, &classified) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.Wrap(models.KindNetwork, err, "language model request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return models.Wrap(models.KindNetwork, err, "language model request was cancelled")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.Wrap(models.KindNetwork, err, "language model service is unreachable")
	}

	return models.Wrap(models.KindModel, err, "language model request failed")
}

func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.Wrap(models.KindCredential, err, "language model credentials are missing or invalid")
	case status == http.StatusTooManyRequests:
		return models.Wrap(models.KindNetwork, err, "language model service is rate limiting requests")
	case status >= 500:
		return models.Wrap(models.KindNetwork, err, "language model service is temporarily unavailable")
	default:
		return models.Wrap(models.KindModel, err, "language model rejected the request")
	}
}

// IsRetryable reports whether a classified error is worth another attempt
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return models.IsKind(err, models.KindNetwork)
}
