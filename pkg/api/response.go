// Package api builds API Gateway proxy responses for the Lambda handlers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/pkg/apperr"
	"gitlab.connectwisedev.com/pos-service/pkg/logging"
)

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Shortages []apperr.Shortage `json:"shortages,omitempty"`
	Stage     string            `json:"stage,omitempty"`
}

// Headers returns the content and CORS headers for a handler serving methods.
func Headers(methods ...string) map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": strings.Join(append(methods, http.MethodOptions), ", "),
		"Access-Control-Allow-Headers": "Content-Type",
	}
}

// JSON marshals body into a response carrying a copy of headers. A marshal
// failure becomes a 500.
func JSON(status int, body interface{}, headers map[string]string) events.APIGatewayProxyResponse {
	headers = copyHeaders(headers)
	raw, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"code":"INTERNAL","message":"Failed to format response"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(raw)}
}

func copyHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindIncompleteClientData, apperr.KindIncompleteDeliveryData:
		return http.StatusUnprocessableEntity
	case apperr.KindInsufficientStock, apperr.KindOutOfStock:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error renders err. Storage causes and unclassified errors are logged, not
// returned to the caller.
func Error(err error, logger *zap.Logger, headers map[string]string) events.APIGatewayProxyResponse {
	logger = logging.OrNop(logger)

	var e *apperr.Error
	if !errors.As(err, &e) {
		logger.Error("unhandled error", zap.Error(err))
		return JSON(http.StatusInternalServerError, ErrorBody{Code: "INTERNAL", Message: "Internal server error"}, headers)
	}

	body := ErrorBody{Code: e.Kind.String(), Message: e.Message, Shortages: e.Shortages, Stage: e.Stage}
	if !e.Kind.Recoverable() {
		logger.Error("store unavailable", zap.String("stage", e.Stage), zap.Error(e.Cause))
	} else {
		logger.Info("request rejected", zap.String("code", body.Code), zap.String("message", e.Message))
	}
	return JSON(StatusFor(e.Kind), body, headers)
}

// Decode unmarshals a request body, reporting malformed JSON as invalid input.
func Decode(body string, v interface{}) error {
	if strings.TrimSpace(body) == "" {
		return apperr.New(apperr.KindInvalidInput, "Request body is required")
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return apperr.Newf(apperr.KindInvalidInput, "Malformed request body: %v", err)
	}
	return nil
}
