package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"asic-advisor/internal/domain"
	"asic-advisor/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	pathAsk           = "/ask"
	pathASICData      = "/asic-data"
	pathHealth        = "/healthz"
)

type AskUseCase interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
}

type ListingsUseCase interface {
	Listings(ctx context.Context) ([]domain.Record, error)
}

type askRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

type askResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the advisor API. The same instance backs the Lambda entry
// point (Handle) and the gin router (Router).
type Handler struct {
	ask      AskUseCase
	listings ListingsUseCase
	logger   *slog.Logger
}

func NewHandler(ask AskUseCase, listings ListingsUseCase, logger *slog.Logger) (*Handler, error) {
	if ask == nil {
		return nil, errors.New("handler: ask use case must not be nil")
	}
	if listings == nil {
		return nil, errors.New("handler: listings use case must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ask: ask, listings: listings, logger: logger}, nil
}

// Handle is the API Gateway proxy entry point.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(req.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", corrID, "method", req.HTTPMethod, "path", req.Path)

	var (
		status int
		body   any
	)
	switch path := strings.TrimRight(req.Path, "/"); {
	case path == pathAsk && req.HTTPMethod == http.MethodPost:
		var in askRequest
		if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
			logger.WarnContext(ctx, "invalid ask body", "err", err)
			status, body = http.StatusBadRequest, errorResponse{Error: usecase.MsgMissingFields}
			break
		}
		status, body = h.doAsk(ctx, logger, in)
	case path == pathASICData && req.HTTPMethod == http.MethodGet:
		status, body = h.doListings(ctx, logger)
	case path == pathHealth && req.HTTPMethod == http.MethodGet:
		status, body = http.StatusOK, map[string]string{"status": "ok"}
	case path == pathAsk || path == pathASICData || path == pathHealth:
		status, body = http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"}
	default:
		status, body = http.StatusNotFound, errorResponse{Error: "not found"}
	}

	return jsonResponse(status, body, corrID), nil
}

func (h *Handler) doAsk(ctx context.Context, logger *slog.Logger, req askRequest) (int, any) {
	out, err := h.ask.Ask(ctx, usecase.AskInput{SessionID: req.SessionID, Message: req.Message})
	if err != nil {
		return h.failure(ctx, logger, err)
	}
	return http.StatusOK, askResponse{Response: out.Response}
}

func (h *Handler) doListings(ctx context.Context, logger *slog.Logger) (int, any) {
	records, err := h.listings.Listings(ctx)
	if err != nil {
		return h.failure(ctx, logger, err)
	}
	return http.StatusOK, records
}

func (h *Handler) failure(ctx context.Context, logger *slog.Logger, err error) (int, any) {
	ue := usecase.Classify(err)
	status := statusFor(ue.Code)
	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "request failed", "code", ue.Code, "reason", ue.Reason, "err", err)
	return status, errorResponse{Error: ue.UserMessage()}
}

// statusFor maps every non-input failure to 500, quota and provider errors
// included.
func statusFor(code usecase.ErrorCode) int {
	if code == usecase.ErrorInvalidInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func jsonResponse(status int, body any, corrID string) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"error":"internal error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(raw),
	}
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
