package apigw

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/jordancannon88/application-metrics/aggregate"
	"github.com/jordancannon88/application-metrics/event"
)

const (
	// failMessage is the caller-facing message for every failure the caller
	// cannot fix. Internal detail stays in the logs.
	failMessage = "Error, please contact the admin."

	// putSuccessMessage acknowledges a stored event.
	putSuccessMessage = "Updated items."
)

// EventWriter is the write side of the event store consumed by the router.
// [github.com/jordancannon88/application-metrics/dynamodb.Client]
// satisfies this interface.
type EventWriter interface {
	PutEvent(ctx context.Context, e *event.Event) error
}

// putRequest is the PUT /applications body. Field names follow the public
// REST contract, which uses camelCase.
type putRequest struct {
	Application      string  `json:"application"`
	Operation        string  `json:"operation"`
	CurrentMediaTime float64 `json:"currentMediaTime"`
}

// postRequest is the POST /applications body.
type postRequest struct {
	Application string `json:"application"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

// stateResponse is the envelope for write acknowledgements and failures.
type stateResponse struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

// countsResponse is the envelope for a successful aggregation.
type countsResponse struct {
	Counts map[string]int `json:"counts"`
}

// Router dispatches API Gateway proxy requests for the /applications
// resource. Create one with [NewRouter] and share it across invocations.
type Router struct {
	writer     EventWriter
	aggregator *aggregate.Handler
	logger     *slog.Logger
	clock      func() time.Time
}

// NewRouter creates a Router that stores events through writer and answers
// aggregation queries through aggregator. A nil logger falls back to
// [slog.Default].
func NewRouter(writer EventWriter, aggregator *aggregate.Handler, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		writer:     writer,
		aggregator: aggregator,
		logger:     logger,
		clock:      time.Now,
	}
}

// Handle processes one API Gateway proxy request. It never returns a non-nil
// error: every outcome, including internal failures, is encoded as a proxy
// response so API Gateway serves the mapped status and body instead of a
// generic integration error.
func (r *Router) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := r.logger.With(
		slog.String("request_id", requestID(ctx)),
		slog.String("method", req.HTTPMethod),
		slog.String("path", req.Path),
	)

	logger.Info("request received")

	switch req.HTTPMethod {
	case http.MethodOptions:
		return preflightResponse(), nil
	case http.MethodPut:
		return r.handlePut(ctx, req, logger), nil
	case http.MethodPost:
		return r.handlePost(ctx, req, logger), nil
	default:
		return respond(http.StatusMethodNotAllowed, stateResponse{State: "Fail", Message: failMessage}), nil
	}
}

func (r *Router) handlePut(ctx context.Context, req events.APIGatewayProxyRequest, logger *slog.Logger) events.APIGatewayProxyResponse {
	var body putRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		logger.Warn("invalid PUT body", slog.Any("error", err))

		return respond(http.StatusBadRequest, stateResponse{State: "Fail", Message: failMessage})
	}

	e := &event.Event{
		Application:      body.Application,
		Operation:        body.Operation,
		CurrentMediaTime: body.CurrentMediaTime,
		SourceIP:         req.RequestContext.Identity.SourceIP,
		UserAgent:        req.RequestContext.Identity.UserAgent,
		CreatedAt:        event.FormatTime(r.clock()),
	}

	if e.Application == "" || e.Operation == "" {
		logger.Warn("PUT rejected: missing application or operation")

		return respond(http.StatusBadRequest, stateResponse{State: "Fail", Message: failMessage})
	}

	if err := r.writer.PutEvent(ctx, e); err != nil {
		logger.Error("event write failed", slog.String("application", e.Application), slog.Any("error", err))

		return respond(http.StatusInternalServerError, stateResponse{State: "Fail", Message: failMessage})
	}

	logger.Info("event stored", slog.String("application", e.Application), slog.String("operation", e.Operation))

	return respond(http.StatusOK, stateResponse{State: "Success", Message: putSuccessMessage})
}

func (r *Router) handlePost(ctx context.Context, req events.APIGatewayProxyRequest, logger *slog.Logger) events.APIGatewayProxyResponse {
	var body postRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		logger.Warn("invalid POST body", slog.Any("error", err))

		return respond(http.StatusBadRequest, stateResponse{State: "Fail", Message: failMessage})
	}

	resp, err := r.aggregator.Handle(ctx, aggregate.Request{
		Application: body.Application,
		StartDate:   body.StartDate,
		EndDate:     body.EndDate,
	})
	if err != nil {
		// The aggregation handler has already logged the failure with its
		// input parameters; only the mapping happens here.
		var aerr *aggregate.Error
		if errors.As(err, &aerr) && aerr.Kind == aggregate.KindValidation {
			return respond(http.StatusBadRequest, stateResponse{State: "Fail", Message: aerr.Message})
		}

		return respond(http.StatusInternalServerError, stateResponse{State: "Fail", Message: failMessage})
	}

	return respond(http.StatusOK, countsResponse{Counts: resp.Counts})
}

func respond(status int, body any) events.APIGatewayProxyResponse {
	encoded, err := json.Marshal(body)
	if err != nil {
		// Response shapes above are all marshalable; this path is
		// unreachable short of a programming error.
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    responseHeaders(),
			Body:       `{"state":"Fail","message":"` + failMessage + `"}`,
		}
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(),
		Body:       string(encoded),
	}
}

func preflightResponse() events.APIGatewayProxyResponse {
	headers := responseHeaders()
	headers["Access-Control-Allow-Methods"] = "OPTIONS, PUT, POST"
	headers["Access-Control-Allow-Headers"] = "Content-Type"

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusNoContent,
		Headers:    headers,
	}
}

func responseHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                     "application/json",
		"Access-Control-Allow-Origin":      "*",
		"Access-Control-Allow-Credentials": "true",
	}
}

// requestID returns the Lambda invocation ID, or a generated ID when the
// context does not carry one (local runs and tests).
func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}

	return uuid.NewString()
}
