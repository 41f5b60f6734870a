package aggregate

import (
	"context"
	"log/slog"
	"time"

	"github.com/jordancannon88/application-metrics/event"
)

// Store is the read side of the event store consumed by the handler. Both
// range bounds are inclusive and must be in [event.TimeLayout];
// implementations must drain any underlying pagination before returning.
//
// [github.com/jordancannon88/application-metrics/dynamodb.Client]
// satisfies this interface.
type Store interface {
	QueryEvents(ctx context.Context, application, startTS, endTS string) ([]event.Event, error)
}

// Request is a single aggregation call. StartDate and EndDate are calendar
// dates in YYYY-MM-DD form; both days are included in the range.
type Request struct {
	Application string `json:"application"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// Response maps each calendar date (YYYY-MM-DD) inside the requested range
// to the number of events recorded on that date. Dates without events are
// absent.
type Response struct {
	Counts map[string]int `json:"response"`
}

// Handler aggregates stored events into per-day counts. Create one with
// [NewHandler] and share it across invocations; it holds no per-call state.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// NewHandler creates a Handler backed by store. A nil logger falls back to
// [slog.Default].
func NewHandler(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Handle runs one aggregation. It validates and normalises the date range,
// issues a single range query against the store, and tallies the returned
// events by calendar date.
//
// Failures are returned as [*Error]: [KindValidation] when the input is
// malformed or the start date is after the end date, [KindStore] when the
// query fails (including context cancellation), and [KindAggregation] when
// a returned record carries an unparseable created_at. Every failure is
// logged with its input parameters before it is returned.
func (h *Handler) Handle(ctx context.Context, req Request) (*Response, error) {
	logger := h.logger.With(
		slog.String("application", req.Application),
		slog.String("start_date", req.StartDate),
		slog.String("end_date", req.EndDate),
	)

	if req.Application == "" {
		err := newValidationError("The application name is missing.")
		logger.Warn("aggregation rejected", slog.String("error_kind", string(err.Kind)), slog.String("error", err.Message))

		return nil, err
	}

	start, err := time.ParseInLocation(event.DayLayout, req.StartDate, time.UTC)
	if err != nil {
		verr := newValidationError("The start date is not a valid YYYY-MM-DD date.")
		logger.Warn("aggregation rejected", slog.String("error_kind", string(verr.Kind)), slog.String("error", verr.Message))

		return nil, verr
	}

	end, err := time.ParseInLocation(event.DayLayout, req.EndDate, time.UTC)
	if err != nil {
		verr := newValidationError("The end date is not a valid YYYY-MM-DD date.")
		logger.Warn("aggregation rejected", slog.String("error_kind", string(verr.Kind)), slog.String("error", verr.Message))

		return nil, verr
	}

	// Start of the first day through the last instant of the last day, so a
	// single-day range still covers the entire day.
	startTS := event.FormatTime(start)
	endTS := event.FormatTime(end.Add(24*time.Hour - time.Microsecond))

	if startTS > endTS {
		verr := newValidationError("The start date is further in the future than the end date.")
		logger.Warn("aggregation rejected", slog.String("error_kind", string(verr.Kind)), slog.String("error", verr.Message))

		return nil, verr
	}

	events, err := h.store.QueryEvents(ctx, req.Application, startTS, endTS)
	if err != nil {
		serr := newStoreError(err)
		logger.Error("aggregation query failed", slog.String("error_kind", string(serr.Kind)), slog.Any("error", err))

		return nil, serr
	}

	counts := make(map[string]int)

	for _, e := range events {
		day, err := event.DayOf(e.CreatedAt)
		if err != nil {
			// Fail closed: one bad record invalidates the whole tally.
			aerr := newAggregationError(err)
			logger.Error("aggregation tally failed", slog.String("error_kind", string(aerr.Kind)), slog.Any("error", err))

			return nil, aerr
		}

		counts[day]++
	}

	return &Response{Counts: counts}, nil
}
