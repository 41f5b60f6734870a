// Package aggregate implements the per-day event aggregation handler.
//
// # Overview
//
// Given an application identifier and an inclusive calendar date range, the
// handler counts the application's stored events per day:
//
//	req := aggregate.Request{
//	    Application: "app1",
//	    StartDate:   "2023-01-01",
//	    EndDate:     "2023-01-02",
//	}
//
//	resp, err := handler.Handle(ctx, req)
//	// resp.Counts == map[string]int{"2023-01-01": 2, "2023-01-02": 1}
//
// The date range is normalised to [start 00:00:00.000000, end
// 23:59:59.999999] UTC and rendered in the store's sortable timestamp
// layout, so the whole range resolves to a single partition query against
// the (application, created_at) key. Dates with no events are absent from
// the result, never present with a zero count.
//
// # Errors
//
// Failures carry a [Kind] so the boundary can map them to distinct
// outcomes: [KindValidation] for malformed caller input, [KindStore] for
// store failures, and [KindAggregation] for records that cannot be
// interpreted while tallying. A single unparseable record fails the whole
// call rather than being skipped: a corrupted tally that looks healthy is
// worse than a visible failure.
//
// The handler is stateless and read-only; concurrent calls are fully
// independent.
package aggregate
