// Package apigw adapts API Gateway proxy requests to the event store and
// the aggregation handler.
//
// The REST surface is a single /applications resource:
//
//   - PUT stores one event. The body carries application, operation and
//     currentMediaTime; source IP, user agent and the created_at timestamp
//     are taken from the request context, not from the caller.
//   - POST aggregates. The body carries application, startDate and endDate;
//     a successful response is {"counts": {"2023-01-01": 2, ...}}.
//   - OPTIONS answers CORS preflight.
//
// Validation failures return 400 with the specific problem. Store and
// aggregation failures return 500 with a fixed admin-contact message; their
// detail is logged, never returned.
package apigw
