// Package dynamodb provides the DynamoDB-backed event store for the
// application metrics service.
//
// # Overview
//
// Events live in a single table keyed by application name (partition key,
// "application") and a fixed-width UTC timestamp (sort key, "created_at",
// see [github.com/jordancannon88/application-metrics/event.TimeLayout]).
// Because the sort key orders lexically the same way as chronological time,
// fetching everything an application recorded inside a date range is a
// single partition query with a BETWEEN condition on created_at, never a
// table scan.
//
// # Getting Started
//
// Create a [Client] with [New], supplying an AWS config, the DynamoDB table
// name, and any [Option] values you need:
//
//	client := dynamodb.New(&awsCfg, tableName)
//
//	if err := client.Connect(); err != nil {
//	    ...
//	}
//
// By default, [Client.Connect] creates an AWS SDK v2 DynamoDB client from
// the supplied [aws.Config]. Supply [WithAPI] to inject a custom or mock
// implementation.
//
// [Client.Init] validates the table schema at startup. The table keeps
// events forever: there is no TTL attribute and no secondary index.
//
// # Concurrency
//
// [Client] is safe for concurrent use by multiple goroutines once
// [Client.Connect] has returned.
package dynamodb
