package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jordancannon88/application-metrics/event"
)

const (
	// PartitionKey is the DynamoDB partition key attribute name. Its value
	// is the application identifier an event belongs to.
	PartitionKey = "application"

	// SortKey is the DynamoDB sort key attribute name. Its value is the
	// event timestamp in [event.TimeLayout], which sorts lexically in
	// chronological order.
	SortKey = "created_at"

	// OperationAttr names the free-form operation label of an event.
	OperationAttr = "operation"

	// MediaTimeAttr names the numeric client playback position attribute.
	MediaTimeAttr = "current_media_time"

	// SourceIPAttr and UserAgentAttr name the request-context attributes
	// captured on the write path.
	SourceIPAttr  = "source_ip"
	UserAgentAttr = "user_agent"

	// maxBackoff is the maximum backoff duration for retry loops.
	maxBackoff = 2 * time.Second
)

// Client is the DynamoDB-backed event store. Events are written once with
// [Client.PutEvent] and range-queried with [Client.QueryEvents]; nothing is
// ever updated or deleted outside of tests.
//
// Use [New] to create a Client, [Client.Connect] to initialize the underlying
// DynamoDB connection, and [Client.Init] to validate the table schema.
type Client struct {
	client    API
	tableName string
	awsCfg    *aws.Config
	opts      *Options
}

// New creates a new Client configured with the given AWS config, table name,
// and optional options. Call [Client.Connect] on the returned client before use.
func New(awsCfg *aws.Config, tableName string, opts ...Option) *Client {
	options := newOptions()

	for _, o := range opts {
		o(options)
	}

	return &Client{
		awsCfg:    awsCfg,
		tableName: tableName,
		opts:      options,
	}
}

// Connect initializes the DynamoDB client from the AWS config provided to [New].
// It must be called before any other Client methods, and must complete before
// the Client is used concurrently.
func (c *Client) Connect() error {
	if err := c.opts.validate(); err != nil {
		return fmt.Errorf("invalid DynamoDB options: %w", err)
	}

	// Use injected DynamoDB API if provided (useful for testing).
	if c.opts.dynamoDBAPI != nil {
		c.client = c.opts.dynamoDBAPI
	} else {
		c.client = dynamodb.NewFromConfig(*c.awsCfg)
	}

	return nil
}

// Init validates the DynamoDB table schema. It checks that the table exists,
// is active, and has the expected composite primary key: partition key
// "application" and sort key "created_at".
//
// Pass skipSchemaValidation true to skip all checks and return immediately,
// which is useful when schema validation is managed separately.
func (c *Client) Init(ctx context.Context, skipSchemaValidation bool) error {
	if skipSchemaValidation {
		return nil
	}

	input := &dynamodb.DescribeTableInput{
		TableName: aws.String(c.tableName),
	}

	response, err := c.client.DescribeTable(ctx, input)
	if err != nil {
		var notFoundError *dynamodbtypes.ResourceNotFoundException
		if errors.As(err, &notFoundError) {
			return fmt.Errorf("table %s does not exist", c.tableName)
		}
		return fmt.Errorf("failed to describe table %s: %w", c.tableName, err)
	}

	if len(response.Table.KeySchema) < 1 {
		return fmt.Errorf("table %s has no key schema", c.tableName)
	}

	if aws.ToString(response.Table.KeySchema[0].AttributeName) != PartitionKey {
		return fmt.Errorf("table %s has partition key %s, expected %s", c.tableName, aws.ToString(response.Table.KeySchema[0].AttributeName), PartitionKey)
	}

	if len(response.Table.KeySchema) < 2 {
		return fmt.Errorf("table %s has a simple primary key, expected composite", c.tableName)
	}

	if aws.ToString(response.Table.KeySchema[1].AttributeName) != SortKey {
		return fmt.Errorf("table %s has sort key %s, expected %s", c.tableName, aws.ToString(response.Table.KeySchema[1].AttributeName), SortKey)
	}

	if response.Table.TableStatus != dynamodbtypes.TableStatusActive {
		return fmt.Errorf("table %s is not active (status: %s)", c.tableName, response.Table.TableStatus)
	}

	return nil
}

// PutEvent persists a single event to DynamoDB. When e.CreatedAt is empty it
// is filled from the client clock in [event.TimeLayout]; when set it must
// already be in that layout or range queries over it will not match.
func (c *Client) PutEvent(ctx context.Context, e *event.Event) error {
	if e == nil {
		return errors.New("event cannot be nil")
	}

	if e.Application == "" {
		return errors.New("event application cannot be empty")
	}

	if e.Operation == "" {
		return errors.New("event operation cannot be empty")
	}

	createdAt := e.CreatedAt
	if createdAt == "" {
		createdAt = event.FormatTime(c.opts.clock())
	} else if _, err := event.ParseTime(createdAt); err != nil {
		return fmt.Errorf("event created_at is not in the canonical layout: %w", err)
	}

	attributes := map[string]dynamodbtypes.AttributeValue{
		PartitionKey:  &dynamodbtypes.AttributeValueMemberS{Value: e.Application},
		SortKey:       &dynamodbtypes.AttributeValueMemberS{Value: createdAt},
		OperationAttr: &dynamodbtypes.AttributeValueMemberS{Value: e.Operation},
		MediaTimeAttr: &dynamodbtypes.AttributeValueMemberN{Value: strconv.FormatFloat(e.CurrentMediaTime, 'f', -1, 64)},
	}

	if e.SourceIP != "" {
		attributes[SourceIPAttr] = &dynamodbtypes.AttributeValueMemberS{Value: e.SourceIP}
	}

	if e.UserAgent != "" {
		attributes[UserAgentAttr] = &dynamodbtypes.AttributeValueMemberS{Value: e.UserAgent}
	}

	input := &dynamodb.PutItemInput{
		TableName: &c.tableName,
		Item:      attributes,
	}

	if _, err := c.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to write event to DynamoDB table %s: %w", c.tableName, err)
	}

	return nil
}

// QueryEvents returns every event recorded for application whose created_at
// lies within [startTS, endTS] inclusive. Both bounds must be in
// [event.TimeLayout]. The query is a single logical range scan over the
// application's partition; DynamoDB pagination is drained fully before the
// result is returned, so a partial page set is never observed.
func (c *Client) QueryEvents(ctx context.Context, application, startTS, endTS string) ([]event.Event, error) {
	if application == "" {
		return nil, errors.New("application cannot be empty")
	}

	if startTS == "" || endTS == "" {
		return nil, errors.New("query range bounds cannot be empty")
	}

	queryInput := &dynamodb.QueryInput{
		TableName: &c.tableName,
		ExpressionAttributeNames: map[string]string{
			"#app": PartitionKey,
			"#ts":  SortKey,
		},
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":app":   &dynamodbtypes.AttributeValueMemberS{Value: application},
			":start": &dynamodbtypes.AttributeValueMemberS{Value: startTS},
			":end":   &dynamodbtypes.AttributeValueMemberS{Value: endTS},
		},
		KeyConditionExpression: aws.String("#app = :app AND #ts BETWEEN :start AND :end"),
	}

	var events []event.Event

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, err := c.client.Query(ctx, queryInput)
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB table %s: %w", c.tableName, err)
		}

		for _, item := range output.Items {
			events = append(events, itemToEvent(item))
		}

		if output.LastEvaluatedKey == nil {
			break
		}

		queryInput.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return events, nil
}

// DropAllData deletes every item from the DynamoDB table. It scans the table
// in pages and removes each page using BatchWriteItem with exponential backoff
// for unprocessed items.
//
// This method is intended for use in tests only. Do not call it in production.
func (c *Client) DropAllData(ctx context.Context) error {
	input := &dynamodb.ScanInput{
		TableName: aws.String(c.tableName),
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		output, err := c.client.Scan(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to scan DynamoDB table %s: %w", c.tableName, err)
		}

		if len(output.Items) == 0 {
			break
		}

		// Process items in batches of 25 (DynamoDB BatchWriteItem limit).
		for i := 0; i < len(output.Items); i += 25 {
			end := min(i+25, len(output.Items))
			batch := output.Items[i:end]

			requestItems := make([]dynamodbtypes.WriteRequest, 0, len(batch))

			for _, item := range batch {
				requestItems = append(requestItems, dynamodbtypes.WriteRequest{
					DeleteRequest: &dynamodbtypes.DeleteRequest{
						Key: map[string]dynamodbtypes.AttributeValue{
							PartitionKey: item[PartitionKey],
							SortKey:      item[SortKey],
						},
					},
				})
			}

			batchInput := &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]dynamodbtypes.WriteRequest{
					c.tableName: requestItems,
				},
			}

			// Retry with exponential backoff for unprocessed items.
			const maxRetries = 5
			backoff := 50 * time.Millisecond

			for attempt := 0; attempt <= maxRetries; attempt++ {
				batchResult, err := c.client.BatchWriteItem(ctx, batchInput)
				if err != nil {
					return fmt.Errorf("failed to batch delete items from DynamoDB table %s: %w", c.tableName, err)
				}

				if len(batchResult.UnprocessedItems) == 0 {
					break
				}

				if attempt == maxRetries {
					return fmt.Errorf("%d unprocessed items after %d retries in DropAllData",
						len(batchResult.UnprocessedItems[c.tableName]), maxRetries)
				}

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}

				backoff = min(backoff*2, maxBackoff)
				batchInput.RequestItems = batchResult.UnprocessedItems
			}
		}

		if output.LastEvaluatedKey == nil {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return nil
}

func itemToEvent(item map[string]dynamodbtypes.AttributeValue) event.Event {
	e := event.Event{
		Application: getStringValue(item[PartitionKey]),
		CreatedAt:   getStringValue(item[SortKey]),
		Operation:   getStringValue(item[OperationAttr]),
		SourceIP:    getStringValue(item[SourceIPAttr]),
		UserAgent:   getStringValue(item[UserAgentAttr]),
	}

	if attr, ok := item[MediaTimeAttr].(*dynamodbtypes.AttributeValueMemberN); ok {
		if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
			e.CurrentMediaTime = v
		}
	}

	return e
}

// getStringValue extracts the string value from a DynamoDB AttributeValue.
// It returns an empty string if the AttributeValue is not of type AttributeValueMemberS.
func getStringValue(attr dynamodbtypes.AttributeValue) string {
	if attrValue, ok := attr.(*dynamodbtypes.AttributeValueMemberS); ok {
		return attrValue.Value
	}

	return ""
}
