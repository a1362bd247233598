package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is an alias for the dynamodb attribute value map.
type Item = map[string]types.AttributeValue

// Names of the managed attributes the store stamps on every item, plus the
// foreign-key attributes served by reverse lookups.
const (
	AttributePK       = "pk"
	AttributeSK       = "sk"
	AttributeItemType = "itemType"

	AttributeCarID        = "carId"
	AttributeUserID       = "userId"
	AttributeDelegationID = "delegationId"
)

// DynamoDBClient is the subset of the DynamoDB API the store depends on.
// *dynamodb.Client satisfies it; tests substitute an in-memory fake.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store provides single-table DynamoDB operations for the rental catalogue.
// It is stateless and safe for concurrent use.
type Store struct {
	client DynamoDBClient
	config Config
}

// New creates a new Store instance.
func New(client DynamoDBClient, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Config returns the validated store configuration.
func (s *Store) Config() Config {
	return s.config
}

// Put upserts a single item, overwriting any item with the same key. The
// value is marshaled with attributevalue and stamped with the derived
// composite key and type tag.
func (s *Store) Put(ctx context.Context, kind Kind, id string, value any) error {
	key, err := kind.Key(id)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(value)
	if err != nil {
		return fmt.Errorf("marshal %s item: %w", kind, err)
	}
	item[AttributePK] = &types.AttributeValueMemberS{Value: key.PK}
	item[AttributeSK] = &types.AttributeValueMemberS{Value: key.SK}
	item[AttributeItemType] = &types.AttributeValueMemberS{Value: string(kind)}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.TableName),
		Item:      item,
	})
	return unavailable(err)
}

// Get retrieves the entity of the given kind and identifier, unmarshaling it
// into out. Returns ErrNotFound when the item is absent and ErrKindMismatch
// when the stored type tag disagrees with the requested kind.
func (s *Store) Get(ctx context.Context, kind Kind, id string, out any) error {
	key, err := kind.Key(id)
	if err != nil {
		return err
	}

	item, err := s.getRaw(ctx, key)
	if err != nil {
		return err
	}
	if tag := ItemKind(item); tag != kind {
		return fmt.Errorf("%w: stored %q, requested %q", ErrKindMismatch, tag, kind)
	}
	return UnmarshalItem(item, out)
}

// GetByKey retrieves an arbitrary item by its composite key.
func (s *Store) GetByKey(ctx context.Context, key Key, out any) error {
	item, err := s.getRaw(ctx, key)
	if err != nil {
		return err
	}
	return UnmarshalItem(item, out)
}

func (s *Store) getRaw(ctx context.Context, key Key) (Item, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.TableName),
		Key:       key.attributes(),
	})
	if err != nil {
		return nil, unavailable(err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	return result.Item, nil
}

// Delete removes the entity of the given kind and identifier. Deleting a
// missing item is not an error.
func (s *Store) Delete(ctx context.Context, kind Kind, id string) error {
	key, err := kind.Key(id)
	if err != nil {
		return err
	}
	return s.DeleteByKey(ctx, key)
}

// DeleteByKey removes an arbitrary item by its composite key. Idempotent.
func (s *Store) DeleteByKey(ctx context.Context, key Key) error {
	if err := key.validate(); err != nil {
		return err
	}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.TableName),
		Key:       key.attributes(),
	})
	return unavailable(err)
}

// QueryPartition returns every item sharing the given partition key. No
// server-side ordering is ever requested; callers needing ordered results
// must sort in memory.
func (s *Store) QueryPartition(ctx context.Context, pk string) ([]Item, error) {
	if pk == "" {
		return nil, fmt.Errorf("%w: empty partition key", ErrInvalidKey)
	}

	var items []Item
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TableName),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, unavailable(err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// QueryPartitionPrefix returns the items of a partition whose sort key
// begins with the given prefix. Like QueryPartition, no server-side ordering
// is ever requested.
func (s *Store) QueryPartitionPrefix(ctx context.Context, pk, skPrefix string) ([]Item, error) {
	if pk == "" {
		return nil, fmt.Errorf("%w: empty partition key", ErrInvalidKey)
	}
	if skPrefix == "" {
		return nil, fmt.Errorf("%w: empty sort key prefix", ErrInvalidKey)
	}

	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(AttributePK).Equal(expression.Value(pk)).
			And(expression.Key(AttributeSK).BeginsWith(skPrefix))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build key condition: %w", err)
	}

	var items []Item
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, unavailable(err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// Condition is an equality constraint on a single attribute, used to filter
// scans and index queries.
type Condition struct {
	Attribute string
	Value     string
}

// Scan enumerates the whole table, returning items matching every condition.
// The scan is stateless and restartable, and costs O(table size); it is
// intended for administrative listings, never for the availability path.
func (s *Store) Scan(ctx context.Context, conditions ...Condition) ([]Item, error) {
	filter, err := buildFilter(conditions)
	if err != nil {
		return nil, err
	}

	segments := s.config.ScanSegments
	if segments <= 1 {
		return s.scanSegment(ctx, filter, 0, 1)
	}

	// Parallel segment fan-out. Each segment covers a disjoint slice of the
	// table, so results concatenate without deduplication.
	var (
		mu       sync.Mutex
		allItems []Item
		wg       sync.WaitGroup
	)
	errs := make(chan error, segments)

	for segment := 0; segment < segments; segment++ {
		wg.Add(1)
		go func(segment int) {
			defer wg.Done()

			items, err := s.scanSegment(ctx, filter, segment, segments)
			if err != nil {
				errs <- fmt.Errorf("segment %d: %w", segment, err)
				return
			}

			mu.Lock()
			allItems = append(allItems, items...)
			mu.Unlock()
		}(segment)
	}

	go func() {
		wg.Wait()
		close(errs)
	}()

	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return allItems, nil
}

func (s *Store) scanSegment(ctx context.Context, filter *expression.Expression, segment, total int) ([]Item, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.config.TableName),
	}
	if filter != nil {
		input.FilterExpression = filter.Filter()
		input.ExpressionAttributeNames = filter.Names()
		input.ExpressionAttributeValues = filter.Values()
	}
	if total > 1 {
		input.Segment = aws.Int32(int32(segment))
		input.TotalSegments = aws.Int32(int32(total))
	}

	var items []Item
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, unavailable(err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// buildFilter compiles equality conditions into a DynamoDB filter expression.
// Returns nil for an unfiltered scan.
func buildFilter(conditions []Condition) (*expression.Expression, error) {
	if len(conditions) == 0 {
		return nil, nil
	}

	cond := expression.Name(conditions[0].Attribute).Equal(expression.Value(conditions[0].Value))
	for _, c := range conditions[1:] {
		cond = cond.And(expression.Name(c.Attribute).Equal(expression.Value(c.Value)))
	}

	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("build filter expression: %w", err)
	}
	return &expr, nil
}

// attributes converts a Key to its DynamoDB representation.
func (k Key) attributes() Item {
	return Item{
		AttributePK: &types.AttributeValueMemberS{Value: k.PK},
		AttributeSK: &types.AttributeValueMemberS{Value: k.SK},
	}
}

// ItemKind reads the type tag off a stored item. Returns "" when the tag is
// missing or malformed.
func ItemKind(item Item) Kind {
	if v, ok := item[AttributeItemType].(*types.AttributeValueMemberS); ok {
		return Kind(v.Value)
	}
	return ""
}

// UnmarshalItem decodes a stored item into out.
func UnmarshalItem(item Item, out any) error {
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}
