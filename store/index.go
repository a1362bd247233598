package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ReverseLookup answers "items of a kind whose attribute equals a value".
// The two implementations - a secondary-index query and a filtered scan -
// return the same result sets; deployments choose per attribute via Config,
// trading latency only.
type ReverseLookup interface {
	Lookup(ctx context.Context, kind Kind, value string) ([]Item, error)
}

// ReverseLookup returns the lookup strategy configured for the attribute:
// an index query when a GSI name is configured, otherwise the scan fallback.
func (s *Store) ReverseLookup(attribute string) ReverseLookup {
	if index := s.config.indexFor(attribute); index != "" {
		return &indexLookup{store: s, attribute: attribute, index: index}
	}
	return &scanLookup{store: s, attribute: attribute}
}

// indexLookup resolves the reverse lookup through a global secondary index
// keyed by the attribute. O(matches).
type indexLookup struct {
	store     *Store
	attribute string
	index     string
}

func (l *indexLookup) Lookup(ctx context.Context, kind Kind, value string) ([]Item, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: empty %s lookup value", ErrInvalidKey, l.attribute)
	}

	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(l.attribute).Equal(expression.Value(value))).
		WithFilter(expression.Name(AttributeItemType).Equal(expression.Value(string(kind)))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build index expression: %w", err)
	}

	var items []Item
	paginator := dynamodb.NewQueryPaginator(l.store.client, &dynamodb.QueryInput{
		TableName:                 aws.String(l.store.config.TableName),
		IndexName:                 aws.String(l.index),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
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

// scanLookup resolves the reverse lookup by scanning the whole table with an
// equality filter. O(table size); correct but slow, for deployments without
// the secondary index.
type scanLookup struct {
	store     *Store
	attribute string
}

func (l *scanLookup) Lookup(ctx context.Context, kind Kind, value string) ([]Item, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: empty %s lookup value", ErrInvalidKey, l.attribute)
	}
	return l.store.Scan(ctx,
		Condition{Attribute: AttributeItemType, Value: string(kind)},
		Condition{Attribute: l.attribute, Value: value},
	)
}
