// Package dynafake provides an in-memory, single-table DynamoDB fake for
// tests. It implements the store.DynamoDBClient interface and understands the
// equality and begins_with expressions the store emits.
package dynafake

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Client is an in-memory single-table DynamoDB fake. Safe for concurrent use.
type Client struct {
	mu    sync.RWMutex
	items map[string]map[string]map[string]types.AttributeValue // pk -> sk -> item

	// Err, when set, fails every subsequent call. Used to exercise
	// backend-unavailable paths.
	Err error
}

// New creates an empty fake client.
func New() *Client {
	return &Client{
		items: make(map[string]map[string]map[string]types.AttributeValue),
	}
}

// Len returns the total number of stored items.
func (c *Client) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, part := range c.items {
		n += len(part)
	}
	return n
}

// PutItem stores an item keyed by its pk and sk attributes.
func (c *Client) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	pk, sk, err := itemKey(params.Item)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items[pk] == nil {
		c.items[pk] = make(map[string]map[string]types.AttributeValue)
	}
	c.items[pk][sk] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// GetItem retrieves an item by key, returning a nil Item when absent.
func (c *Client) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	pk, sk, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[pk][sk]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

// DeleteItem removes an item by key. Deleting a missing item succeeds.
func (c *Client) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	pk, sk, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if part, ok := c.items[pk]; ok {
		delete(part, sk)
		if len(part) == 0 {
			delete(c.items, pk)
		}
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

// Query evaluates the key condition (and optional filter) against every
// stored item. Index queries are answered from the same data; like a real
// GSI, items missing the conditioned attribute never match.
func (c *Client) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	keyCond, err := compile(params.KeyConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	filter, err := compile(params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []map[string]types.AttributeValue
	for _, part := range c.items {
		for _, item := range part {
			if keyCond(item) && filter(item) {
				out = append(out, copyItem(item))
			}
		}
	}
	return &dynamodb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

// Scan enumerates the table, honoring Segment/TotalSegments by hashing the
// partition key, and applies the optional filter expression.
func (c *Client) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	filter, err := compile(params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	segment, total := int32(0), int32(1)
	if params.TotalSegments != nil {
		total = *params.TotalSegments
	}
	if params.Segment != nil {
		segment = *params.Segment
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []map[string]types.AttributeValue
	for pk, part := range c.items {
		if total > 1 && segmentOf(pk, total) != segment {
			continue
		}
		for _, item := range part {
			if filter(item) {
				out = append(out, copyItem(item))
			}
		}
	}
	return &dynamodb.ScanOutput{Items: out, Count: int32(len(out))}, nil
}

// segmentOf assigns a partition key to a scan segment.
func segmentOf(pk string, total int32) int32 {
	h := fnv.New32a()
	h.Write([]byte(pk))
	return int32(h.Sum32() % uint32(total))
}

// --- expression evaluation ---

type predicate func(map[string]types.AttributeValue) bool

func matchAll(map[string]types.AttributeValue) bool { return true }

// compile translates a conjunction of "name = :value" and
// "begins_with(name, :value)" terms into a predicate. This covers every
// expression shape the store emits.
func compile(expr *string, names map[string]string, values map[string]types.AttributeValue) (predicate, error) {
	if expr == nil || *expr == "" {
		return matchAll, nil
	}

	var terms []predicate
	for _, raw := range strings.Split(*expr, " AND ") {
		term, err := compileTerm(trimOuterParens(raw), names, values)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}

	return func(item map[string]types.AttributeValue) bool {
		for _, term := range terms {
			if !term(item) {
				return false
			}
		}
		return true
	}, nil
}

func compileTerm(term string, names map[string]string, values map[string]types.AttributeValue) (predicate, error) {
	// The expression builder emits "begins_with (#0, :0)" with a space
	// before the argument list; hand-written expressions omit it.
	if inner, ok := strings.CutPrefix(term, "begins_with"); ok {
		inner = strings.TrimSpace(inner)
		inner = strings.TrimPrefix(inner, "(")
		inner = strings.TrimSuffix(inner, ")")
		name, valueTok, ok := strings.Cut(inner, ",")
		if !ok {
			return nil, fmt.Errorf("dynafake: malformed begins_with term %q", term)
		}
		attr := resolveName(strings.TrimSpace(name), names)
		want, err := resolveValue(strings.TrimSpace(valueTok), values)
		if err != nil {
			return nil, err
		}
		return func(item map[string]types.AttributeValue) bool {
			got, ok := attrString(item, attr)
			return ok && strings.HasPrefix(got, want)
		}, nil
	}

	name, valueTok, ok := strings.Cut(term, "=")
	if !ok {
		return nil, fmt.Errorf("dynafake: unsupported term %q", term)
	}
	attr := resolveName(strings.TrimSpace(name), names)
	want, err := resolveValue(strings.TrimSpace(valueTok), values)
	if err != nil {
		return nil, err
	}
	return func(item map[string]types.AttributeValue) bool {
		got, ok := attrString(item, attr)
		return ok && got == want
	}, nil
}

// trimOuterParens strips wrapping parentheses from a term, but only pairs
// that enclose the whole term: "(begins_with (#0, :0))" loses one pair, the
// function's own parentheses stay.
func trimOuterParens(term string) string {
	term = strings.TrimSpace(term)
	for len(term) > 1 && term[0] == '(' && closingParen(term) == len(term)-1 {
		term = strings.TrimSpace(term[1 : len(term)-1])
	}
	return term
}

// closingParen returns the index of the parenthesis closing the one opening
// at index 0, or -1 when unbalanced.
func closingParen(s string) int {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func resolveName(token string, names map[string]string) string {
	if strings.HasPrefix(token, "#") {
		if name, ok := names[token]; ok {
			return name
		}
	}
	return token
}

func resolveValue(token string, values map[string]types.AttributeValue) (string, error) {
	v, ok := values[token]
	if !ok {
		return "", fmt.Errorf("dynafake: unbound value token %q", token)
	}
	switch m := v.(type) {
	case *types.AttributeValueMemberS:
		return m.Value, nil
	case *types.AttributeValueMemberN:
		return m.Value, nil
	default:
		return "", fmt.Errorf("dynafake: unsupported value type %T for %q", v, token)
	}
}

func attrString(item map[string]types.AttributeValue, name string) (string, bool) {
	switch m := item[name].(type) {
	case *types.AttributeValueMemberS:
		return m.Value, true
	case *types.AttributeValueMemberN:
		return m.Value, true
	default:
		return "", false
	}
}

func itemKey(item map[string]types.AttributeValue) (pk, sk string, err error) {
	pkAttr, ok := item["pk"].(*types.AttributeValueMemberS)
	if !ok {
		return "", "", fmt.Errorf("dynafake: item missing pk")
	}
	skAttr, ok := item["sk"].(*types.AttributeValueMemberS)
	if !ok {
		return "", "", fmt.Errorf("dynafake: item missing sk")
	}
	return pkAttr.Value, skAttr.Value, nil
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
