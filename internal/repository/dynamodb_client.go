package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"asic-advisor/internal/domain"
)

const (
	attrPayload = "payload"
	// maxScanPages bounds a single Records call on a misbehaving table.
	maxScanPages = 100
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoSource.
// Defined here for testability.
type dynamodbAPI interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoSource reads a dataset from a DynamoDB table. Each item stores one
// record as a JSON string in the "payload" attribute.
type DynamoSource struct {
	api       dynamodbAPI
	tableName string
}

// NewDynamoSource creates a new DynamoSource.
func NewDynamoSource(api dynamodbAPI, tableName string) (*DynamoSource, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoSource{api: api, tableName: tableName}, nil
}

// Records scans the whole table, following LastEvaluatedKey.
func (d *DynamoSource) Records(ctx context.Context) ([]domain.Record, error) {
	records := make([]domain.Record, 0)
	var startKey map[string]types.AttributeValue

	for page := 0; page < maxScanPages; page++ {
		out, err := d.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(d.tableName),
			ExclusiveStartKey:    startKey,
			ProjectionExpression: aws.String("#p"),
			ExpressionAttributeNames: map[string]string{
				"#p": attrPayload,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("repository: Records scan %s: %w", d.tableName, err)
		}
		if out == nil {
			return records, nil
		}

		for _, item := range out.Items {
			rec, err := itemToRecord(item)
			if err != nil {
				return nil, fmt.Errorf("repository: Records unmarshal: %w", err)
			}
			records = append(records, rec)
		}

		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		startKey = out.LastEvaluatedKey
	}
	return nil, fmt.Errorf("repository: Records scan %s: exceeded %d pages", d.tableName, maxScanPages)
}

// itemToRecord converts a DynamoDB attribute map to a Record.
func itemToRecord(item map[string]types.AttributeValue) (domain.Record, error) {
	payload, err := strAttr(item, attrPayload)
	if err != nil {
		return nil, err
	}
	raw := []byte(strings.TrimSpace(payload))
	if !json.Valid(raw) {
		return nil, fmt.Errorf("repository: attribute %q is not valid JSON", attrPayload)
	}
	return domain.Record(raw), nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
