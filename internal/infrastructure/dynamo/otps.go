package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otp-store/internal/domain"
)

// OTPRepo provides typed DynamoDB operations for the otps table.
// PK: otp_id. GSI email-index: email + created_at.
// DynamoDB TTL deletion can lag by hours, so every read also checks expires_at.
type OTPRepo struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewOTPRepo(client *dynamodb.Client, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put otp record: %w", err)
	}
	return nil
}

func (r *OTPRepo) Get(ctx context.Context, otpID string) (*domain.OTPRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("otp_id", otpID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get otp record: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp record not found: %w", domain.ErrNotFound)
	}
	var rec domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal otp record: %w", err)
	}
	if rec.Expired(r.now()) {
		return nil, fmt.Errorf("otp record not found: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

// ListByEmail returns the unexpired records for email, oldest first.
// created_at is a trimmed RFC3339Nano string, so index order is not chronological; sort after decoding.
func (r *OTPRepo) ListByEmail(ctx context.Context, email string) ([]domain.OTPRecord, error) {
	now := r.now()
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(emailIndex),
		KeyConditionExpression: aws.String("#e = :email"),
		FilterExpression:       aws.String("#x > :now"),
		ExpressionAttributeNames: map[string]string{
			"#e": "email",
			"#x": TTLAttribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": strValue(email),
			":now":   numValue(now.Unix()),
		},
	})

	var recs []domain.OTPRecord
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query otp records: %w", err)
		}
		var batch []domain.OTPRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal otp records: %w", err)
		}
		for _, rec := range batch {
			if !rec.Expired(now) {
				recs = append(recs, rec)
			}
		}
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	return recs, nil
}

func (r *OTPRepo) Delete(ctx context.Context, otpID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("otp_id", otpID),
	})
	if err != nil {
		return fmt.Errorf("delete otp record: %w", err)
	}
	return nil
}

// DeleteExpired scans for records whose expires_at is at or before now and deletes them.
// It returns how many were deleted before the first failure.
func (r *OTPRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		FilterExpression:     aws.String("#x <= :now"),
		ProjectionExpression: aws.String("#id"),
		ExpressionAttributeNames: map[string]string{
			"#x":  TTLAttribute,
			"#id": "otp_id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": numValue(now.Unix()),
		},
	})

	deleted := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("scan expired otp records: %w", err)
		}
		for _, item := range page.Items {
			id, ok := item["otp_id"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if err := r.Delete(ctx, id.Value); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	return deleted, nil
}

// Ping checks the table is reachable.
func (r *OTPRepo) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.tableName),
	})
	return err
}
