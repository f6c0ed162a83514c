// Package bookings persists booking snapshots and their reminder state in
// DynamoDB. All bookings share one partition; the row key is the payment
// provider's checkout session id, which makes writes naturally idempotent
// per checkout.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/studioxv/booking-platform/internal/booking"
	"github.com/studioxv/booking-platform/pkg/logging"
)

const bookingPartition = "booking"

var (
	// ErrBookingNotFound indicates the requested booking id does not exist.
	ErrBookingNotFound = errors.New("bookings: booking not found")
	// ErrBookingExists indicates a snapshot for this checkout session was
	// already persisted.
	ErrBookingExists = errors.New("bookings: booking already exists")
)

// ReminderKind identifies one of the four reminder sends tracked per
// booking. The value doubles as the flag attribute name in the record.
type ReminderKind string

const (
	Reminder24h          ReminderKind = "reminder24hSent"
	Reminder2h           ReminderKind = "reminder2hSent"
	ReminderStartPayment ReminderKind = "startPaymentReminderSent"
	ReminderPostSession  ReminderKind = "postSessionEmailSent"
)

func (k ReminderKind) valid() bool {
	switch k {
	case Reminder24h, Reminder2h, ReminderStartPayment, ReminderPostSession:
		return true
	}
	return false
}

// sentAtAttribute is the timestamp attribute paired with a sent flag.
func (k ReminderKind) sentAtAttribute() string {
	return string(k) + "At"
}

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Record is the persisted booking row: the snapshot plus reminder and
// balance bookkeeping the worker mutates over the booking's lifetime.
type Record struct {
	PartitionKey string `dynamodbav:"partitionKey" json:"-"`
	RowKey       string `dynamodbav:"rowKey" json:"-"`

	booking.Snapshot

	Reminder24hSent            bool   `dynamodbav:"reminder24hSent" json:"reminder24hSent"`
	Reminder24hSentAt          string `dynamodbav:"reminder24hSentAt,omitempty" json:"reminder24hSentAt,omitempty"`
	Reminder2hSent             bool   `dynamodbav:"reminder2hSent" json:"reminder2hSent"`
	Reminder2hSentAt           string `dynamodbav:"reminder2hSentAt,omitempty" json:"reminder2hSentAt,omitempty"`
	StartPaymentReminderSent   bool   `dynamodbav:"startPaymentReminderSent" json:"startPaymentReminderSent"`
	StartPaymentReminderSentAt string `dynamodbav:"startPaymentReminderSentAt,omitempty" json:"startPaymentReminderSentAt,omitempty"`
	PostSessionEmailSent       bool   `dynamodbav:"postSessionEmailSent" json:"postSessionEmailSent"`
	PostSessionEmailSentAt     string `dynamodbav:"postSessionEmailSentAt,omitempty" json:"postSessionEmailSentAt,omitempty"`

	BalancePaid            bool   `dynamodbav:"balancePaid" json:"balancePaid"`
	BalancePaidAt          string `dynamodbav:"balancePaidAt,omitempty" json:"balancePaidAt,omitempty"`
	BalancePaymentIntentID string `dynamodbav:"balancePaymentIntentId,omitempty" json:"balancePaymentIntentId,omitempty"`

	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt string `dynamodbav:"updatedAt" json:"updatedAt"`
}

// ReminderSent reports whether the given reminder was already sent.
func (r *Record) ReminderSent(kind ReminderKind) bool {
	switch kind {
	case Reminder24h:
		return r.Reminder24hSent
	case Reminder2h:
		return r.Reminder2hSent
	case ReminderStartPayment:
		return r.StartPaymentReminderSent
	case ReminderPostSession:
		return r.PostSessionEmailSent
	}
	return false
}

// Store persists booking records to DynamoDB.
type Store struct {
	client   dynamoAPI
	table    string
	pageSize int32
	logger   *logging.Logger
}

// NewStore builds a store backed by the provided DynamoDB client.
func NewStore(client dynamoAPI, table string, pageSize int, logger *logging.Logger) *Store {
	if client == nil {
		panic("bookings: dynamodb client cannot be nil")
	}
	if table == "" {
		panic("bookings: table name cannot be empty")
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{client: client, table: table, pageSize: int32(pageSize), logger: logger}
}

// Create persists a fresh snapshot. A second write for the same checkout
// session returns ErrBookingExists so callers can treat replays as no-ops.
func (s *Store) Create(ctx context.Context, snap *booking.Snapshot) (*Record, error) {
	if snap == nil {
		return nil, errors.New("bookings: snapshot cannot be nil")
	}
	if snap.BookingID == "" {
		return nil, errors.New("bookings: snapshot missing booking id")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	rec := &Record{
		PartitionKey: bookingPartition,
		RowKey:       snap.BookingID,
		Snapshot:     *snap,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("bookings: failed to marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(rowKey)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, fmt.Errorf("%w: %s", ErrBookingExists, snap.BookingID)
		}
		return nil, fmt.Errorf("bookings: failed to persist record: %w", err)
	}
	return rec, nil
}

// Get fetches a booking by its checkout session id.
func (s *Store) Get(ctx context.Context, bookingID string) (*Record, error) {
	if bookingID == "" {
		return nil, errors.New("bookings: booking id required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       recordKey(bookingID),
	})
	if err != nil {
		return nil, fmt.Errorf("bookings: failed to fetch record: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}

	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("bookings: failed to decode record: %w", err)
	}
	return &rec, nil
}

// List returns every booking in the table, following pagination until the
// partition is exhausted.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	var (
		records  []*Record
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("partitionKey = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: bookingPartition},
			},
			Limit:             aws.Int32(s.pageSize),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("bookings: failed to list records: %w", err)
		}
		for _, item := range out.Items {
			var rec Record
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return nil, fmt.Errorf("bookings: failed to decode record: %w", err)
			}
			records = append(records, &rec)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return records, nil
}

// MarkReminderSent flips a reminder flag exactly once. It returns true when
// this call won the flag and false when another worker already sent it, so
// concurrent sweeps never double-send.
func (s *Store) MarkReminderSent(ctx context.Context, bookingID string, kind ReminderKind) (bool, error) {
	if bookingID == "" {
		return false, errors.New("bookings: booking id required")
	}
	if !kind.valid() {
		return false, fmt.Errorf("bookings: unknown reminder kind %q", kind)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              recordKey(bookingID),
		UpdateExpression: aws.String("SET #flag = :true, #flagAt = :now, updatedAt = :now"),
		ExpressionAttributeNames: map[string]string{
			"#flag":   string(kind),
			"#flagAt": kind.sentAtAttribute(),
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true":  &types.AttributeValueMemberBOOL{Value: true},
			":false": &types.AttributeValueMemberBOOL{Value: false},
			":now":   &types.AttributeValueMemberS{Value: now},
		},
		ConditionExpression: aws.String("attribute_exists(rowKey) AND (attribute_not_exists(#flag) OR #flag = :false)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("bookings: failed to mark %s for %s: %w", kind, bookingID, err)
	}
	return true, nil
}

// MarkBalancePaid records the balance settlement and promotes the booking
// to paid. Replayed webhook deliveries return false without an error.
func (s *Store) MarkBalancePaid(ctx context.Context, bookingID, paymentIntentID string) (bool, error) {
	if bookingID == "" {
		return false, errors.New("bookings: booking id required")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key:       recordKey(bookingID),
		UpdateExpression: aws.String(
			"SET balancePaid = :true, balancePaidAt = :now, balancePaymentIntentId = :intent, paymentStatus = :paid, updatedAt = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true":   &types.AttributeValueMemberBOOL{Value: true},
			":false":  &types.AttributeValueMemberBOOL{Value: false},
			":now":    &types.AttributeValueMemberS{Value: now},
			":intent": &types.AttributeValueMemberS{Value: paymentIntentID},
			":paid":   &types.AttributeValueMemberS{Value: string(booking.StatusPaid)},
		},
		ConditionExpression: aws.String("attribute_exists(rowKey) AND (attribute_not_exists(balancePaid) OR balancePaid = :false)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("bookings: failed to mark balance paid for %s: %w", bookingID, err)
	}
	return true, nil
}

func recordKey(bookingID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"partitionKey": &types.AttributeValueMemberS{Value: bookingPartition},
		"rowKey":       &types.AttributeValueMemberS{Value: bookingID},
	}
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
