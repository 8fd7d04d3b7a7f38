package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/histogo/blobstore"
)

// DDBClient is the subset of the DynamoDB API the commit store uses.
// *dynamodb.Client satisfies it.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentModification reports that another writer committed first.
var ErrConcurrentModification = errors.New("s3: concurrent modification detected")

// CurrentName is the blob name the commit store resolves through DynamoDB
// instead of S3. Its content is the object name of the newest commit.
const CurrentName = "CURRENT"

// DDBCommitStore is a blobstore.Store that keeps archive objects in S3 but
// moves the CURRENT pointer into DynamoDB.
//
// S3 offers no compare-and-swap on standard buckets, so two uploaders racing
// to advance CURRENT can silently drop a commit. A DynamoDB conditional
// write supplies the missing primitive: each commit inserts the next
// sequence number, and the insert fails if that number is already taken.
//
// The table needs a string partition key scope and a numeric sort key seq.
// Each item carries an object_name attribute naming the committed S3
// object, for example:
//
//	aws dynamodb create-table \
//	  --table-name histogo-commits \
//	  --attribute-definitions AttributeName=scope,AttributeType=S AttributeName=seq,AttributeType=N \
//	  --key-schema AttributeName=scope,KeyType=HASH AttributeName=seq,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	objects *Store
	ddb     DDBClient
	table   string

	// scope partitions the commit log, so stores sharing a table stay
	// isolated. Conventionally "s3://bucket/prefix".
	scope string
}

// NewDDBCommitStore wraps an S3 store with a DynamoDB-backed commit log.
func NewDDBCommitStore(objects *Store, ddb DDBClient, table, scope string) *DDBCommitStore {
	return &DDBCommitStore{
		objects: objects,
		ddb:     ddb,
		table:   table,
		scope:   scope,
	}
}

// Open opens a blob for reading. Opening CurrentName resolves the newest
// commit from DynamoDB and serves its object name as the blob content.
func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name != CurrentName {
		return s.objects.Open(ctx, name)
	}

	head, err := s.head(ctx)
	if err != nil {
		return nil, err
	}
	if head.seq == 0 {
		return nil, blobstore.ErrNotFound
	}
	return &pointerBlob{content: []byte(head.object)}, nil
}

// Put writes a blob. Writing CurrentName commits data as the new object
// name; it returns ErrConcurrentModification when another writer got there
// first, in which case the caller should re-read CURRENT and retry.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name != CurrentName {
		return s.objects.Put(ctx, name, data)
	}
	return s.advance(ctx, string(data))
}

func (s *DDBCommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return s.objects.Create(ctx, name)
}

func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	return s.objects.Delete(ctx, name)
}

func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.objects.List(ctx, prefix)
}

type commitEntry struct {
	seq    uint64
	object string
}

// head returns the newest commit in this scope, or a zero entry when none
// exists yet.
func (s *DDBCommitStore) head(ctx context.Context) (commitEntry, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(s.table),
		KeyConditionExpression:   aws.String("#scope = :scope"),
		ExpressionAttributeNames: map[string]string{"#scope": "scope"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":scope": &types.AttributeValueMemberS{Value: s.scope},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return commitEntry{}, fmt.Errorf("query commit log: %w", err)
	}
	if len(resp.Items) == 0 {
		return commitEntry{}, nil
	}
	return parseCommit(resp.Items[0])
}

// parseCommit extracts sequence number and object name from a commit item.
func parseCommit(item map[string]types.AttributeValue) (commitEntry, error) {
	seqAttr, ok := item["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return commitEntry{}, errors.New("s3: commit item has no numeric seq")
	}
	nameAttr, ok := item["object_name"].(*types.AttributeValueMemberS)
	if !ok {
		return commitEntry{}, errors.New("s3: commit item has no object_name")
	}

	seq, err := strconv.ParseUint(seqAttr.Value, 10, 64)
	if err != nil {
		return commitEntry{}, fmt.Errorf("parse commit seq: %w", err)
	}
	return commitEntry{seq: seq, object: nameAttr.Value}, nil
}

// advance inserts the next sequence number. The conditional expression turns
// a lost race into ErrConcurrentModification instead of a silent overwrite.
func (s *DDBCommitStore) advance(ctx context.Context, object string) error {
	latest, err := s.head(ctx)
	if err != nil {
		return err
	}
	next := latest.seq + 1

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"scope":       &types.AttributeValueMemberS{Value: s.scope},
			"seq":         &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"object_name": &types.AttributeValueMemberS{Value: object},
		},
		ConditionExpression:      aws.String("attribute_not_exists(#seq)"),
		ExpressionAttributeNames: map[string]string{"#seq": "seq"},
	})
	if err == nil {
		return nil
	}

	var conflict *types.ConditionalCheckFailedException
	if errors.As(err, &conflict) {
		return ErrConcurrentModification
	}
	return fmt.Errorf("commit seq %d: %w", next, err)
}

// pointerBlob serves CURRENT content that lives in DynamoDB rather than S3.
type pointerBlob struct {
	content []byte
}

func (b *pointerBlob) Close() error { return nil }

func (b *pointerBlob) Size() int64 { return int64(len(b.content)) }

func (b *pointerBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	switch {
	case off < 0:
		return 0, blobstore.ErrNegativeOffset
	case off >= b.Size():
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *pointerBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	switch {
	case off < 0:
		return nil, blobstore.ErrNegativeOffset
	case off >= b.Size():
		return nil, io.EOF
	}
	if rest := b.Size() - off; length > rest {
		length = rest
	}
	if length <= 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return io.NopCloser(bytes.NewReader(b.content[off : off+length])), nil
}
