package awsadp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mashiike/aipkit"
	"github.com/mashiike/aipkit/aip"
)

// seqWidth zero-pads sequence numbers so that keys list in sequence order.
const seqWidth = 20

// maxAppendRetries bounds the conditional write retries of one Append.
const maxAppendRetries = 5

// S3EventLogConfig provides configuration for S3EventLog
type S3EventLogConfig struct {
	Client S3Client
	Bucket string
	Prefix string // Optional prefix for all object keys (useful for testing isolation)
}

// S3EventLog implements aipkit.EventLog with one S3 object per event.
// Events are never discarded, so replay is always available.
// Appends use If-None-Match conditional writes; concurrent writers to one task retry on conflict.
type S3EventLog struct {
	client S3Client
	bucket string
	prefix string

	mu      sync.Mutex
	lastSeq map[string]int64
}

var _ aipkit.EventLog = (*S3EventLog)(nil)

// NewS3EventLog creates a new S3EventLog instance
func NewS3EventLog(config S3EventLogConfig) *S3EventLog {
	return &S3EventLog{
		client:  config.Client,
		bucket:  config.Bucket,
		prefix:  config.Prefix,
		lastSeq: make(map[string]int64),
	}
}

// Append implements aipkit.EventLog
func (l *S3EventLog) Append(ctx context.Context, taskID string, data aip.EventData) (aip.StreamEvent, error) {
	seq, err := l.cachedLastSeq(ctx, taskID)
	if err != nil {
		return aip.StreamEvent{}, err
	}
	for range maxAppendRetries {
		ev := aip.StreamEvent{EventSeq: seq + 1, EventData: data}
		body, err := json.Marshal(ev)
		if err != nil {
			return aip.StreamEvent{}, fmt.Errorf("failed to marshal event: %w", err)
		}
		_, err = l.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(l.bucket),
			Key:         aws.String(l.eventKey(taskID, ev.EventSeq)),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
			IfNoneMatch: aws.String("*"),
		})
		if err == nil {
			l.storeLastSeq(taskID, ev.EventSeq)
			return ev, nil
		}
		if !isConditionFailed(err) {
			return aip.StreamEvent{}, fmt.Errorf("failed to put event to S3: %w", err)
		}
		// another writer took the sequence number
		if seq, err = l.listLastSeq(ctx, taskID); err != nil {
			return aip.StreamEvent{}, err
		}
	}
	return aip.StreamEvent{}, fmt.Errorf("failed to append event to task %s: too many concurrent writers", taskID)
}

// Load implements aipkit.EventLog
func (l *S3EventLog) Load(ctx context.Context, taskID string, afterSeq int64, limit int) ([]aip.StreamEvent, error) {
	afterSeq = max(afterSeq, 0)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(l.bucket),
		Prefix: aws.String(l.eventPrefix(taskID)),
	}
	if afterSeq > 0 {
		input.StartAfter = aws.String(l.eventKey(taskID, afterSeq))
	}
	var events []aip.StreamEvent
	paginator := s3.NewListObjectsV2Paginator(l.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}
		for _, obj := range page.Contents {
			if limit > 0 && len(events) >= limit {
				return events, nil
			}
			ev, err := l.getEvent(ctx, aws.ToString(obj.Key))
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

// LastSeq implements aipkit.EventLog
func (l *S3EventLog) LastSeq(ctx context.Context, taskID string) (int64, error) {
	seq, err := l.listLastSeq(ctx, taskID)
	if err != nil {
		return 0, err
	}
	l.storeLastSeq(taskID, seq)
	return seq, nil
}

func (l *S3EventLog) getEvent(ctx context.Context, key string) (aip.StreamEvent, error) {
	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return aip.StreamEvent{}, fmt.Errorf("failed to get event %s from S3: %w", key, err)
	}
	defer result.Body.Close()

	var ev aip.StreamEvent
	if err := json.NewDecoder(result.Body).Decode(&ev); err != nil {
		return aip.StreamEvent{}, fmt.Errorf("failed to decode event %s: %w", key, err)
	}
	return ev, nil
}

func (l *S3EventLog) cachedLastSeq(ctx context.Context, taskID string) (int64, error) {
	l.mu.Lock()
	seq, ok := l.lastSeq[taskID]
	l.mu.Unlock()
	if ok {
		return seq, nil
	}
	return l.LastSeq(ctx, taskID)
}

func (l *S3EventLog) storeLastSeq(taskID string, seq int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.lastSeq[taskID]; !ok || seq > cur {
		l.lastSeq[taskID] = seq
	}
}

// listLastSeq finds the newest event key of the task.
func (l *S3EventLog) listLastSeq(ctx context.Context, taskID string) (int64, error) {
	var last string
	paginator := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(l.bucket),
		Prefix: aws.String(l.eventPrefix(taskID)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list events: %w", err)
		}
		if n := len(page.Contents); n > 0 {
			last = aws.ToString(page.Contents[n-1].Key)
		}
	}
	if last == "" {
		return 0, nil
	}
	return l.seqFromKey(taskID, last)
}

func (l *S3EventLog) eventPrefix(taskID string) string {
	return objectKey(l.prefix, "events", taskID) + "/"
}

func (l *S3EventLog) eventKey(taskID string, seq int64) string {
	return fmt.Sprintf("%s%0*d.json", l.eventPrefix(taskID), seqWidth, seq)
}

func (l *S3EventLog) seqFromKey(taskID, key string) (int64, error) {
	name, ok := strings.CutPrefix(key, l.eventPrefix(taskID))
	if !ok {
		return 0, fmt.Errorf("unexpected event key %q", key)
	}
	seq, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
	if err != nil {
		return 0, errors.Join(fmt.Errorf("unexpected event key %q", key), err)
	}
	return seq, nil
}
