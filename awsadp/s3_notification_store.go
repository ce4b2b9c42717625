package awsadp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mashiike/aipkit"
)

// S3NotificationStoreConfig provides configuration for S3NotificationStore
type S3NotificationStoreConfig struct {
	Client S3Client
	Bucket string
	Prefix string // Optional prefix for all object keys (useful for testing isolation)
}

// S3NotificationStore implements aipkit.NotificationStore with one S3 object per task
// holding its subscriptions in registration order. Writes are guarded by ETag
// conditions and retried when another writer got there first.
type S3NotificationStore struct {
	client S3Client
	bucket string
	prefix string
}

var _ aipkit.NotificationStore = (*S3NotificationStore)(nil)

// NewS3NotificationStore creates a new S3NotificationStore instance
func NewS3NotificationStore(config S3NotificationStoreConfig) *S3NotificationStore {
	return &S3NotificationStore{
		client: config.Client,
		bucket: config.Bucket,
		prefix: config.Prefix,
	}
}

type subscriptionsObject struct {
	Subscriptions []aipkit.Subscription `json:"subscriptions"`
}

// Put implements aipkit.NotificationStore
func (s *S3NotificationStore) Put(ctx context.Context, sub aipkit.Subscription) error {
	_, err := s.modify(ctx, sub.Config.TaskID, func(subs []aipkit.Subscription) ([]aipkit.Subscription, bool) {
		for i := range subs {
			if subs[i].Config.ID == sub.Config.ID {
				subs[i] = sub
				return subs, true
			}
		}
		return append(subs, sub), true
	})
	return err
}

// Get implements aipkit.NotificationStore
func (s *S3NotificationStore) Get(ctx context.Context, taskID, configID string) (*aipkit.Subscription, error) {
	subs, _, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if sub.Config.ID == configID {
			return &sub, nil
		}
	}
	return nil, aipkit.ErrNotificationConfigNotFound
}

// List implements aipkit.NotificationStore
func (s *S3NotificationStore) List(ctx context.Context, taskID string) ([]aipkit.Subscription, error) {
	subs, _, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// Delete implements aipkit.NotificationStore
func (s *S3NotificationStore) Delete(ctx context.Context, taskID, configID string) (bool, error) {
	return s.modify(ctx, taskID, func(subs []aipkit.Subscription) ([]aipkit.Subscription, bool) {
		if configID == "" {
			return nil, len(subs) > 0
		}
		kept := slices.DeleteFunc(subs, func(sub aipkit.Subscription) bool {
			return sub.Config.ID == configID
		})
		return kept, len(kept) != len(subs)
	})
}

// load returns the subscriptions of the task and the ETag of their object ("" when absent).
func (s *S3NotificationStore) load(ctx context.Context, taskID string) ([]aipkit.Subscription, string, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(taskID)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to get notification configs from S3: %w", err)
	}
	defer result.Body.Close()

	var obj subscriptionsObject
	if err := json.NewDecoder(result.Body).Decode(&obj); err != nil {
		return nil, "", fmt.Errorf("failed to decode notification configs: %w", err)
	}
	return obj.Subscriptions, aws.ToString(result.ETag), nil
}

// modify applies fn to the stored subscriptions and writes the result back.
// fn reports whether it changed anything; an empty result deletes the object.
func (s *S3NotificationStore) modify(ctx context.Context, taskID string, fn func([]aipkit.Subscription) ([]aipkit.Subscription, bool)) (bool, error) {
	for range maxAppendRetries {
		subs, etag, err := s.load(ctx, taskID)
		if err != nil {
			return false, err
		}
		next, changed := fn(subs)
		if !changed {
			return false, nil
		}
		if len(next) == 0 {
			if etag == "" {
				return true, nil
			}
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(s.key(taskID)),
			})
			if err != nil {
				return false, fmt.Errorf("failed to delete notification configs: %w", err)
			}
			return true, nil
		}

		body, err := json.Marshal(subscriptionsObject{Subscriptions: next})
		if err != nil {
			return false, fmt.Errorf("failed to marshal notification configs: %w", err)
		}
		input := &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.key(taskID)),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		}
		if etag == "" {
			input.IfNoneMatch = aws.String("*")
		} else {
			input.IfMatch = aws.String(etag)
		}
		_, err = s.client.PutObject(ctx, input)
		if err == nil {
			return true, nil
		}
		if !isConditionFailed(err) {
			return false, fmt.Errorf("failed to put notification configs to S3: %w", err)
		}
	}
	return false, fmt.Errorf("failed to update notification configs of task %s: too many concurrent writers", taskID)
}

func (s *S3NotificationStore) key(taskID string) string {
	return objectKey(s.prefix, "notifications", taskID+".json")
}
