package awsadp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type fakeObject struct {
	body []byte
	etag string
}

// fakeS3 is an in-memory S3Client honoring If-Match and If-None-Match.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	version  int
	pageSize int32

	// beforePut runs before each PutObject without the lock held.
	beforePut func(key string)
}

var _ S3Client = (*fakeS3)(nil)

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject), pageSize: 1000}
}

func (f *fakeS3) objectID(bucket, key *string) string {
	return aws.ToString(bucket) + "/" + aws.ToString(key)
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[f.objectID(params.Bucket, params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(obj.body)),
		ETag: aws.String(obj.etag),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.beforePut != nil {
		f.beforePut(aws.ToString(params.Key))
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.objectID(params.Bucket, params.Key)
	current, exists := f.objects[id]
	if aws.ToString(params.IfNoneMatch) == "*" && exists {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "object exists"}
	}
	if params.IfMatch != nil && (!exists || current.etag != aws.ToString(params.IfMatch)) {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "etag mismatch"}
	}
	f.version++
	etag := fmt.Sprintf(`"v%d"`, f.version)
	f.objects[id] = fakeObject{body: body, etag: etag}
	return &s3.PutObjectOutput{ETag: aws.String(etag)}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, f.objectID(params.Bucket, params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket := aws.ToString(params.Bucket) + "/"
	after := aws.ToString(params.StartAfter)
	if token := aws.ToString(params.ContinuationToken); token != "" {
		after = token
	}
	var keys []string
	for id := range f.objects {
		key, ok := strings.CutPrefix(id, bucket)
		if !ok || !strings.HasPrefix(key, aws.ToString(params.Prefix)) || key <= after {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)

	out := &s3.ListObjectsV2Output{}
	if int32(len(keys)) > f.pageSize {
		keys = keys[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	out.KeyCount = aws.Int32(int32(len(keys)))
	return out, nil
}

// putRaw stores an object unconditionally. id is "bucket/key".
func (f *fakeS3) putRaw(id string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version++
	f.objects[id] = fakeObject{body: body, etag: fmt.Sprintf(`"v%d"`, f.version)}
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for id := range f.objects {
		keys = append(keys, id)
	}
	slices.Sort(keys)
	return keys
}
