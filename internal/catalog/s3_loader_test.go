package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLoader is a mock implementation of the Loader interface for testing.
type mockLoader struct {
	loadFunc func(ctx context.Context, path string) ([]Item, error)
}

func (m *mockLoader) Load(ctx context.Context, path string) ([]Item, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, path)
	}
	return nil, errors.New("not implemented")
}

// fakeS3 serves objects from memory.
type fakeS3 struct {
	objects map[string][]byte
	err     error
	input   *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Loader_Load(t *testing.T) {
	items := []Item{{Name: "Desk Lamp", Price: 2500, Stock: 12}}
	client := &fakeS3{objects: map[string][]byte{
		"catalog/products.jsonl.gz": gzipLines(t, itemLines(t, items)),
	}}
	loader := newS3Loader(client, "seed-bucket", zerolog.Nop())

	got, err := loader.Load(context.Background(), "catalog/products.jsonl.gz")

	require.NoError(t, err)
	assert.Equal(t, items, got)
	assert.Equal(t, "seed-bucket", aws.ToString(client.input.Bucket))
}

func TestS3Loader_Load_GetObjectFails(t *testing.T) {
	client := &fakeS3{err: errors.New("access denied")}
	loader := newS3Loader(client, "seed-bucket", zerolog.Nop())

	got, err := loader.Load(context.Background(), "catalog/products.jsonl.gz")

	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "bucket=seed-bucket")
}

func TestS3Loader_Load_CorruptObject(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{"bad.gz": []byte("not gzip")}}
	loader := newS3Loader(client, "seed-bucket", zerolog.Nop())

	_, err := loader.Load(context.Background(), "bad.gz")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://seed-bucket/bad.gz")
}

func TestFallbackLoader_S3Success(t *testing.T) {
	s3Items := []Item{{Name: "From S3", Price: 100, Stock: 1}}
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]Item, error) {
			assert.Equal(t, "catalog/test.gz", path, "S3 key should have prefix")
			return s3Items, nil
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]Item, error) {
			t.Error("file loader should not be called when S3 succeeds")
			return nil, errors.New("should not be called")
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "catalog/", true, zerolog.Nop())

	got, err := fallback.Load(context.Background(), "test.gz")

	require.NoError(t, err)
	assert.Equal(t, s3Items, got)
}

func TestFallbackLoader_S3FailsFallsBackToLocal(t *testing.T) {
	localItems := []Item{{Name: "From disk", Price: 100, Stock: 1}}
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]Item, error) {
			return nil, errors.New("S3 connection failed")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]Item, error) {
			assert.Equal(t, "test.gz", path, "local path should not have prefix")
			return localItems, nil
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "catalog/", true, zerolog.Nop())

	got, err := fallback.Load(context.Background(), "test.gz")

	require.NoError(t, err)
	assert.Equal(t, localItems, got)
}

func TestFallbackLoader_S3DisabledOrNil(t *testing.T) {
	localItems := []Item{{Name: "From disk", Price: 100, Stock: 1}}
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]Item, error) {
			t.Error("S3 loader should not be called")
			return nil, errors.New("should not be called")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]Item, error) {
			return localItems, nil
		},
	}

	for name, fallback := range map[string]Loader{
		"disabled": NewFallbackLoader(s3Loader, fileLoader, "catalog/", false, zerolog.Nop()),
		"nil":      NewFallbackLoader(nil, fileLoader, "catalog/", true, zerolog.Nop()),
	} {
		got, err := fallback.Load(context.Background(), "test.gz")
		require.NoError(t, err, name)
		assert.Equal(t, localItems, got, name)
	}
}

func TestFallbackLoader_BothFail(t *testing.T) {
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]Item, error) {
			return nil, errors.New("S3 failed")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]Item, error) {
			return nil, errors.New("local file not found")
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "catalog/", true, zerolog.Nop())

	got, err := fallback.Load(context.Background(), "test.gz")

	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "local file not found")
}
