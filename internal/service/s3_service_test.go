package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/photoverify_api/internal/config"
	"github.com/GTDGit/photoverify_api/internal/utils"
)

func newTestS3(t *testing.T, endpoint string, maxBytes int64) *S3Service {
	t.Helper()
	svc, err := NewS3Service(context.Background(), &config.S3Config{
		Region:          "us-east-1",
		Bucket:          "photos",
		Endpoint:        endpoint,
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		PresignExpiry:   15 * time.Minute,
	}, maxBytes)
	require.NoError(t, err)
	return svc
}

func TestS3Service_ObjectKey(t *testing.T) {
	svc := newTestS3(t, "http://localhost:9000", 1024)

	key := svc.ObjectKey("loan-42", "../IMG 0001 (copy).JPG")
	assert.True(t, strings.HasPrefix(key, "verification-photos/loan-42/"), key)
	assert.True(t, strings.HasSuffix(key, "-IMG_0001_copy_.JPG"), key)
	assert.NotContains(t, key, "..")
	assert.True(t, svc.OwnsKey("loan-42", key))
	assert.False(t, svc.OwnsKey("loan-43", key))
	assert.False(t, svc.OwnsKey("loan-42", "verification-photos/loan-42/"))
	assert.False(t, svc.OwnsKey("loan-42", "verification-photos/loan-42/../loan-43/x.jpg"))

	assert.NotEqual(t, key, svc.ObjectKey("loan-42", "../IMG 0001 (copy).JPG"))
}

func TestS3Service_OwnsKey_DistinctLoans(t *testing.T) {
	svc := newTestS3(t, "http://localhost:9000", 1024)

	key := svc.ObjectKey("loan_1", "site.jpg")
	assert.True(t, svc.OwnsKey("loan_1", key))
	// Ids that used to collapse onto the same prefix never own it.
	assert.False(t, svc.OwnsKey("loan#1", key))
	assert.False(t, svc.OwnsKey("loan$1", key))
	assert.False(t, svc.OwnsKey("loan 1", key))
}

func TestSanitizeKeySegment(t *testing.T) {
	assert.Equal(t, "photo", sanitizeKeySegment(""))
	assert.Equal(t, "photo", sanitizeKeySegment("..."))
	assert.Equal(t, "a_b.jpg", sanitizeKeySegment("a/b.jpg"))
	assert.Len(t, sanitizeKeySegment(strings.Repeat("x", 300)+".jpg"), 100)
}

func TestS3Service_PresignUpload(t *testing.T) {
	svc := newTestS3(t, "http://localhost:9000", 1024)

	raw, err := svc.PresignUpload(context.Background(), "verification-photos/l/p.jpg", "image/jpeg")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/photos/verification-photos/l/p.jpg", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Equal(t, 15*time.Minute, svc.PresignExpiry())
}

func TestS3Service_GetObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photos/small.jpg":
			_, _ = w.Write([]byte("jpeg-bytes"))
		case "/photos/big.jpg":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
		}
	}))
	t.Cleanup(srv.Close)
	svc := newTestS3(t, srv.URL, 32)
	ctx := context.Background()

	data, err := svc.GetObject(ctx, "small.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	_, err = svc.GetObject(ctx, "big.jpg")
	assert.ErrorIs(t, err, utils.ErrObjectTooLarge)

	_, err = svc.GetObject(ctx, "missing.jpg")
	assert.ErrorIs(t, err, utils.ErrObjectNotFound)
}
