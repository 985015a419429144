package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/photoverify_api/internal/config"
	"github.com/GTDGit/photoverify_api/internal/models"
	"github.com/GTDGit/photoverify_api/internal/utils"
)

// ObjectKeyPrefix is the top-level prefix of every verification photo object.
const ObjectKeyPrefix = "verification-photos/"

var (
	unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	dotRuns        = regexp.MustCompile(`\.{2,}`)
)

// S3Service stores verification photos in an S3 bucket.
type S3Service struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
	maxBytes  int64
}

// NewS3Service creates a new S3 service. Static credentials are used when configured,
// otherwise the default AWS credential chain applies. A custom endpoint switches to
// path-style addressing for S3-compatible stores.
func NewS3Service(ctx context.Context, cfg *config.S3Config, maxBytes int64) (*S3Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("S3 config is nil")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	} else {
		log.Warn().Msg("S3 static credentials not configured - using default AWS credential chain")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &S3Service{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		expiry:    expiry,
		maxBytes:  maxBytes,
	}, nil
}

// PresignExpiry is how long upload URLs stay valid.
func (s *S3Service) PresignExpiry() time.Duration {
	return s.expiry
}

// ObjectKey builds verification-photos/<loanID>/<uuid>-<name>. The loan id must already
// satisfy models.ValidLoanID; the file name is sanitized.
func (s *S3Service) ObjectKey(loanID, fileName string) string {
	return ObjectKeyPrefix + loanID + "/" + uuid.New().String() + "-" + sanitizeKeySegment(fileName)
}

// OwnsKey reports whether key belongs to the loan's photo prefix.
func (s *S3Service) OwnsKey(loanID, key string) bool {
	if !models.ValidLoanID(loanID) {
		return false
	}
	prefix := ObjectKeyPrefix + loanID + "/"
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix) && !strings.Contains(key, "..")
}

// PresignUpload returns a time-limited URL the browser can PUT the photo to.
func (s *S3Service) PresignUpload(ctx context.Context, key, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := s.presigner.PresignPutObject(ctx, in, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return req.URL, nil
}

// GetObject downloads an object, refusing anything larger than the configured photo limit.
func (s *S3Service) GetObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, utils.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	if s.maxBytes > 0 && out.ContentLength != nil && *out.ContentLength > s.maxBytes {
		return nil, utils.ErrObjectTooLarge
	}

	r := io.Reader(out.Body)
	if s.maxBytes > 0 {
		r = io.LimitReader(out.Body, s.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, utils.ErrObjectTooLarge
	}
	return data, nil
}

// DeleteObject removes an object. Deleting a missing key is not an error.
func (s *S3Service) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	log.Info().Str("key", key).Msg("Deleted verification photo object")
	return nil
}

func sanitizeKeySegment(s string) string {
	s = unsafeKeyChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = dotRuns.ReplaceAllString(s, ".")
	s = strings.Trim(s, "._")
	if len(s) > 100 {
		s = s[len(s)-100:]
	}
	if s == "" {
		return "photo"
	}
	return s
}
