package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
	StorageClass    string
}

// ReportArchive keeps exported report files in an S3-compatible bucket and
// hands out short lived download links.
type ReportArchive struct {
	bucket       string
	publicBase   string
	storageClass string
	client       *s3.Client
	presign      *s3.PresignClient
}

func NewReportArchive(ctx context.Context, cfg Config) (*ReportArchive, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "auto"
	}

	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...any) (aws.Endpoint, error) {
		if service == s3.ServiceID {
			return aws.Endpoint{URL: endpoint, HostnameImmutable: true}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			strings.TrimSpace(cfg.AccessKeyID),
			strings.TrimSpace(cfg.SecretAccessKey),
			"",
		)),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Cloudflare R2 (S3-compatible) generally requires path-style.
		o.UsePathStyle = true
	})

	return &ReportArchive{
		bucket:       strings.TrimSpace(cfg.Bucket),
		publicBase:   strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		storageClass: strings.TrimSpace(cfg.StorageClass),
		client:       client,
		presign:      s3.NewPresignClient(client),
	}, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ReportKey places a report under reports/{partner}/{yyyy}/{mm}/.
func ReportKey(partnerID string, filename string, at time.Time) string {
	name := unsafeKeyChars.ReplaceAllString(path.Base(strings.TrimSpace(filename)), "_")
	return path.Join(partnerPrefix(partnerID), at.UTC().Format("2006"), at.UTC().Format("01"), name)
}

func partnerPrefix(partnerID string) string {
	partner := unsafeKeyChars.ReplaceAllString(strings.TrimSpace(partnerID), "_")
	if partner == "" {
		partner = "unknown"
	}
	return "reports/" + partner
}

// PutReport uploads body and returns its key. Reports are private and never
// cached by intermediaries.
func (s *ReportArchive) PutReport(ctx context.Context, key string, body []byte, contentType string, filename string) (string, error) {
	key = strings.TrimLeft(key, "/")
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		ct = "application/octet-stream"
	}

	input := &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(body),
		ContentType:        aws.String(ct),
		CacheControl:       aws.String("private, no-store"),
		ContentDisposition: aws.String(`attachment; filename="` + path.Base(filename) + `"`),
	}

	if sc := parseStorageClass(s.storageClass); sc != nil {
		input.StorageClass = *sc
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return key, nil
}

// PresignGet returns a time limited download URL for key.
func (s *ReportArchive) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	key = strings.TrimLeft(key, "/")
	if expires <= 0 {
		expires = 15 * time.Minute
	}

	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

// ListReports returns the archived keys of one partner in key order, which
// is oldest month first.
func (s *ReportArchive) ListReports(ctx context.Context, partnerID string) ([]string, error) {
	prefix := partnerPrefix(partnerID) + "/"
	var out []string
	var token *string
	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Contents {
			if item.Key == nil {
				continue
			}
			out = append(out, *item.Key)
		}
		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}
		token = resp.NextContinuationToken
	}
	return out, nil
}

func parseStorageClass(v string) *types.StorageClass {
	v = strings.TrimSpace(strings.ToUpper(v))
	if v == "" {
		return nil
	}
	sc := types.StorageClass(v)
	return &sc
}
