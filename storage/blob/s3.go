package blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
)

// S3Store keeps blobs in a single bucket of AWS S3 or an S3-compatible server (MinIO).
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

var _ core.BlobStore = (*S3Store)(nil) // interface compliance check

// S3Option tweaks the client, e.g. static credentials or a custom HTTP client.
type S3Option func(*config.LoadOptions) error

// WithStaticCredentials skips the default credentials chain.
func WithStaticCredentials(key, secret string) S3Option {
	return S3Option(config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")))
}

// WithHTTPClient sends every request through client.
func WithHTTPClient(client *http.Client) S3Option {
	return S3Option(config.WithHTTPClient(client))
}

func NewS3Store(ctx context.Context, conf core.S3Config, opts ...S3Option) (*S3Store, error) {
	if conf.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := conf.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	for _, opt := range opts {
		loadOpts = append(loadOpts, opt)
	}
	awsConf, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}

	client := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		o.UsePathStyle = conf.PathStyle
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
	})
	return &S3Store{client: client, bucket: conf.Bucket, baseURL: objectBaseURL(conf, region)}, nil
}

// objectBaseURL is the public prefix of the bucket's objects.
func objectBaseURL(conf core.S3Config, region string) string {
	if conf.Endpoint != "" {
		u, err := url.Parse(conf.Endpoint)
		if err == nil && u.Host != "" {
			if conf.PathStyle {
				return strings.TrimRight(u.String(), "/") + "/" + conf.Bucket
			}
			return u.Scheme + "://" + conf.Bucket + "." + u.Host
		}
	}
	if conf.PathStyle {
		return "https://s3." + region + ".amazonaws.com/" + conf.Bucket
	}
	return "https://" + conf.Bucket + ".s3." + region + ".amazonaws.com"
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	// payload signing needs a seekable body
	body, ok := r.(io.ReadSeeker)
	if !ok {
		content, err := io.ReadAll(r)
		if err != nil {
			return "", errors.Wrap(err, "reading blob")
		}
		body = bytes.NewReader(content)
	}
	input := &s3.PutObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key), Body: body}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", errors.Wrap(err, "uploading blob")
	}
	return joinURL(s.baseURL, key), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	return errors.Wrap(err, "deleting blob")
}
