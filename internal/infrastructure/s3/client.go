package s3infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-gateway-auth/internal/config"
	"github.com/go-gateway-auth/internal/domain"
)

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(cfg *config.Config) *s3.Client {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		panic("failed to load AWS config for S3: " + err.Error())
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// TemplateStore reads email templates stored as JSON objects:
//
//	s3://<bucket>/<prefix><template_id>.json  {"subject": "...", "body": "..."}
type TemplateStore struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewTemplateStore(client *s3.Client, bucket, prefix string) *TemplateStore {
	return &TemplateStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *TemplateStore) Get(ctx context.Context, templateID string) (*domain.EmailTemplate, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(templateID)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("email template %s: %w", templateID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()
	return decodeTemplate(out.Body, templateID)
}

func (s *TemplateStore) key(templateID string) string {
	return s.prefix + templateID + ".json"
}

func decodeTemplate(r io.Reader, templateID string) (*domain.EmailTemplate, error) {
	var t domain.EmailTemplate
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode email template %s: %w", templateID, err)
	}
	if t.Subject == "" && t.Body == "" {
		return nil, fmt.Errorf("email template %s is empty: %w", templateID, domain.ErrNotFound)
	}
	t.TemplateID = templateID
	return &t, nil
}
