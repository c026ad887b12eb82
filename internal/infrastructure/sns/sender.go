package sns

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-gateway-auth/internal/config"
)

// Publisher posts notices to an SNS topic.
type Publisher interface {
	Publish(ctx context.Context, subject, message string) error
}

type publisher struct {
	client   *sns.Client
	topicARN string
}

// NewAdminPublisher returns a Publisher for the admin notification topic, or
// nil when no topic is configured.
func NewAdminPublisher(cfg *config.Config) (Publisher, error) {
	if cfg.SNSAdminTopicARN == "" {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	var opts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &publisher{client: sns.NewFromConfig(awsCfg, opts...), topicARN: cfg.SNSAdminTopicARN}, nil
}

// SNS rejects subjects over 100 characters.
const maxSubjectLen = 100

func (p *publisher) Publish(ctx context.Context, subject, message string) error {
	subject = truncateSubject(subject)
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	return err
}

// truncateSubject drops line breaks and cuts the subject to maxSubjectLen
// bytes without splitting a multi-byte rune.
func truncateSubject(subject string) string {
	subject = strings.Join(strings.Fields(subject), " ")
	if len(subject) <= maxSubjectLen {
		return subject
	}
	cut := maxSubjectLen
	for cut > 0 && !utf8.RuneStart(subject[cut]) {
		cut--
	}
	return subject[:cut]
}
