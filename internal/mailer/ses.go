// Package mailer provides transports for outbound campaign email.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/cymasphere/campaign-engine/internal/domain"
	"github.com/cymasphere/campaign-engine/internal/pkg/logger"
)

// SESTransport sends emails via AWS SES using the SDK v2.
type SESTransport struct {
	region string
	client *sesv2.Client
}

// NewSESTransport creates an SES transport with static credentials.
func NewSESTransport(accessKey, secretKey, region string) (*SESTransport, error) {
	if region == "" {
		region = "us-east-1"
	}
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("SES credentials not configured")
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize AWS config: %w", err)
	}

	return &SESTransport{region: region, client: sesv2.NewFromConfig(cfg)}, nil
}

// Send delivers a single message through AWS SES. Transport-level
// rejections come back as an unsuccessful SendResult, not an error, so
// the dispatcher can record the failure and keep the batch moving.
func (t *SESTransport) Send(ctx context.Context, msg *domain.Message) (*domain.SendResult, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.Email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTMLContent), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("campaign_id"), Value: aws.String(msg.CampaignID)},
			{Name: aws.String("send_id"), Value: aws.String(msg.SendID)},
		},
	}

	if msg.TextContent != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.TextContent), Charset: aws.String("UTF-8")}
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	result, err := t.client.SendEmail(ctx, input)
	if err != nil {
		logger.Warn("SES send rejected", "recipient", msg.Email, "error", err.Error())
		return &domain.SendResult{Success: false, Error: err.Error()}, nil
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}

	logger.Debug("SES send accepted", "recipient", msg.Email, "message_id", messageID)

	return &domain.SendResult{
		Success:   true,
		MessageID: messageID,
		SentAt:    time.Now(),
	}, nil
}
