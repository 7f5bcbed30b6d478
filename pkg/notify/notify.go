package notify

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// OTPMailer emails delivery confirmation codes to customers via AWS SESv2.
type OTPMailer struct {
	client *sesv2.Client
	from   string
}

func NewOTPMailer(ctx context.Context, region, fromAddress string) (*OTPMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("notify: load aws config: %w", err)
	}
	return &OTPMailer{
		client: sesv2.NewFromConfig(cfg),
		from:   fromAddress,
	}, nil
}

// SendOTP sends the 6-digit delivery code to the customer.
func (m *OTPMailer) SendOTP(ctx context.Context, toEmail, customerName, orderNumber, code string) error {
	subject := fmt.Sprintf("Delivery code for order %s", orderNumber)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour delivery agent has arrived. Share this code to confirm receipt of order %s:\n\n%s\n\nThe code expires in 10 minutes.",
		customerName, orderNumber, code,
	)

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &m.from,
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Text: &types.Content{Data: &body},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("notify: send email: %w", err)
	}
	return nil
}
