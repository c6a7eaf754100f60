// internal/provider/email.go
package provider

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the slice of the SES client the email provider needs; tests
// substitute a mock.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailProvider sends over AWS SES.
type EmailProvider struct {
	client SESService
	from   string
}

func NewEmailProvider(client SESService, fromEmail string) *EmailProvider {
	return &EmailProvider{client: client, from: fromEmail}
}

func (p *EmailProvider) Name() string { return "ses" }

func (p *EmailProvider) Send(ctx context.Context, msg Message) Result {
	out, err := p.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body)},
				Html: &types.Content{Data: aws.String(msg.Body)},
			},
		},
		Source: aws.String(p.from),
	})
	if err != nil {
		return failureFromError(p.Name(), err)
	}

	response := ""
	if out.MessageId != nil {
		response = *out.MessageId
	}
	return Success(p.Name(), http.StatusOK, response)
}
