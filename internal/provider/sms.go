// internal/provider/sms.go
package provider

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSService is the slice of the SNS client the SMS and push providers need.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSProvider sends over AWS SNS direct-to-phone publish.
type SMSProvider struct {
	client   SNSService
	senderID string
}

func NewSMSProvider(client SNSService, senderID string) *SMSProvider {
	return &SMSProvider{client: client, senderID: senderID}
}

func (p *SMSProvider) Name() string { return "sns-sms" }

func (p *SMSProvider) Send(ctx context.Context, msg Message) Result {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(msg.To),
		Message:     aws.String(msg.Body),
	}
	if p.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(p.senderID),
			},
		}
	}

	out, err := p.client.Publish(ctx, input)
	if err != nil {
		return failureFromError(p.Name(), err)
	}

	response := ""
	if out.MessageId != nil {
		response = *out.MessageId
	}
	return Success(p.Name(), http.StatusOK, response)
}
