// internal/provider/push.go
package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// PushProvider publishes to an SNS platform endpoint. The device token
// stored per recipient is the endpoint ARN registered by the mobile apps.
type PushProvider struct {
	client SNSService
}

func NewPushProvider(client SNSService) *PushProvider {
	return &PushProvider{client: client}
}

func (p *PushProvider) Name() string { return "sns-push" }

func (p *PushProvider) Send(ctx context.Context, msg Message) Result {
	payload := map[string]string{
		"title": msg.Subject,
		"body":  msg.Body,
	}
	for k, v := range msg.Metadata {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Failure(p.Name(), 0, "encode push payload: "+err.Error(), false)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(msg.To),
		Message:   aws.String(string(body)),
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
