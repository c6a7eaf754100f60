// internal/admission/validate_test.go
package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-pipeline/internal/common/errors"
	"notification-pipeline/internal/models"
)

func validRequest() *Request {
	return &Request{
		TenantID:    "tenant-1",
		RecipientID: "rcpt-1",
		Channel:     models.ChannelEmail,
		Body:        "hello",
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Request)
		wantErr bool
	}{
		{
			name:    "valid minimal request",
			mutate:  func(r *Request) {},
			wantErr: false,
		},
		{
			name:    "missing tenant",
			mutate:  func(r *Request) { r.TenantID = "" },
			wantErr: true,
		},
		{
			name:    "unknown channel",
			mutate:  func(r *Request) { r.Channel = "FAX" },
			wantErr: true,
		},
		{
			name:    "missing channel",
			mutate:  func(r *Request) { r.Channel = "" },
			wantErr: true,
		},
		{
			name: "no recipient identifier",
			mutate: func(r *Request) {
				r.RecipientID = ""
				r.Email = ""
				r.Phone = ""
			},
			wantErr: true,
		},
		{
			name: "email lookup instead of recipient id",
			mutate: func(r *Request) {
				r.RecipientID = ""
				r.Email = "ada@example.com"
			},
			wantErr: false,
		},
		{
			name: "phone lookup instead of recipient id",
			mutate: func(r *Request) {
				r.RecipientID = ""
				r.Phone = "+15551234567"
			},
			wantErr: false,
		},
		{
			name:    "unknown priority",
			mutate:  func(r *Request) { r.Priority = "URGENT" },
			wantErr: true,
		},
		{
			name:    "valid priority",
			mutate:  func(r *Request) { r.Priority = models.PriorityCritical },
			wantErr: false,
		},
		{
			name: "variables with values",
			mutate: func(r *Request) {
				r.Variables = map[string]string{"name": "Ada"}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			err := ValidateRequest(req)
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, errors.ErrCodeInvalidRequest, err.Code)
				assert.False(t, err.Retryable)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}
