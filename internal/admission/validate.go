// internal/admission/validate.go
package admission

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"notification-pipeline/internal/common/errors"
)

// requestSchema is the shape check applied before the admission steps run.
// Semantic checks (recipient existence, template lookup) happen later.
const requestSchema = `{
	"type": "object",
	"properties": {
		"tenantId":       {"type": "string", "minLength": 1},
		"recipientId":    {"type": "string"},
		"email":          {"type": "string"},
		"phone":          {"type": "string"},
		"channel":        {"type": "string", "enum": ["EMAIL", "SMS", "PUSH"]},
		"subject":        {"type": "string"},
		"body":           {"type": "string"},
		"templateId":     {"type": "string"},
		"variables":      {"type": "object", "additionalProperties": {"type": "string"}},
		"priority":       {"type": "string", "enum": ["LOW", "NORMAL", "HIGH", "CRITICAL"]},
		"idempotencyKey": {"type": "string"},
		"scheduledAt":    {"type": "string"},
		"maxRetries":     {"type": "integer", "minimum": 0}
	},
	"required": ["tenantId", "channel"]
}`

var schemaLoader = gojsonschema.NewStringLoader(requestSchema)

// ValidateRequest checks the request envelope against the JSON schema.
func ValidateRequest(req *Request) *errors.StandardError {
	doc, err := json.Marshal(req)
	if err != nil {
		return errors.NewInvalidRequestError(err.Error())
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return errors.NewInvalidRequestError(err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return errors.NewInvalidRequestError(strings.Join(details, "; "))
	}

	if req.RecipientID == "" && req.Email == "" && req.Phone == "" {
		return errors.NewInvalidRequestError("one of recipientId, email or phone is required")
	}
	return nil
}
