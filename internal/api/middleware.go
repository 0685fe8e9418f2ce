package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/http/response"
)

// EnvelopeVersion is the wire version stamped on every API envelope. It is
// shared with the raw streaming routes so both surfaces speak one format.
const EnvelopeVersion = response.EnvelopeVersion

// APIEnvelope wraps every successful response body and every simple error.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIErrorEnvelope wraps errors that carry a machine-readable code or
// structured details, such as validation failures listing unknown genres.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps huma response bodies in the versioned envelope.
// Append it to the huma config's Transformers before creating the API.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		if apiErr, ok := v.(*APIError); ok && (apiErr.Code != "" || apiErr.Details != nil) {
			return APIErrorEnvelope{
				Version: EnvelopeVersion,
				Success: false,
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: apiErr.Details,
			}, nil
		}

		if err, ok := v.(error); ok {
			return APIEnvelope{
				Version: EnvelopeVersion,
				Success: false,
				Error:   err.Error(),
			}, nil
		}

		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Data:    v,
		}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}
