package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

type runRequest struct {
	Source        string `json:"source" validate:"required"`
	BatchSize     int    `json:"batchSize" validate:"gte=1,lte=100"`
	MaxCandidates int    `json:"maxCandidates" validate:"gte=0"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := runRequest{
		Source:    "archive",
		BatchSize: 10,
	}

	assert.NoError(t, v.Validate(req))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name       string
		req        runRequest
		wantField  string
	}{
		{
			name:      "missing required field",
			req:       runRequest{Source: "", BatchSize: 10},
			wantField: "source",
		},
		{
			name:      "batch size too small",
			req:       runRequest{Source: "archive", BatchSize: 0},
			wantField: "batchSize",
		},
		{
			name:      "batch size too large",
			req:       runRequest{Source: "archive", BatchSize: 500},
			wantField: "batchSize",
		},
		{
			name:      "negative cap",
			req:       runRequest{Source: "archive", BatchSize: 10, MaxCandidates: -1},
			wantField: "maxCandidates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			assert.Error(t, err)

			var domainErr *errors.Error
			if assert.True(t, errors.As(err, &domainErr)) {
				assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
				fields, ok := domainErr.Details.(map[string]string)
				if assert.True(t, ok, "details should carry field errors") {
					assert.Contains(t, fields, tt.wantField)
				}
			}
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(runRequest{Source: "", BatchSize: 10})
	assert.Error(t, err)

	var domainErr *errors.Error
	assert.True(t, errors.As(err, &domainErr))

	// Should use JSON tag name "source", not struct field name "Source"
	fields := domainErr.Details.(map[string]string)
	assert.Contains(t, fields, "source")
	assert.NotContains(t, fields, "Source")
}
