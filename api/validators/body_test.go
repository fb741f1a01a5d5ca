package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
)

type decisionBody struct {
	Status   string `json:"status" validate:"required,oneof=accepted rejected"`
	Quantity int    `json:"quantity" validate:"omitempty,min=1,max=99"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	var got decisionBody
	require.NoError(t, DecodeJSONBody(post(`{"status":"accepted","quantity":2}`), &got))
	assert.Equal(t, decisionBody{Status: "accepted", Quantity: 2}, got)
}

func TestDecodeJSONBodyRejections(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		message string
	}{
		{"empty", ``, "request body required"},
		{"malformed", `{"status":`, "request body is not valid JSON"},
		{"unknown field", `{"status":"accepted","price":1}`, "invalid request body"},
		{"wrong type", `{"status":"accepted","quantity":"two"}`, "invalid request body"},
		{"trailing value", `{"status":"accepted"}{"status":"rejected"}`, "request body must contain a single JSON object"},
		{"too large", `{"status":"` + strings.Repeat("a", maxBodyBytes) + `"}`, "request body too large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dest decisionBody
			err := DecodeJSONBody(post(tc.body), &dest)

			typed := pkgerrors.As(err)
			require.NotNil(t, typed, "got %v", err)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			assert.Equal(t, tc.message, typed.Message())
		})
	}
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	var dest decisionBody
	err := DecodeJSONBody(post(`{"status":"countered","quantity":120}`), &dest)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "validation failed", typed.Message())
	assert.Equal(t, map[string]string{
		"status":   "must be one of: accepted rejected",
		"quantity": "must be at most 99",
	}, typed.Details())
}

func TestDecodeJSONBodyTrailingWhitespaceIsFine(t *testing.T) {
	var dest decisionBody
	assert.NoError(t, DecodeJSONBody(post("{\"status\":\"rejected\"}\n\n"), &dest))
}
