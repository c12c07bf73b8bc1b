package testutil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/httputil"
)

func TestErrorResponseMatchesWriteError(t *testing.T) {
	Given(t, "errors written by httputil.WriteError", func(t *testing.T) {
		When(t, "the error is coded", func(t *testing.T) {
			rr := httptest.NewRecorder()
			httputil.WriteError(rr, dErrors.New(dErrors.CodeOverflow, "value overflowed"))

			Then(t, "code and description decode strictly", func(t *testing.T) {
				AssertErrorDescription(t, rr, http.StatusConflict, "overflow", "value overflowed")
			})
		})

		When(t, "the error is internal", func(t *testing.T) {
			rr := httptest.NewRecorder()
			httputil.WriteError(rr, errors.New("dial tcp: connection refused"))

			Then(t, "only the code is present", func(t *testing.T) {
				AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
				assert.Empty(t, UnmarshalErrorResponse(t, rr).ErrorDescription)
			})
		})
	})
}

func TestNewJSONRequest(t *testing.T) {
	req := WithBearer(NewJSONRequest(t, http.MethodPost, "/registries/dense/members",
		map[string]string{"account": "a"}), "tok")

	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))

	rr := DoRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"path": r.URL.Path})
	}), req)
	AssertStatusOK(t, rr)
	body := UnmarshalResponse[map[string]string](t, rr)
	require.NotNil(t, body)
	assert.Equal(t, "/registries/dense/members", (*body)["path"])
}
