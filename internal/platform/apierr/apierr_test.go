package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"lendit-admin/internal/platform/apiclient"
)

func TestToHTTPStatusAndBody(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   Code
	}{
		{"invalid", ErrInvalid("x"), http.StatusBadRequest, CodeInvalidArgument},
		{"wrapped not found", fmt.Errorf("get: %w", ErrNotFound("x")), http.StatusNotFound, CodeNotFound},
		{"explicit status", &APIError{Code: CodeUpstream, Status: http.StatusUnprocessableEntity, Message: "x"}, http.StatusUnprocessableEntity, CodeUpstream},
		{"session expired", fmt.Errorf("list: %w", apiclient.ErrSessionExpired), http.StatusUnauthorized, CodeUnauthenticated},
		{"connection", fmt.Errorf("%w: dial", apiclient.ErrConnection), http.StatusBadGateway, CodeConnection},
		{"upstream 404", &apiclient.HTTPError{StatusCode: 404, Message: "No existe"}, http.StatusNotFound, CodeUpstream},
		{"upstream 500", &apiclient.HTTPError{StatusCode: 500, Message: "boom"}, http.StatusBadGateway, CodeUpstream},
		{"cancelled", context.Canceled, 499, CodeCancelled},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout},
		{"plain", errors.New("x"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ToHTTPStatus(tc.err); got != tc.status {
				t.Errorf("status = %d, want %d", got, tc.status)
			}
			b := From(tc.err)
			if b.Error.Code != tc.code {
				t.Errorf("code = %s, want %s", b.Error.Code, tc.code)
			}
			if (tc.code == CodeUnauthenticated) != (b.Redirect == LoginPath) {
				t.Errorf("redirect = %q", b.Redirect)
			}
		})
	}
}

func TestFrom_ConnectionMessage(t *testing.T) {
	b := From(fmt.Errorf("%w: dial tcp: refused", apiclient.ErrConnection))
	if b.Error.Message != "Error de conexión con el servidor" {
		t.Fatalf("message = %q", b.Error.Message)
	}
}
