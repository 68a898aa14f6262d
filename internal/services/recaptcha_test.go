package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyV2Verdicts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.FormValue("response") {
		case "good-token":
			w.Write([]byte(`{"success":true}`))
		default:
			w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
		}
	}))
	defer srv.Close()

	v := NewRecaptchaVerifier("secret")
	v.Endpoint = srv.URL
	ctx := context.Background()

	ok, reason, err := v.VerifyV2(ctx, "good-token", "203.0.113.7")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, reason)

	ok, reason, err = v.VerifyV2(ctx, "bad-token", "")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "invalid-input-response", reason)
}

func TestVerifyV2FailsClosedWithoutConfig(t *testing.T) {
	ctx := context.Background()

	ok, reason, err := NewRecaptchaVerifier("").VerifyV2(ctx, "token", "")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "missing_secret", reason)

	ok, reason, err = NewRecaptchaVerifier("secret").VerifyV2(ctx, "  ", "")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "missing_token", reason)
}
