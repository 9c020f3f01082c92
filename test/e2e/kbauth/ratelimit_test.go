package kbauth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/kbauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// Rate limit tests run with the production profiles, not the relaxed
// limits from baseEnv.
func defaultLimits() map[string]string {
	return map[string]string{
		"RATELIMIT_STRICT_REQUESTS":   "",
		"RATELIMIT_STRICT_WINDOW_SEC": "",
		"RATELIMIT_STRICT_BURST":      "",
		"RATELIMIT_MODERATE_REQUESTS": "",
		"RATELIMIT_MODERATE_BURST":    "",
	}
}

func TestRegisterRateLimit(t *testing.T) {
	baseURL := startKBAuth(t, containerOptions{env: defaultLimits()})
	ctx := context.Background()

	var limited *authsdk.OAuth2Error
	for i := range 20 {
		_, err := authsdk.NewSDKClient(baseURL).Register(ctx, authsdk.RegisterRequest{
			RedirectURIs: []string{redirectURI},
		})
		if err == nil {
			continue
		}
		require.True(t, errors.As(err, &limited), "request %d: %v", i, err)
		break
	}
	require.NotNil(t, limited, "strict limit should trip within 20 registrations")
	require.Equal(t, http.StatusTooManyRequests, limited.StatusCode)
	require.Equal(t, authsdk.ErrorCodeRateLimitExceeded, limited.Code)

	// other scopes keep their own budget
	_, err := authsdk.NewSDKClient(baseURL).GetLiveness(ctx)
	require.NoError(t, err)
}

func TestLoginRateLimit(t *testing.T) {
	baseURL := startKBAuth(t, containerOptions{env: defaultLimits()})
	ctx := context.Background()

	client := registerClient(t, baseURL, "")
	creds := ownerCredentials()
	creds.Password = "guess"

	var tripped bool
	for range 20 {
		_, err := client.AuthorizeAndExchange(ctx, redirectURI, nil, creds)
		require.Error(t, err)
		if errors.Is(err, authsdk.ErrLoginRejected) {
			continue
		}
		var oauthErr *authsdk.OAuth2Error
		if errors.As(err, &oauthErr) && oauthErr.StatusCode == http.StatusTooManyRequests {
			tripped = true
			break
		}
		var pageErr *authsdk.PageError
		if errors.As(err, &pageErr) && pageErr.StatusCode == http.StatusTooManyRequests {
			tripped = true
			break
		}
		t.Fatalf("unexpected error: %v", err)
	}
	require.True(t, tripped, "password guessing should be rate limited")
}
