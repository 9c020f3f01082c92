/*
Package authsdk is the client side of the kbauth authorization server.

# Overview

An SDKClient covers the public endpoints: discovery, dynamic client
registration, the token endpoint and health. A Session wraps a token pair
and rotates it through the refresh_token grant when the access token is
close to expiry.

	client := authsdk.NewSDKClient("https://auth.example")
	if _, err := client.Discover(ctx); err != nil {
		return err
	}

	reg, err := client.Register(ctx, authsdk.RegisterRequest{
		RedirectURIs: []string{"https://app.example/callback"},
		ClientName:   "Chat Assistant",
	})

# Authorization code flow

Browsers normally carry the user through /authorize. For tests and command
line tools the Browser type drives the login and consent forms directly:

	pkce, _ := authsdk.GeneratePKCEChallenge()
	authURL := client.BuildAuthorizeURL(redirectURI, "xyz", []string{"kb:read"}, pkce)

	cb, err := client.NewBrowser().Authorize(ctx, authURL, authsdk.Credentials{
		Email:    "owner@example.com",
		Password: "correct horse battery staple",
	}, true)

	session, err := client.AuthenticateWithCode(ctx, cb.Code, redirectURI, pkce.Verifier)

AuthorizeAndExchange does all of the above in one call.

# Errors

Every error response from the server is returned as *OAuth2Error, which
matches the predefined values with errors.Is:

	if errors.Is(err, authsdk.ErrInvalidGrant) {
		// code already used or refresh token rotated away
	}

The server side uses the same values to write responses.
*/
package authsdk
