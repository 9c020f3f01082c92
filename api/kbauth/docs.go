// Package kbauth holds the OpenAPI document served at /swagger/.
//
// Regenerate with:
//
//	swag init -g internal/auth/http/router.go -o api/kbauth --outputTypes go
package kbauth

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/kbauth"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/.well-known/jwks.json": {
            "get": {
                "description": "Returns the JSON Web Key Set used to verify access tokens.",
                "produces": ["application/json"],
                "tags": ["well-known"],
                "summary": "Get JWKS",
                "responses": {
                    "200": {"description": "The JSON Web Key Set", "schema": {"$ref": "#/definitions/authsdk.JWKSResponse"}}
                }
            }
        },
        "/.well-known/oauth-authorization-server": {
            "get": {
                "description": "RFC 8414 authorization server metadata. The document is rendered at startup and served byte for byte.",
                "produces": ["application/json"],
                "tags": ["well-known"],
                "summary": "Authorization server metadata",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.AuthorizationServerMetadata"}}
                }
            }
        },
        "/.well-known/oauth-protected-resource": {
            "get": {
                "description": "RFC 9728 protected resource metadata, referenced from WWW-Authenticate challenges.",
                "produces": ["application/json"],
                "tags": ["well-known"],
                "summary": "Protected resource metadata",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.ProtectedResourceMetadata"}}
                }
            }
        },
        "/register": {
            "post": {
                "description": "Registers a new OAuth client. Identical requests create independent clients.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["OAuth2"],
                "summary": "Dynamic Client Registration",
                "parameters": [
                    {"description": "Client metadata", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Registered client", "schema": {"$ref": "#/definitions/authsdk.RegisterResponse"}},
                    "400": {"description": "invalid_redirect_uri or invalid_client_metadata", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "429": {"description": "rate_limit_exceeded", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/authorize": {
            "get": {
                "description": "Validates the authorization request and renders the owner login page.",
                "produces": ["text/html"],
                "tags": ["OAuth2"],
                "summary": "OAuth 2.1 authorization endpoint (GET)",
                "parameters": [
                    {"type": "string", "default": "code", "description": "Must be 'code'", "name": "response_type", "in": "query", "required": true},
                    {"type": "string", "description": "Registered client identifier", "name": "client_id", "in": "query", "required": true},
                    {"type": "string", "description": "Exactly one of the client's registered redirect URIs", "name": "redirect_uri", "in": "query", "required": true},
                    {"type": "string", "description": "PKCE code challenge", "name": "code_challenge", "in": "query", "required": true},
                    {"enum": ["S256"], "type": "string", "description": "PKCE method", "name": "code_challenge_method", "in": "query", "required": true},
                    {"type": "string", "description": "Space-delimited scopes, defaults to every supported scope", "name": "scope", "in": "query"},
                    {"type": "string", "description": "Opaque value echoed on the redirect", "name": "state", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Login page", "schema": {"type": "string"}},
                    "302": {"description": "Redirect to redirect_uri with error and state", "schema": {"type": "string"}},
                    "400": {"description": "Error page", "schema": {"type": "string"}}
                }
            },
            "post": {
                "description": "step=login checks the owner's credentials and renders the consent page. step=consent verifies the login ticket and redirects.",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["text/html"],
                "tags": ["OAuth2"],
                "summary": "OAuth 2.1 authorization endpoint (POST)",
                "parameters": [
                    {"enum": ["login", "consent"], "type": "string", "description": "Form step", "name": "step", "in": "formData", "required": true},
                    {"type": "string", "description": "Owner email (login step)", "name": "email", "in": "formData"},
                    {"type": "string", "description": "Owner password (login step)", "name": "password", "in": "formData"},
                    {"type": "string", "description": "TOTP code when the owner has one enrolled (login step)", "name": "otp", "in": "formData"},
                    {"type": "string", "description": "Login ticket (consent step)", "name": "ticket", "in": "formData"},
                    {"enum": ["approve", "deny"], "type": "string", "description": "Consent decision", "name": "decision", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "Login or consent page", "schema": {"type": "string"}},
                    "302": {"description": "Redirect to redirect_uri with code or error", "schema": {"type": "string"}},
                    "400": {"description": "Error page", "schema": {"type": "string"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/token": {
            "post": {
                "description": "Exchanges an authorization code (with PKCE verifier) or rotates a refresh token.",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["OAuth2"],
                "summary": "OAuth 2.1 Token Endpoint",
                "parameters": [
                    {"enum": ["authorization_code", "refresh_token"], "type": "string", "description": "Grant type", "name": "grant_type", "in": "formData", "required": true},
                    {"type": "string", "description": "Authorization code (authorization_code grant)", "name": "code", "in": "formData"},
                    {"type": "string", "description": "Redirect URI the code was issued for (authorization_code grant)", "name": "redirect_uri", "in": "formData"},
                    {"type": "string", "description": "PKCE code_verifier (authorization_code grant)", "name": "code_verifier", "in": "formData"},
                    {"type": "string", "description": "Refresh token (refresh_token grant)", "name": "refresh_token", "in": "formData"},
                    {"type": "string", "description": "Narrower scope for the new access token (refresh_token grant)", "name": "scope", "in": "formData"},
                    {"type": "string", "description": "Client identifier, unless sent with HTTP Basic", "name": "client_id", "in": "formData"},
                    {"type": "string", "description": "Client secret for client_secret_post clients", "name": "client_secret", "in": "formData"}
                ],
                "responses": {
                    "200": {
                        "description": "access_token, refresh_token, token_type, expires_in, scope",
                        "schema": {"$ref": "#/definitions/authsdk.TokenResponse"},
                        "headers": {
                            "Cache-Control": {"type": "string", "description": "no-store"},
                            "Pragma": {"type": "string", "description": "no-cache"}
                        }
                    },
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "401": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "429": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "500": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/principal": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the subject, client and scopes of the presented access token.",
                "produces": ["application/json"],
                "tags": ["Resource"],
                "summary": "Current principal",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.PrincipalResponse"}},
                    "401": {"description": "WWW-Authenticate: Bearer error=\"invalid_token\"", "schema": {"type": "string"}},
                    "403": {"description": "WWW-Authenticate: Bearer error=\"insufficient_scope\"", "schema": {"type": "string"}}
                }
            }
        },
        "/livez": {
            "get": {
                "description": "Always returns 200 OK while the process is serving, with uptime and version.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness Check Endpoint",
                "responses": {
                    "200": {"description": "status, uptime, version", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Reports whether the store answers, the signing key is loaded and, for the redis backend, the rate limiter is reachable.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness Check Endpoint",
                "responses": {
                    "200": {"description": "status, uptime, version, checks", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}},
                    "503": {"description": "status, uptime, version, checks - service not ready", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "authsdk.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid_grant"},
                "error_description": {"type": "string", "example": "the provided grant is invalid"}
            }
        },
        "authsdk.RegisterRequest": {
            "type": "object",
            "properties": {
                "redirect_uris": {"type": "array", "items": {"type": "string"}, "example": ["https://app.example/callback"]},
                "client_name": {"type": "string", "example": "Chat Assistant"},
                "token_endpoint_auth_method": {"type": "string", "example": "none"},
                "grant_types": {"type": "array", "items": {"type": "string"}},
                "response_types": {"type": "array", "items": {"type": "string"}},
                "scope": {"type": "string"}
            }
        },
        "authsdk.RegisterResponse": {
            "type": "object",
            "properties": {
                "client_id": {"type": "string", "example": "01JB2Q7M8X5K3ZJ4T6N9P0R1S2"},
                "client_secret": {"type": "string"},
                "client_id_issued_at": {"type": "integer"},
                "client_secret_expires_at": {"type": "integer"},
                "client_name": {"type": "string"},
                "redirect_uris": {"type": "array", "items": {"type": "string"}},
                "grant_types": {"type": "array", "items": {"type": "string"}},
                "response_types": {"type": "array", "items": {"type": "string"}},
                "token_endpoint_auth_method": {"type": "string"}
            }
        },
        "authsdk.TokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string", "example": "bearer"},
                "expires_in": {"type": "integer", "example": 3600},
                "refresh_token": {"type": "string"},
                "scope": {"type": "string", "example": "kb:read kb:write"}
            }
        },
        "authsdk.AuthorizationServerMetadata": {
            "type": "object",
            "properties": {
                "issuer": {"type": "string"},
                "authorization_endpoint": {"type": "string"},
                "token_endpoint": {"type": "string"},
                "registration_endpoint": {"type": "string"},
                "jwks_uri": {"type": "string"},
                "scopes_supported": {"type": "array", "items": {"type": "string"}},
                "response_types_supported": {"type": "array", "items": {"type": "string"}},
                "grant_types_supported": {"type": "array", "items": {"type": "string"}},
                "code_challenge_methods_supported": {"type": "array", "items": {"type": "string"}},
                "token_endpoint_auth_methods_supported": {"type": "array", "items": {"type": "string"}}
            }
        },
        "authsdk.ProtectedResourceMetadata": {
            "type": "object",
            "properties": {
                "resource": {"type": "string"},
                "authorization_servers": {"type": "array", "items": {"type": "string"}},
                "scopes_supported": {"type": "array", "items": {"type": "string"}},
                "bearer_methods_supported": {"type": "array", "items": {"type": "string"}}
            }
        },
        "authsdk.PrincipalResponse": {
            "type": "object",
            "properties": {
                "sub": {"type": "string", "example": "owner"},
                "client_id": {"type": "string"},
                "scopes": {"type": "array", "items": {"type": "string"}},
                "exp": {"type": "integer"}
            }
        },
        "authsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "uptime": {"type": "string"},
                "version": {"type": "string"},
                "checks": {"$ref": "#/definitions/authsdk.HealthChecks"}
            }
        },
        "authsdk.HealthChecks": {
            "type": "object",
            "properties": {
                "database": {"type": "string"},
                "signer": {"type": "string"},
                "rate_limiter": {"type": "string"}
            }
        },
        "authsdk.JWKSResponse": {
            "type": "object",
            "properties": {
                "keys": {"type": "array", "items": {"type": "object"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT access token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "kbauth Authorization Server API",
	Description:      "OAuth 2.1 authorization server for a single-owner knowledge base.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
