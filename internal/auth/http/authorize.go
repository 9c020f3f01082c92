package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/aussiebroadwan/kbauth/pkg/httpx"
	"github.com/aussiebroadwan/kbauth/pkg/slogx"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Shown for every rejected login so the page never reveals which factor failed.
const loginFailedMessage = "Invalid email, password or one-time code."

const ticketExpiredMessage = "Your sign-in expired. Please sign in again."

// AuthorizeHandler renders the interactive login and consent pages.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
}

type pageData struct {
	Title      string
	Action     string
	ClientName string
	Params     service.AuthorizeParams
	Scopes     []string
	Ticket     string
	RequireOTP bool
	Error      string
}

// HandleGet starts an authorization request.
//
//	@Summary		OAuth 2.1 authorization endpoint (GET)
//	@Description	Validates the authorization request and renders the owner login page.
//	@Description	Failures before the redirect_uri is verified render an HTML error page (400).
//	@Description	Later failures redirect to redirect_uri with error and state.
//	@Tags			OAuth2
//	@Produce		html
//	@Param			response_type			query		string	true	"Must be 'code'"	default(code)
//	@Param			client_id				query		string	true	"Registered client identifier"
//	@Param			redirect_uri			query		string	true	"Exactly one of the client's registered redirect URIs"
//	@Param			code_challenge			query		string	true	"PKCE code challenge"	example("E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM")
//	@Param			code_challenge_method	query		string	true	"PKCE method"			Enums(S256)
//	@Param			scope					query		string	false	"Space-delimited scopes, defaults to every supported scope"	example("kb:read kb:write")
//	@Param			state					query		string	false	"Opaque value echoed on the redirect"
//	@Success		200						{string}	string	"Login page"
//	@Success		302						{string}	string	"Redirect to redirect_uri with error and state"
//	@Failure		400						{string}	string	"Error page"
//	@Router			/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	httpx.NoCache(w)
	httpx.NoFrame(w)

	p := paramsFromValues(r.URL.Query())
	req, err := h.AuthorizeService.Begin(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderLogin(w, r, req, "")
}

// HandlePost handles the login and consent forms, told apart by the hidden
// step field.
//
//	@Summary		OAuth 2.1 authorization endpoint (POST)
//	@Description	step=login checks the owner's credentials and renders the consent page.
//	@Description	step=consent verifies the login ticket and redirects with a code or access_denied.
//	@Tags			OAuth2
//	@Accept			x-www-form-urlencoded
//	@Produce		html
//	@Param			step		formData	string	true	"Form step"	Enums(login, consent)
//	@Param			email		formData	string	false	"Owner email (login step)"
//	@Param			password	formData	string	false	"Owner password (login step)"
//	@Param			otp			formData	string	false	"TOTP code when the owner has one enrolled (login step)"
//	@Param			ticket		formData	string	false	"Login ticket (consent step)"
//	@Param			decision	formData	string	false	"Consent decision"	Enums(approve, deny)
//	@Success		200			{string}	string	"Login or consent page"
//	@Success		302			{string}	string	"Redirect to redirect_uri with code or error"
//	@Failure		400			{string}	string	"Error page"
//	@Failure		429			{object}	authsdk.ErrorResponse
//	@Router			/authorize [post]
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	httpx.NoCache(w)
	httpx.NoFrame(w)

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		h.renderError(w, r, http.StatusBadRequest, "The form must be submitted as application/x-www-form-urlencoded.")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	p := paramsFromValues(r.PostForm)
	switch r.PostForm.Get("step") {
	case "login":
		h.login(w, r, p)
	case "consent":
		h.consent(w, r, p)
	default:
		h.renderError(w, r, http.StatusBadRequest, "Unknown form step.")
	}
}

func (h *AuthorizeHandler) login(w http.ResponseWriter, r *http.Request, p service.AuthorizeParams) {
	ctx := r.Context()

	prompt, err := h.AuthorizeService.SubmitLogin(ctx, p,
		strings.TrimSpace(r.PostForm.Get("email")),
		r.PostForm.Get("password"),
		strings.TrimSpace(r.PostForm.Get("otp")),
	)
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.restartLogin(w, r, p, loginFailedMessage)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "consent.html", pageData{
		Title:      "Authorize access",
		Action:     service.PathAuthorize,
		ClientName: clientName(prompt.Request),
		Params:     prompt.Request.Params,
		Scopes:     prompt.Request.Scope,
		Ticket:     prompt.Ticket,
	})
}

func (h *AuthorizeHandler) consent(w http.ResponseWriter, r *http.Request, p service.AuthorizeParams) {
	approve := r.PostForm.Get("decision") == "approve"

	location, err := h.AuthorizeService.SubmitConsent(r.Context(), p, r.PostForm.Get("ticket"), approve)
	if errors.Is(err, service.ErrInvalidTicket) {
		h.restartLogin(w, r, p, ticketExpiredMessage)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// restartLogin re-validates p and shows the login form again with msg.
func (h *AuthorizeHandler) restartLogin(w http.ResponseWriter, r *http.Request, p service.AuthorizeParams, msg string) {
	req, err := h.AuthorizeService.Begin(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderLogin(w, r, req, msg)
}

func (h *AuthorizeHandler) renderLogin(w http.ResponseWriter, r *http.Request, req *service.AuthorizeRequest, msg string) {
	h.render(w, r, http.StatusOK, "login.html", pageData{
		Title:      "Sign in",
		Action:     service.PathAuthorize,
		ClientName: clientName(req),
		Params:     req.Params,
		Scopes:     req.Scope,
		RequireOTP: h.AuthorizeService.Owner.RequiresOTP(),
		Error:      msg,
	})
}

// fail redirects errors the client may see and renders the rest.
func (h *AuthorizeHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if re, ok := service.IsRedirectError(err); ok {
		http.Redirect(w, r, re.Location(), http.StatusFound)
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		h.renderError(w, r, http.StatusBadRequest, "The request is missing client_id or redirect_uri.")
	case errors.Is(err, service.ErrUnknownClient):
		h.renderError(w, r, http.StatusBadRequest, "The client is not registered.")
	case errors.Is(err, service.ErrRedirectURIMismatch):
		h.renderError(w, r, http.StatusBadRequest, "The redirect_uri is not registered for this client.")
	default:
		slogx.FromContext(r.Context()).Error("authorize failed", "err", err)
		h.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

func (h *AuthorizeHandler) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.render(w, r, status, "error.html", pageData{Title: "Authorization failed", Error: msg})
}

func (h *AuthorizeHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		slogx.FromContext(r.Context()).Error("failed to render page", "template", name, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func paramsFromValues(v url.Values) service.AuthorizeParams {
	return service.AuthorizeParams{
		ResponseType:        v.Get("response_type"),
		ClientID:            v.Get("client_id"),
		RedirectURI:         v.Get("redirect_uri"),
		CodeChallenge:       v.Get("code_challenge"),
		CodeChallengeMethod: v.Get("code_challenge_method"),
		Scope:               v.Get("scope"),
		State:               v.Get("state"),
	}
}

func clientName(req *service.AuthorizeRequest) string {
	if req.Client.Name != "" {
		return req.Client.Name
	}
	return req.Client.ID
}
