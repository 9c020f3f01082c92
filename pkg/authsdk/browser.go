package authsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ErrLoginRejected is returned when the server re-renders the login form,
// i.e. the credentials were not accepted.
var ErrLoginRejected = errors.New("authsdk: login rejected")

// PageError is an HTML error page rendered by /authorize instead of a
// redirect (unknown client, unregistered redirect URI).
type PageError struct {
	StatusCode int
	Message    string
}

func (e *PageError) Error() string {
	return fmt.Sprintf("authorize page error (%d): %s", e.StatusCode, e.Message)
}

// Credentials are typed into the login form.
type Credentials struct {
	Email    string
	Password string
	OTP      string
}

// Browser drives the interactive login and consent pages the way a user
// agent would, without following the final redirect. It is meant for tests
// and command line tooling.
type Browser struct {
	client *http.Client
}

// NewBrowser returns a Browser sharing c's transport and timeout.
func (c *SDKClient) NewBrowser() *Browser {
	return &Browser{client: &http.Client{
		Transport: c.HTTPClient.Transport,
		Timeout:   c.HTTPClient.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

// Authorize opens authorizeURL, logs in with creds and answers the consent
// page. It returns the callback the server redirected to.
func (b *Browser) Authorize(ctx context.Context, authorizeURL string, creds Credentials, approve bool) (*AuthorizationCallback, error) {
	page, err := b.do(ctx, http.MethodGet, authorizeURL, nil)
	if err != nil {
		return nil, err
	}
	if page.redirect != "" {
		return ParseAuthorizationCallback(page.redirect)
	}

	login, err := page.form("login")
	if err != nil {
		return nil, err
	}
	login.values.Set("email", creds.Email)
	login.values.Set("password", creds.Password)
	if creds.OTP != "" {
		login.values.Set("otp", creds.OTP)
	}

	page, err = b.do(ctx, http.MethodPost, login.action, login.values)
	if err != nil {
		return nil, err
	}
	if page.redirect != "" {
		return ParseAuthorizationCallback(page.redirect)
	}
	if page.step() == "login" {
		return nil, fmt.Errorf("%w: %s", ErrLoginRejected, page.errorText)
	}

	consent, err := page.form("consent")
	if err != nil {
		return nil, err
	}
	if approve {
		consent.values.Set("decision", "approve")
	} else {
		consent.values.Set("decision", "deny")
	}

	page, err = b.do(ctx, http.MethodPost, consent.action, consent.values)
	if err != nil {
		return nil, err
	}
	if page.redirect == "" {
		if page.step() == "login" {
			return nil, fmt.Errorf("%w: %s", ErrLoginRejected, page.errorText)
		}
		return nil, &PageError{StatusCode: page.status, Message: page.errorText}
	}
	return ParseAuthorizationCallback(page.redirect)
}

type page struct {
	url       *url.URL
	status    int
	redirect  string
	forms     []*htmlForm
	errorText string
}

type htmlForm struct {
	action string
	values url.Values
}

func (p *page) step() string {
	if len(p.forms) == 0 {
		return ""
	}
	return p.forms[0].values.Get("step")
}

func (p *page) form(step string) (*htmlForm, error) {
	for _, f := range p.forms {
		if f.values.Get("step") == step {
			return f, nil
		}
	}
	if p.status >= 400 || p.errorText != "" {
		return nil, &PageError{StatusCode: p.status, Message: p.errorText}
	}
	return nil, fmt.Errorf("authsdk: no %s form on page", step)
}

func (b *Browser) do(ctx context.Context, method, target string, form url.Values) (*page, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	p := &page{url: req.URL, status: resp.StatusCode}
	if resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusSeeOther {
		p.redirect = resp.Header.Get("Location")
		return p, nil
	}

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		raw, _ := io.ReadAll(resp.Body)
		if err := parseErrorResponse(resp, raw); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("authsdk: unexpected %q response", resp.Header.Get("Content-Type"))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	p.scan(doc)
	return p, nil
}

// scan collects forms and the first element with class "error".
func (p *page) scan(n *html.Node) {
	if n.Type == html.ElementNode {
		switch {
		case n.Data == "form":
			p.forms = append(p.forms, p.parseForm(n))
			return
		case p.errorText == "" && hasClass(n, "error"):
			p.errorText = strings.TrimSpace(textContent(n))
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.scan(c)
	}
}

func (p *page) parseForm(n *html.Node) *htmlForm {
	f := &htmlForm{action: p.url.String(), values: url.Values{}}
	if action := attr(n, "action"); action != "" {
		if u, err := p.url.Parse(action); err == nil {
			f.action = u.String()
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if p.errorText == "" && hasClass(n, "error") {
				p.errorText = strings.TrimSpace(textContent(n))
			}
			if n.Data == "input" && attr(n, "type") == "hidden" && attr(n, "name") != "" {
				f.values.Set(attr(n, "name"), attr(n, "value"))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return f
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
