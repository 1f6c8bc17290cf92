package medicover

import (
	"context"
	"errors"
	"fmt"
	"medicover-assist/lib/htmlutil"

	"go.opentelemetry.io/otel/codes"
)

const (
	logOnPath       = "/Users/Account/LogOn"
	logOffPath      = "/Users/Account/LogOff"
	oauthSignInPath = "/Medicover.OpenIdConnectAuthentication/Account/OAuthSignIn"

	loginModelSelector = "#modelJson"
)

// hidden fields of the page the login form posts back, they are forwarded
// as-is to the portal to finish the handshake
var oauthFields = []string{"code", "id_token", "scope", "state", "session_state"}

type loginModel struct {
	AntiForgery *struct {
		Value string `json:"value"`
	} `json:"antiForgery"`
}

// Login authenticates the session with a username and password.
//
// No retries are made, any unexpected page structure or non-2xx response
// fails the whole login.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	// a new login is a new session
	c.antiForgery = ""

	err := c.login(ctx, username, password)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportBroken(report_client_login, err)
		return fmt.Errorf("medicover: login: %w", err)
	}
	return nil
}

func (c *Client) login(ctx context.Context, username, password string) error {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(logOnPath)
	if err != nil {
		return fmt.Errorf("fetch login page: %w", err)
	}
	err = checkStatus(res)
	if err != nil {
		return fmt.Errorf("fetch login page: %w", err)
	}
	page, err := c.parsePage(res.Body())
	if err != nil {
		return fmt.Errorf("parse login page: %w", err)
	}

	var model loginModel
	err = htmlutil.EmbeddedJSON(page, loginModelSelector, &model)
	if errors.Is(err, htmlutil.ErrNotFound) {
		return fmt.Errorf("login page: %w: %w", ErrMissingElement, err)
	}
	if err != nil {
		return fmt.Errorf("login page: %w", err)
	}
	if model.AntiForgery == nil || model.AntiForgery.Value == "" {
		return fmt.Errorf("login page: %w", missingField("antiForgery.value"))
	}

	// the login page is reached through redirects, the form must be posted
	// to wherever they ended up
	formUrl := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		formUrl = res.RawResponse.Request.URL.String()
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username":   username,
			"password":   password,
			"idsrv.xsrf": model.AntiForgery.Value,
		}).
		Post(formUrl)
	if err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}
	err = checkStatus(res)
	if err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}
	page, err = c.parsePage(res.Body())
	if err != nil {
		return fmt.Errorf("parse sign-in form: %w", err)
	}

	signIn := make(map[string]string, len(oauthFields))
	for _, name := range oauthFields {
		value, err := htmlutil.InputValue(page, name)
		if err != nil {
			return fmt.Errorf("sign-in form: %w: %w", ErrMissingElement, err)
		}
		signIn[name] = value
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(signIn).
		Post(oauthSignInPath)
	if err != nil {
		return fmt.Errorf("oauth sign-in: %w", err)
	}
	err = checkStatus(res)
	if err != nil {
		return fmt.Errorf("oauth sign-in: %w", err)
	}

	c.tel.ReportDebug("logged in", len(c.Cookies()))
	return nil
}

// Logout ends the session and forgets its anti-forgery token.
func (c *Client) Logout(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Logout")
	defer span.End()

	c.antiForgery = ""

	res, err := c.Http.R().
		SetContext(ctx).
		Get(logOffPath)
	if err == nil {
		err = checkStatus(res)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportBroken(report_client_logout, err)
		return fmt.Errorf("medicover: logout: %w", err)
	}
	return nil
}

// LoggedIn logs in, runs fn and logs out. Once login succeeded, logout is
// issued exactly once no matter how fn exits, including panics and context
// cancellation. The errors of fn and logout are joined.
func (c *Client) LoggedIn(ctx context.Context, username, password string, fn func(ctx context.Context) error) (err error) {
	err = c.Login(ctx, username, password)
	if err != nil {
		return err
	}
	defer func() {
		logoutErr := c.Logout(context.WithoutCancel(ctx))
		if logoutErr != nil {
			err = errors.Join(err, logoutErr)
		}
	}()
	return fn(ctx)
}
