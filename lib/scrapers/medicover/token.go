package medicover

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/codes"
)

const (
	antiForgeryCookie = "__RequestVerificationToken"
	myVisitsPath      = "/MyVisits"
)

// antiForgeryToken returns the token the portal requires on slot searches.
// It is fetched once per session and never refreshed, a stale token makes
// the requests using it fail instead.
func (c *Client) antiForgeryToken(ctx context.Context) (string, error) {
	if c.antiForgery != "" {
		return c.antiForgery, nil
	}

	ctx, span := tracer.Start(ctx, "client:antiForgeryToken")
	defer span.End()

	token, err := c.fetchAntiForgeryToken(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportBroken(report_client_anti_forgery_token, err)
		return "", fmt.Errorf("anti-forgery token: %w", err)
	}
	c.antiForgery = token
	return token, nil
}

func (c *Client) fetchAntiForgeryToken(ctx context.Context) (string, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"bookingTypeId": strconv.Itoa(bookingTypeConsultation),
			"pfm":           "1",
		}).
		Get(myVisitsPath)
	if err != nil {
		return "", err
	}
	err = checkStatus(res)
	if err != nil {
		return "", err
	}

	for _, cookie := range res.Cookies() {
		if cookie.Name == antiForgeryCookie && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	// set earlier in the session, the portal does not always resend it
	for _, cookie := range c.Cookies() {
		if cookie.Name == antiForgeryCookie && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("%w: cookie %s", ErrMissingField, antiForgeryCookie)
}
