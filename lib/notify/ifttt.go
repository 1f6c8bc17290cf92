package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultIftttBaseUrl = "https://maker.ifttt.com"
	IftttEvent          = "medicover_slots"
)

type iftttPayload struct {
	Value1 int    `json:"value1"`
	Value2 string `json:"value2"`
}

// Ifttt triggers the medicover_slots event of an IFTTT Maker webhook. The
// number of lines goes into value1, the lines themselves (newline joined)
// into value2.
type Ifttt struct {
	key  string
	http *resty.Client
}

// NewIfttt creates a webhook notifier, baseUrl defaults to
// DefaultIftttBaseUrl.
func NewIfttt(key, baseUrl string) Ifttt {
	if baseUrl == "" {
		baseUrl = DefaultIftttBaseUrl
	}
	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(time.Second * 15)
	return Ifttt{key: key, http: client}
}

// Notify does nothing when there are no lines or no key is configured.
func (n Ifttt) Notify(ctx context.Context, alert Alert) error {
	if len(alert.Lines) == 0 || n.key == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "ifttt:Notify")
	defer span.End()

	res, err := n.http.R().
		SetContext(ctx).
		SetBody(iftttPayload{
			Value1: len(alert.Lines),
			Value2: strings.Join(alert.Lines, "\n"),
		}).
		Post(fmt.Sprintf("/trigger/%s/with/key/%s", IftttEvent, url.PathEscape(n.key)))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("ifttt: %w", err)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
		return fmt.Errorf("ifttt: unexpected status %s", res.Status())
	}
	return nil
}
