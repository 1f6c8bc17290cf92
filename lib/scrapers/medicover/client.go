// Package medicover is a client for the Medicover patient portal (mol.medicover.pl).
//
// A Client owns one portal session: its cookie jar and the anti-forgery token
// the portal binds to it. A Client is not safe for concurrent use and should
// not be shared between logical users.
package medicover

import (
	"medicover-assist/internal/chrono"
	"medicover-assist/lib/htmlutil"
	"medicover-assist/lib/telemetry"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://mol.medicover.pl"

const (
	report_client_login              = "client.login"
	report_client_logout             = "client.logout"
	report_client_anti_forgery_token = "client.anti-forgery-token"
	report_client_visit_parameters   = "client.visit-parameters"
	report_client_free_slots         = "client.free-slots"
	report_client_appointments       = "client.appointments"
)

var tracer = telemetry.Tracer("medicover-assist/scrapers/medicover")

type ClientOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Telemetry defaults to telemetry.SlogAPI.
	Telemetry telemetry.API
	// Time defaults to chrono.StandardTime.
	Time chrono.TimeAPI
	// Dump receives every request/response pair when not nil.
	Dump telemetry.MessageOutput
	// RateLimit is in requests per second, defaults to 2.
	RateLimit rate.Limit
	// Timeout defaults to 30 seconds.
	Timeout time.Duration
	// MaxAppointmentPages defaults to DefaultMaxAppointmentPages.
	MaxAppointmentPages int
	// ParsePage defaults to htmlutil.ParsePage.
	ParsePage        htmlutil.ParseFunc
	BypassCloudflare bool
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	tel       telemetry.API
	time      chrono.TimeAPI
	parsePage htmlutil.ParseFunc
	maxPages  int

	// cached for the lifetime of the session, see antiForgeryToken
	antiForgery string
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.SlogAPI{}
	}
	if opts.Time == nil {
		opts.Time = chrono.NewStandardTime()
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 2
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.MaxAppointmentPages <= 0 {
		opts.MaxAppointmentPages = DefaultMaxAppointmentPages
	}
	if opts.ParsePage == nil {
		opts.ParsePage = htmlutil.ParsePage
	}

	tel := telemetry.NewScopedAPI("medicover", opts.Telemetry)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.BypassCloudflare {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	// the login form lives on a different host than the portal itself
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	httpClient.SetTimeout(opts.Timeout)

	// burst of 2 so that no requests are dropped
	rateLimiter := rate.NewLimiter(opts.RateLimit, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel.Sub("http"), tracer, opts.Dump)

	return &Client{
		BaseUrl:   baseUrl,
		Http:      httpClient,
		tel:       tel,
		time:      opts.Time,
		parsePage: opts.ParsePage,
		maxPages:  opts.MaxAppointmentPages,
	}, nil
}

func (c *Client) origin() string {
	return (&url.URL{Scheme: c.BaseUrl.Scheme, Host: c.BaseUrl.Host}).String()
}

// Cookies returns the cookies the session currently holds for the portal.
func (c *Client) Cookies() []*http.Cookie {
	return c.Http.GetClient().Jar.Cookies(c.BaseUrl)
}

// ajax returns a request shaped like the portal's own XHR calls, carrying
// the anti-forgery token as a cookie.
func (c *Client) ajax(req *resty.Request, token string) *resty.Request {
	req.
		SetHeader("Accept", "application/json").
		SetHeader("Origin", c.origin()).
		SetHeader("X-Requested-With", "XMLHttpRequest")

	// the jar already sends the cookie if the portal set it for this path,
	// adding it again would duplicate it in the Cookie header
	for _, cookie := range c.Cookies() {
		if cookie.Name == antiForgeryCookie && cookie.Value == token {
			return req
		}
	}
	return req.SetCookie(&http.Cookie{Name: antiForgeryCookie, Value: token})
}
