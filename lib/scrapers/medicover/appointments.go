package medicover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	visitsPath           = "/api/MyVisits/SearchVisitsToView"
	appointmentsPageSize = 12

	DefaultMaxAppointmentPages = 100
)

var (
	// ErrNoProgress is returned when a page adds no appointments while the
	// portal still claims there are more.
	ErrNoProgress = errors.New("appointment listing made no progress")
	// ErrTooManyPages is returned when listing exceeds the page ceiling.
	ErrTooManyPages = errors.New("appointment listing exceeded page limit")
)

type appointmentsPage struct {
	Items      []Record `json:"items"`
	TotalCount *int     `json:"totalCount"`
}

// Appointments lists every booked appointment of the account in the order
// the portal returns them. Pages are fetched one after another until the
// portal's totalCount is reached.
func (c *Client) Appointments(ctx context.Context) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "client:Appointments")
	defer span.End()

	appointments, pages, err := c.appointments(ctx)
	span.SetAttributes(attribute.Int("pages", pages))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportBroken(report_client_appointments, err, pages)
		return nil, fmt.Errorf("medicover: appointments: %w", err)
	}
	c.tel.ReportCount(report_client_appointments, int64(len(appointments)))
	return appointments, nil
}

func (c *Client) appointments(ctx context.Context) ([]Record, int, error) {
	appointments := []Record{}

	for page := 1; ; page++ {
		if page > c.maxPages {
			return nil, page - 1, fmt.Errorf("%w (%d)", ErrTooManyPages, c.maxPages)
		}

		res, err := c.Http.R().
			SetContext(ctx).
			SetHeader("X-Requested-With", "XMLHttpRequest").
			SetFormData(map[string]string{
				"Page":     strconv.Itoa(page),
				"PageSize": strconv.Itoa(appointmentsPageSize),
			}).
			Post(visitsPath)
		if err != nil {
			return nil, page, fmt.Errorf("page %d: %w", page, err)
		}
		err = checkStatus(res)
		if err != nil {
			return nil, page, fmt.Errorf("page %d: %w", page, err)
		}

		var parsed appointmentsPage
		err = json.Unmarshal(res.Body(), &parsed)
		if err != nil {
			return nil, page, fmt.Errorf("page %d: decode: %w", page, err)
		}
		if parsed.TotalCount == nil {
			return nil, page, fmt.Errorf("page %d: %w", page, missingField("totalCount"))
		}

		appointments = append(appointments, parsed.Items...)
		if len(appointments) >= *parsed.TotalCount {
			return appointments, page, nil
		}
		if len(parsed.Items) == 0 {
			return nil, page, fmt.Errorf(
				"page %d: %w (%d of %d)",
				page, ErrNoProgress, len(appointments), *parsed.TotalCount,
			)
		}
	}
}
