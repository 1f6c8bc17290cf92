package medicover

import (
	"context"
	"encoding/json"
	"fmt"
	"medicover-assist/internal/chrono"
	"time"

	"go.opentelemetry.io/otel/codes"
)

const freeSlotsPath = "/api/MyVisits/SearchFreeSlotsToBook"

const searchSinceLayout = "2006-01-02T15:04:05.000Z"

type freeSlotsRequest struct {
	wireFilter
	LanguageId                        int     `json:"languageId"`
	SearchSince                       string  `json:"searchSince"`
	SearchForNextSince                *string `json:"searchForNextSince"`
	PeriodOfTheDay                    int     `json:"periodOfTheDay"`
	IsSetBecauseOfPcc                 bool    `json:"isSetBecauseOfPcc"`
	IsSetBecausePromoteSpecialization bool    `json:"isSetBecausePromoteSpecialization"`
}

// FormatSearchSince renders t the way the portal expects searchSince.
func FormatSearchSince(t time.Time) string {
	return t.UTC().Format(searchSinceLayout)
}

// FreeSlots searches for free slots matching filter starting at since. A
// zero since means the current Warsaw date, sent as midnight UTC. The decoded response
// is returned as-is, its slots are under "items" (see FreeSlotItems).
func (c *Client) FreeSlots(ctx context.Context, filter Filter, since time.Time) (Record, error) {
	ctx, span := tracer.Start(ctx, "client:FreeSlots")
	defer span.End()

	result, err := c.freeSlots(ctx, filter, since)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.tel.ReportBroken(report_client_free_slots, err, filter)
		return nil, fmt.Errorf("medicover: free slots: %w", err)
	}
	return result, nil
}

// FreeSlotItems is FreeSlots but returns only the slots themselves.
func (c *Client) FreeSlotItems(ctx context.Context, filter Filter, since time.Time) ([]Record, error) {
	result, err := c.FreeSlots(ctx, filter, since)
	if err != nil {
		return nil, err
	}
	items, err := result.Items()
	if err != nil {
		c.tel.ReportBroken(report_client_free_slots, err)
		return nil, fmt.Errorf("medicover: free slots: %w", err)
	}
	c.tel.ReportCount(report_client_free_slots, int64(len(items)))
	return items, nil
}

func (c *Client) freeSlots(ctx context.Context, filter Filter, since time.Time) (Record, error) {
	if since.IsZero() {
		since = chrono.MidnightUTC(c.time.Now(), chrono.Warsaw())
	}

	token, err := c.antiForgeryToken(ctx)
	if err != nil {
		return nil, err
	}

	body := freeSlotsRequest{
		wireFilter:  filter.wire(),
		LanguageId:  -1,
		SearchSince: FormatSearchSince(since),
	}

	res, err := c.ajax(c.Http.R(), token).
		SetContext(ctx).
		SetQueryParam("language", "pl-PL").
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(freeSlotsPath)
	if err != nil {
		return nil, err
	}
	err = checkStatus(res)
	if err != nil {
		return nil, err
	}

	var result Record
	err = json.Unmarshal(res.Body(), &result)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("decode response: expected object")
	}
	return result, nil
}
