package medicover

import (
	"context"
	"medicover-assist/internal/chrono"
	"medicover-assist/lib/telemetry"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestFreeSlots(t *testing.T) {
	portal := newFakePortal(t)
	client, _ := newTestClient(t, portal)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, testUsername, testPassword))

	filter := Filter{Region: Some(204), Specialization: Some(9)}
	result, err := client.FreeSlots(ctx, filter, time.Time{})
	require.NoError(t, err)

	expectedBody := map[string]any{
		"bookingTypeId":                     float64(2),
		"regionId":                          float64(204),
		"specializationId":                  float64(9),
		"clinicId":                          float64(-1),
		"doctorId":                          float64(-1),
		"languageId":                        float64(-1),
		"searchSince":                       "2017-10-23T00:00:00.000Z",
		"searchForNextSince":                nil,
		"periodOfTheDay":                    float64(0),
		"isSetBecauseOfPcc":                 false,
		"isSetBecausePromoteSpecialization": false,
	}
	if diff := cmp.Diff(expectedBody, portal.slotsBody); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, "pl-PL", portal.slotsQuery.Get("language"))

	items, err := result.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	date, err := items[0].AppointmentDate()
	require.NoError(t, err)
	require.Equal(t, "2017-10-23T08:00:00", date)
	require.Equal(t, float64(0), result["searchedPeriodOfTheDay"])
}

func TestFreeSlotsSince(t *testing.T) {
	portal := newFakePortal(t)
	client, _ := newTestClient(t, portal)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, testUsername, testPassword))

	since := time.Date(2017, 11, 2, 0, 0, 0, 0, time.UTC)
	items, err := client.FreeSlotItems(ctx, Filter{Region: Some(204), Specialization: Some(9), Clinic: Some(49284), Doctor: Some(7)}, since)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, "2017-11-02T00:00:00.000Z", portal.slotsBody["searchSince"])
	require.Equal(t, float64(49284), portal.slotsBody["clinicId"])
	require.Equal(t, float64(7), portal.slotsBody["doctorId"])
}

func TestFreeSlotsUsesWarsawDate(t *testing.T) {
	portal := newFakePortal(t)
	// 00:30 in Warsaw, still the 22nd in UTC
	afterMidnight := time.Date(2017, 10, 22, 22, 30, 0, 0, time.UTC)
	client, err := NewClient(ClientOptions{
		BaseUrl:   portal.server.URL,
		Telemetry: &telemetry.Recorder{},
		Time:      chrono.FixedTime(afterMidnight),
		RateLimit: rate.Inf,
	})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, testUsername, testPassword))

	_, err = client.FreeSlots(ctx, Filter{Region: Some(204), Specialization: Some(9)}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, "2017-10-23T00:00:00.000Z", portal.slotsBody["searchSince"])
}

func TestFreeSlotsStatusError(t *testing.T) {
	portal := newFakePortal(t)
	portal.slotsStatus = http.StatusBadGateway
	client, rec := newTestClient(t, portal)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, testUsername, testPassword))

	_, err := client.FreeSlots(ctx, Filter{}, time.Time{})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, 1, portal.count("POST "+freeSlotsPath))
	require.Equal(t, []string{"medicover: client.free-slots"}, rec.Broken())
}

func TestFormatSearchSince(t *testing.T) {
	require.Equal(t, "2017-10-23T00:00:00.000Z", FormatSearchSince(time.Date(2017, 10, 23, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "2017-10-22T22:00:00.000Z", FormatSearchSince(time.Date(2017, 10, 23, 0, 0, 0, 0, time.FixedZone("CEST", 2*60*60))))
}

func TestRecordAccessors(t *testing.T) {
	record := Record{
		"appointmentDate": "2017-10-23T08:00:00",
		"doctorName":      42.0,
	}

	date, err := record.AppointmentDate()
	require.NoError(t, err)
	require.Equal(t, "2017-10-23T08:00:00", date)

	_, err = record.DoctorName()
	require.Error(t, err)

	_, err = Record{}.DoctorName()
	require.ErrorIs(t, err, ErrMissingField)

	_, err = Record{}.Items()
	require.ErrorIs(t, err, ErrMissingField)

	_, err = Record{"items": []any{"not an object"}}.Items()
	require.Error(t, err)
}
