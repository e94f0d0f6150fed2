package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/contacts"
	"github.com/setevik/safetywatch/internal/event"
	"github.com/setevik/safetywatch/internal/gateway"
	"github.com/setevik/safetywatch/internal/geo"
	"github.com/setevik/safetywatch/internal/history"
	"github.com/setevik/safetywatch/internal/reporter"
	"github.com/setevik/safetywatch/internal/store"
)

var t0 = time.Date(2026, 2, 19, 14, 0, 0, 0, time.UTC)

type noticeSink struct{ notices []reporter.Notice }

func (s *noticeSink) Notify(_ context.Context, n reporter.Notice) error {
	s.notices = append(s.notices, n)
	return nil
}

type fixture struct {
	d      *Dispatcher
	alerts *history.AlertStore
	book   *contacts.Manager
	gw     *gateway.Recorder
	sink   *noticeSink
}

func newFixture(t *testing.T, p geo.Provider) *fixture {
	t.Helper()
	kv := store.NewMemory()
	clk := clock.NewFake(t0)

	alerts, err := history.OpenAlerts(kv)
	require.NoError(t, err)
	book, err := contacts.Open(kv, clk)
	require.NoError(t, err)

	f := &fixture{alerts: alerts, book: book, gw: &gateway.Recorder{}, sink: &noticeSink{}}
	loc := geo.NewLocator(p, clk, time.Second, 0)
	f.d = New(loc, alerts, book, f.gw, f.sink, clk, nil, Options{})
	return f
}

func TestDispatchAllChannels(t *testing.T) {
	f := newFixture(t, geo.Static{Latitude: 40.7128, Longitude: -74.006, Accuracy: 10})
	_, err := f.book.Add(contacts.Contact{Name: "Ana", Phone: "555-0100", Email: "ana@example.com", IsActive: true})
	require.NoError(t, err)
	_, err = f.book.Add(contacts.Contact{Name: "Ben", Phone: "555-0101", IsActive: true})
	require.NoError(t, err)
	_, err = f.book.Add(contacts.Contact{Name: "Off", Phone: "555-0199", IsActive: false})
	require.NoError(t, err)

	out, err := f.d.Dispatch(context.Background(), event.AlertMedical, "diabetic")
	require.NoError(t, err)

	assert.Equal(t, event.AlertSent, out.Alert.Status)
	assert.True(t, strings.HasPrefix(out.Alert.ID, "alert_"))
	require.NotNil(t, out.Alert.Location)
	assert.Empty(t, out.Failed())

	require.Len(t, out.Channels, 3)
	assert.Equal(t, ChannelEmergencyServices, out.Channels[0].Channel)
	assert.Equal(t, []string{"tel:911"}, out.Channels[0].Targets[:1])
	assert.True(t, strings.HasPrefix(out.Channels[0].Targets[1], "sms:911?body="))

	contactTargets := out.Channels[1].Targets
	require.Len(t, contactTargets, 3, "two SMS plus one email, inactive contact skipped")
	assert.True(t, strings.HasPrefix(contactTargets[0], "sms:555-0100?body="))
	assert.True(t, strings.HasPrefix(contactTargets[1], "sms:555-0101?body="))
	assert.True(t, strings.HasPrefix(contactTargets[2], "mailto:ana@example.com?subject="))

	authority := out.Channels[2].Targets
	require.Len(t, authority, 2)
	assert.True(t, strings.HasPrefix(authority[0], "sms:911?"))
	assert.True(t, strings.HasPrefix(authority[1], "sms:112?"))

	assert.Len(t, f.gw.Targets(), 7)
	hist := f.alerts.List()
	require.Len(t, hist, 1)
	assert.Equal(t, out.Alert.ID, hist[0].ID)
}

func TestDispatchLocationDenied(t *testing.T) {
	f := newFixture(t, geo.Denied{})

	ok := f.d.SendDirectEmergencyAlert(context.Background(), event.AlertGeneral, "")
	require.True(t, ok)

	hist := f.alerts.List()
	require.Len(t, hist, 1)
	assert.Nil(t, hist[0].Location)

	for _, target := range f.gw.Targets() {
		assert.NotContains(t, target, "maps", "no map link without a location")
	}
	require.Len(t, f.sink.notices, 1)
	assert.Equal(t, "Emergency Alert Sent", f.sink.notices[0].Title)
}

func TestDispatchChannelFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t, geo.Unsupported{})
	f.gw.Fail = func(target string) error {
		if strings.HasPrefix(target, "tel:") {
			return errors.New("no dialer")
		}
		return nil
	}
	_, err := f.book.Add(contacts.Contact{Name: "Ana", Phone: "555-0100", IsActive: true})
	require.NoError(t, err)

	out, err := f.d.Dispatch(context.Background(), event.AlertFall, "")
	require.NoError(t, err)

	assert.Equal(t, []Channel{ChannelEmergencyServices}, out.Failed())
	// sms:911 still sent after the failed call, plus contacts and authorities.
	assert.Len(t, f.gw.Targets(), 1+1+2)
	assert.Equal(t, event.AlertSent, out.Alert.Status)
}

func TestDispatchNoContacts(t *testing.T) {
	f := newFixture(t, geo.Unsupported{})

	out, err := f.d.Dispatch(context.Background(), event.AlertPanic, "")
	require.NoError(t, err)
	assert.Empty(t, out.Channels[1].Targets)
	assert.NoError(t, out.Channels[1].Err)
}

func TestDispatchRejectsUnknownType(t *testing.T) {
	f := newFixture(t, geo.Unsupported{})

	ok := f.d.SendDirectEmergencyAlert(context.Background(), event.AlertType("tsunami"), "")
	assert.False(t, ok)
	assert.Empty(t, f.alerts.List())
	require.Len(t, f.sink.notices, 1)
	assert.Equal(t, "Alert Failed", f.sink.notices[0].Title)
}

func TestDispatchCancelledContext(t *testing.T) {
	f := newFixture(t, geo.Unsupported{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.d.Dispatch(ctx, event.AlertGeneral, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.alerts.List())
}
