package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"music-brief-scheduler/internal/domain"
	"music-brief-scheduler/internal/mailer"
	"music-brief-scheduler/internal/models"
	"music-brief-scheduler/internal/syb"
	"music-brief-scheduler/pkg/events"
	"music-brief-scheduler/pkg/logging"
)

// fakeRepo overrides only the methods the executor touches; anything else
// panics via the embedded nil interface.
type fakeRepo struct {
	domain.Repository
	entries   []models.ScheduleEntry
	followUps []models.FollowUp

	assigned []int64
	failures []int64
	retries  int
	sentIDs  []int64
}

func (f *fakeRepo) ActiveEntries(_ context.Context) ([]models.ScheduleEntry, error) {
	return f.entries, nil
}

func (f *fakeRepo) MarkAssigned(_ context.Context, id int64, _ time.Time) error {
	f.assigned = append(f.assigned, id)
	return nil
}

func (f *fakeRepo) RecordFailure(_ context.Context, id int64, _ int) (int, error) {
	f.failures = append(f.failures, id)
	return f.retries, nil
}

func (f *fakeRepo) DueFollowUps(_ context.Context, _ time.Time, _ int) ([]models.FollowUp, error) {
	return f.followUps, nil
}

func (f *fakeRepo) MarkFollowUpSent(_ context.Context, id int64, _ time.Time) error {
	f.sentIDs = append(f.sentIDs, id)
	return nil
}

type fakeBus struct {
	appended []events.Event
}

func (f *fakeBus) Append(_ context.Context, e events.Event) error {
	f.appended = append(f.appended, e)
	return nil
}

func (f *fakeBus) ListByBrief(_ context.Context, _ int64) ([]events.StoredEvent, error) {
	return nil, nil
}

type fakeMailer struct {
	sent []mailer.FollowUpEmail
	err  error
}

func (f *fakeMailer) SendApproval(_ context.Context, _ mailer.ApprovalEmail) error { return nil }

func (f *fakeMailer) SendFollowUp(_ context.Context, data mailer.FollowUpEmail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, data)
	return nil
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(logging.LogConfig{Level: logging.LevelError, Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return logger
}

// gqlStub answers every mutation with the given body and counts requests.
func gqlStub(t *testing.T, body string) (*httptest.Server, *int) {
	t.Helper()
	calls := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func newTestExecutor(t *testing.T, repo *fakeRepo, bus events.Store, mail mailer.Sender, sybURL string, now time.Time) *Executor {
	t.Helper()
	var client *syb.Client
	if sybURL != "" {
		client = syb.NewClient("token", sybURL, nil, testLogger(t))
	}
	e := NewExecutor(repo, client, mail, bus, testLogger(t), "http://localhost:8080", "UTC")
	e.now = func() time.Time { return now }
	return e
}

// Wednesday noon UTC.
var testNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func entry(id int64, zone, start, days string) models.ScheduleEntry {
	return models.ScheduleEntry{
		ID: id, BriefID: 1, ZoneID: zone, ZoneName: zone,
		PlaylistSybID: fmt.Sprintf("syb-%d", id), PlaylistName: fmt.Sprintf("Playlist %d", id),
		StartTime: start, Days: days, Timezone: "UTC", Status: models.EntryStatusActive,
	}
}

func TestRunAssignments_CollapsesToLatestPerZone(t *testing.T) {
	srv, calls := gqlStub(t, `{"data":{"soundZoneAssignSource":{"soundZones":[]}}}`)
	assignedToday := testNow.Add(-2 * time.Hour)
	notToday := testNow.Add(-26 * time.Hour)

	repo := &fakeRepo{entries: []models.ScheduleEntry{
		entry(1, "z1", "09:00", models.DaysDaily), // overdue, shadowed by id 2
		entry(2, "z1", "12:00", models.DaysDaily), // due right now
		entry(3, "z2", "13:00", models.DaysDaily), // not yet due
		func() models.ScheduleEntry {
			e := entry(4, "z3", "08:00", models.DaysDaily)
			e.LastAssignedAt = &assignedToday
			return e
		}(), // already ran today
		entry(5, "z4", "10:00", models.DaysWeekend), // Wednesday, wrong day
		func() models.ScheduleEntry {
			e := entry(6, "z5", "08:00", models.DaysDaily)
			e.LastAssignedAt = &notToday
			return e
		}(), // ran yesterday, overdue catch-up
	}}
	bus := &fakeBus{}
	e := newTestExecutor(t, repo, bus, nil, srv.URL, testNow)

	e.runAssignments(context.Background())

	if len(repo.assigned) != 2 {
		t.Fatalf("expected 2 assignments (z1 and z5), got %v", repo.assigned)
	}
	got := map[int64]bool{}
	for _, id := range repo.assigned {
		got[id] = true
	}
	if !got[2] || !got[6] {
		t.Fatalf("wrong entries assigned: %v", repo.assigned)
	}
	if *calls != 2 {
		t.Fatalf("expected 2 platform calls, got %d", *calls)
	}

	catchUps := map[string]bool{}
	for _, ev := range bus.appended {
		sa, ok := ev.(events.ScheduleAssigned)
		if !ok {
			t.Fatalf("unexpected event %T", ev)
		}
		catchUps[sa.ZoneID] = sa.CatchUp
	}
	if catchUps["z1"] {
		t.Fatal("on-time assignment must not be flagged as catch-up")
	}
	if !catchUps["z5"] {
		t.Fatal("hours-late assignment must be flagged as catch-up")
	}
}

func TestRunAssignments_RetryThenError(t *testing.T) {
	srv, _ := gqlStub(t, `{"errors":[{"message":"zone offline"}]}`)
	repo := &fakeRepo{
		entries: []models.ScheduleEntry{entry(1, "z1", "12:00", models.DaysDaily)},
		retries: 1,
	}
	bus := &fakeBus{}
	e := newTestExecutor(t, repo, bus, nil, srv.URL, testNow)

	e.runAssignments(context.Background())
	if len(repo.failures) != 1 {
		t.Fatalf("failure not recorded: %v", repo.failures)
	}
	if len(bus.appended) != 0 {
		t.Fatalf("below the retry limit no error event is emitted: %v", bus.appended)
	}

	// At the limit the error event fires.
	repo.retries = maxRetries
	e.runAssignments(context.Background())
	if len(bus.appended) != 1 {
		t.Fatalf("expected one error event, got %d", len(bus.appended))
	}
	se, ok := bus.appended[0].(events.ScheduleError)
	if !ok || se.Retries != maxRetries || !strings.Contains(se.Reason, "zone offline") {
		t.Fatalf("unexpected error event: %+v", bus.appended[0])
	}
}

func TestRunFollowUps_AlwaysMarkedSent(t *testing.T) {
	repo := &fakeRepo{followUps: []models.FollowUp{
		{ID: 1, BriefID: 10, Type: models.FollowUp7Day, ContactEmail: "a@example.com",
			VenueName: "Cafe Luna", TrackingID: "t-1"},
		{ID: 2, BriefID: 11, Type: models.FollowUp30Day, ContactEmail: "", TrackingID: "t-2"},
	}}
	bus := &fakeBus{}
	mail := &fakeMailer{}
	e := newTestExecutor(t, repo, bus, mail, "", testNow)

	e.runFollowUps(context.Background())

	if len(repo.sentIDs) != 2 {
		t.Fatalf("every due row must be marked sent, got %v", repo.sentIDs)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("only the row with an address gets mail, got %d", len(mail.sent))
	}
	if len(bus.appended) != 2 {
		t.Fatalf("expected 2 events, got %d", len(bus.appended))
	}
	first := bus.appended[0].(events.FollowUpSent)
	second := bus.appended[1].(events.FollowUpSent)
	if !first.Delivered || second.Delivered {
		t.Fatalf("delivered flags wrong: %v %v", first.Delivered, second.Delivered)
	}
}

func TestRunFollowUps_DeliveryFailureStillMarksSent(t *testing.T) {
	repo := &fakeRepo{followUps: []models.FollowUp{
		{ID: 1, BriefID: 10, Type: models.FollowUp7Day, ContactEmail: "a@example.com", TrackingID: "t-1"},
	}}
	bus := &fakeBus{}
	mail := &fakeMailer{err: fmt.Errorf("smtp down")}
	e := newTestExecutor(t, repo, bus, mail, "", testNow)

	e.runFollowUps(context.Background())
	if len(repo.sentIDs) != 1 {
		t.Fatal("failed delivery must still mark the row sent")
	}
	if ev := bus.appended[0].(events.FollowUpSent); ev.Delivered {
		t.Fatal("delivered flag must be false on failure")
	}
}

func TestFollowUpEmail_Copy(t *testing.T) {
	fu := models.FollowUp{
		Type: models.FollowUp7Day, ContactEmail: "a@example.com",
		ContactName: "Nok", VenueName: "Cafe Luna", TrackingID: "trk-123",
	}
	m := followUpEmail(fu, "https://brief.example.com")
	if !strings.Contains(m.Subject, "How is the music working out") {
		t.Fatalf("7-day subject: %s", m.Subject)
	}
	if m.PixelURL != "https://brief.example.com/follow-up/track/trk-123" {
		t.Fatalf("pixel url: %s", m.PixelURL)
	}

	fu.Type = models.FollowUp30Day
	m = followUpEmail(fu, "https://brief.example.com")
	if !strings.Contains(m.Subject, "A month of music") {
		t.Fatalf("30-day subject: %s", m.Subject)
	}
	if !strings.Contains(m.Intro, "refresh") {
		t.Fatalf("30-day intro: %s", m.Intro)
	}
}

func TestClockMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"09:30", 570, true},
		{"0:00", 0, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
	}
	for _, c := range cases {
		got, ok := clockMinutes(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("clockMinutes(%q) = %d %v", c.in, got, ok)
		}
	}
}

func TestAssignedOn_LocalDayBoundary(t *testing.T) {
	bkk, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 23:30 UTC on March 3 is already March 4 in Bangkok.
	last := time.Date(2026, 3, 3, 23, 30, 0, 0, time.UTC)
	local := time.Date(2026, 3, 4, 8, 0, 0, 0, bkk)

	if !assignedOn(&last, local, bkk) {
		t.Fatal("same Bangkok day must count as assigned")
	}
	if assignedOn(&last, local, time.UTC) {
		t.Fatal("in UTC those are different days")
	}
	if assignedOn(nil, local, bkk) {
		t.Fatal("never-assigned entries are never done")
	}
}
