package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"music-brief-scheduler/internal/domain"
	"music-brief-scheduler/internal/mailer"
	"music-brief-scheduler/internal/models"
	"music-brief-scheduler/internal/syb"
	"music-brief-scheduler/pkg/logging"
)

// fakeBriefRepo overrides only what these tests touch; anything else panics
// via the embedded nil interface.
type fakeBriefRepo struct {
	domain.Repository
	remoteScheduleID string
}

func (f *fakeBriefRepo) SetBriefRemoteSchedule(_ context.Context, _ int64, sybScheduleID string) error {
	f.remoteScheduleID = sybScheduleID
	return nil
}

type stubMailer struct {
	approvals []mailer.ApprovalEmail
	err       error
}

func (s *stubMailer) SendApproval(_ context.Context, data mailer.ApprovalEmail) error {
	if s.err != nil {
		return s.err
	}
	s.approvals = append(s.approvals, data)
	return nil
}

func (s *stubMailer) SendFollowUp(_ context.Context, _ mailer.FollowUpEmail) error { return nil }

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(logging.LogConfig{Level: logging.LevelError, Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return logger
}

func TestPreBuildRemoteSchedule_WirePayload(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if strings.Contains(req.Query, "createSchedule") {
			captured, _ = req.Variables["input"].(map[string]interface{})
		}
		fmt.Fprint(w, `{"data":{"createSchedule":{"schedule":{"id":"sched-1"}},"addToMusicLibrary":{"musicLibrary":{"id":"lib-1"}}}}`)
	}))
	t.Cleanup(srv.Close)

	repo := &fakeBriefRepo{}
	s := NewService(Deps{
		Repo:   repo,
		SYB:    syb.NewClient("token", srv.URL, nil, testLogger(t)),
		Logger: testLogger(t),
	})

	b := &models.Brief{ID: 12, VenueName: "Vertigo Rooftop"}
	sd := buildScheduleData(submitFixture())

	if !s.preBuildRemoteSchedule(context.Background(), b, sd, "acc-1") {
		t.Fatal("pre-build should succeed")
	}

	if captured == nil {
		t.Fatal("createSchedule mutation never sent")
	}
	if got := captured["name"]; got != "Vertigo Rooftop Main — by BMAsia" {
		t.Fatalf("schedule name = %v", got)
	}
	if got := captured["presentAs"]; got != "daily" {
		t.Fatalf("presentAs = %v, want the literal daily", got)
	}
	if got := captured["description"]; got != "Brief #12" {
		t.Fatalf("description = %v", got)
	}

	if b.SybScheduleID == nil || *b.SybScheduleID != "sched-1" {
		t.Fatalf("schedule id not recorded on brief: %v", b.SybScheduleID)
	}
	if repo.remoteScheduleID != "sched-1" {
		t.Fatalf("schedule id not persisted: %q", repo.remoteScheduleID)
	}
}

func TestSubmit_DegradedMailFailureFailsSubmission(t *testing.T) {
	mail := &stubMailer{err: errors.New("smtp: connection refused")}
	s := NewService(Deps{
		Mail:           mail,
		Logger:         testLogger(t),
		RecipientEmail: "ops@example.com",
	})

	res, err := s.Submit(context.Background(), submitFixture())
	if err == nil {
		t.Fatal("a failed approval email must fail the submission")
	}
	if res != nil {
		t.Fatalf("no result on failure, got %+v", res)
	}
}

func TestSubmit_DegradedDeliversAndSucceeds(t *testing.T) {
	mail := &stubMailer{}
	s := NewService(Deps{
		Mail:           mail,
		Logger:         testLogger(t),
		RecipientEmail: "ops@example.com",
	})

	res, err := s.Submit(context.Background(), submitFixture())
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || !res.Success {
		t.Fatalf("degraded submit should still succeed: %+v", res)
	}
	if len(mail.approvals) != 1 {
		t.Fatalf("expected one approval email, got %d", len(mail.approvals))
	}
	if mail.approvals[0].VenueName != "Vertigo Rooftop" {
		t.Fatalf("email venue: %+v", mail.approvals[0])
	}
}
