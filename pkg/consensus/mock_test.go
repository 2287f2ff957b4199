package consensus

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abrezinsky/consensus/internal/models"
)

func TestMockClient_VerifyCode(t *testing.T) {
	m := NewMockClient(WithCode("11112222"))
	ctx := context.Background()

	if _, err := m.VerifyCode(ctx, "a@example.com", "00000000"); err == nil {
		t.Error("expected wrong code to fail")
	}
	session, err := m.VerifyCode(ctx, "a@example.com", "11112222")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if m.AccessToken() != session.AccessToken {
		t.Error("expected token to be stored")
	}
}

func TestMockClient_ErrorInjection(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockClient(WithError("InsertVote", boom))

	if _, err := m.InsertVote(context.Background(), "s1", models.VoteYes); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
	m.SetError("InsertVote", nil)
	if _, err := m.InsertVote(context.Background(), "s1", models.VoteYes); err != nil {
		t.Errorf("expected error cleared, got %v", err)
	}
	if len(m.CallsTo("InsertVote")) != 2 {
		t.Errorf("expected 2 recorded calls, got %d", len(m.CallsTo("InsertVote")))
	}
	if len(m.Votes()) != 1 {
		t.Errorf("expected 1 stored vote, got %d", len(m.Votes()))
	}
}

func TestMockClient_EligibleAndLeaderboard(t *testing.T) {
	m := NewMockClient(WithSubmissions("c1",
		models.Submission{ID: "a", Score: 1, Status: models.SubmissionApproved},
		models.Submission{ID: "b", Score: 5, Status: models.SubmissionApproved},
		models.Submission{ID: "c", Score: 9, Status: models.SubmissionPending},
	))
	ctx := context.Background()

	eligible, _ := m.ListEligibleSubmissions(ctx, "c1")
	if len(eligible) != 2 {
		t.Errorf("expected 2 eligible, got %d", len(eligible))
	}

	if _, err := m.UpdateSubmissionScore(ctx, "a", 10); err != nil {
		t.Fatalf("UpdateSubmissionScore failed: %v", err)
	}
	rows, _ := m.Leaderboard(ctx, "c1", 1)
	if len(rows) != 1 || rows[0].ID != "a" {
		t.Errorf("expected a on top, got %+v", rows)
	}
}

func TestMockClient_UploadSubmission(t *testing.T) {
	m := NewMockClient()
	sub, err := m.UploadSubmission(context.Background(), "c1", Upload{
		ContentType: "image/png",
		Data:        strings.NewReader("png"),
		Caption:     "hi",
	})
	if err != nil {
		t.Fatalf("UploadSubmission failed: %v", err)
	}
	if sub.Caption == nil || *sub.Caption != "hi" {
		t.Errorf("expected caption, got %+v", sub.Caption)
	}
}

func TestMockClient_SubscribeAndEmit(t *testing.T) {
	m := NewMockClient()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := m.Subscribe(ctx, "leaderboard:c1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	go m.Emit("leaderboard:c1", models.ChangeEvent{Type: models.EventUpdate})

	select {
	case ev := <-events:
		if ev.Type != models.EventUpdate {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	for range events {
	}
}
