package services

import (
	"testing"
	"time"

	"investtrack/internal/pagination"
	"investtrack/internal/testutil"
)

func TestCreateInteraction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewInteractionService(db)
	firm := testutil.CreateTestBroker(t, db)
	other := testutil.CreateTestBroker(t, db)
	member := testutil.CreateTestMember(t, db, firm)

	t.Run("defaults_firm_and_date", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		got, err := svc.CreateInteraction(ctx, InteractionInput{MemberID: member.ID, Content: "  Sent deck  "})
		testutil.AssertNoError(t, err)
		if got.FirmID != firm.ID {
			t.Errorf("expected firm %s, got %s", firm.ID, got.FirmID)
		}
		if got.Content != "Sent deck" {
			t.Errorf("expected trimmed content, got %q", got.Content)
		}
		if got.DateOfInteraction.Before(before) {
			t.Errorf("expected date to default to now, got %v", got.DateOfInteraction)
		}
	})

	t.Run("explicit_date", func(t *testing.T) {
		when := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		got, err := svc.CreateInteraction(ctx, InteractionInput{FirmID: firm.ID, MemberID: member.ID, Content: "Call", DateOfInteraction: &when})
		testutil.AssertNoError(t, err)
		if !got.DateOfInteraction.Equal(when) {
			t.Errorf("expected %v, got %v", when, got.DateOfInteraction)
		}
	})

	tests := []struct {
		name     string
		in       InteractionInput
		wantCode string
	}{
		{"blank_content", InteractionInput{MemberID: member.ID, Content: "   "}, "VALIDATION_ERROR"},
		{"bad_member_id", InteractionInput{MemberID: "nope", Content: "x"}, "VALIDATION_ERROR"},
		{"unknown_member", InteractionInput{MemberID: "0190a0b4-0000-7000-8000-000000000000", Content: "x"}, "MEMBER_NOT_FOUND"},
		{"unknown_firm", InteractionInput{FirmID: "0190a0b4-0000-7000-8000-000000000001", MemberID: member.ID, Content: "x"}, "FIRM_NOT_FOUND"},
		{"other_firm", InteractionInput{FirmID: other.ID, MemberID: member.ID, Content: "x"}, "INVALID_OPERATION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateInteraction(ctx, tt.in)
			testutil.AssertAppError(t, err, tt.wantCode)
		})
	}
}

func TestListInteractions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewInteractionService(db)
	firm := testutil.CreateTestBroker(t, db)
	a := testutil.CreateTestMember(t, db, firm)
	b := testutil.CreateTestMember(t, db, firm)

	older := time.Now().Add(-48 * time.Hour)
	_, err := svc.CreateInteraction(ctx, InteractionInput{MemberID: a.ID, Content: "first", DateOfInteraction: &older})
	testutil.AssertNoError(t, err)
	_, err = svc.CreateInteraction(ctx, InteractionInput{MemberID: a.ID, Content: "second"})
	testutil.AssertNoError(t, err)
	_, err = svc.CreateInteraction(ctx, InteractionInput{MemberID: b.ID, Content: "other"})
	testutil.AssertNoError(t, err)

	result, err := svc.ListInteractions(ctx, InteractionFilter{MemberID: a.ID}, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if result.TotalItems != 2 {
		t.Fatalf("expected 2 interactions, got %d", result.TotalItems)
	}
	if result.Data[0].Content != "second" {
		t.Errorf("expected most recent first, got %q", result.Data[0].Content)
	}
	if result.Data[0].Member == nil || result.Data[0].Member.ID != a.ID {
		t.Error("expected member preloaded")
	}

	result, err = svc.ListInteractions(ctx, InteractionFilter{FirmID: firm.ID}, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if result.TotalItems != 3 {
		t.Errorf("expected 3 interactions for the firm, got %d", result.TotalItems)
	}
}

func TestUpdateAndDeleteInteraction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewInteractionService(db)
	member := testutil.CreateTestMember(t, db, testutil.CreateTestBroker(t, db))
	interaction := testutil.CreateTestInteraction(t, db, member)

	updated, err := svc.UpdateInteraction(ctx, interaction.ID, InteractionUpdate{Content: strPtr("Follow-up sent")})
	testutil.AssertNoError(t, err)
	if updated.Content != "Follow-up sent" || updated.MemberID != member.ID {
		t.Errorf("unexpected interaction %+v", updated)
	}

	_, err = svc.UpdateInteraction(ctx, interaction.ID, InteractionUpdate{Content: strPtr(" ")})
	testutil.AssertAppError(t, err, "VALIDATION_ERROR")

	_, err = svc.DeleteInteraction(ctx, interaction.ID)
	testutil.AssertNoError(t, err)
	_, err = svc.GetInteraction(ctx, interaction.ID)
	testutil.AssertAppError(t, err, "INTERACTION_NOT_FOUND")
}
