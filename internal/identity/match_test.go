package identity

import (
	"context"
	"testing"

	"go.mau.fi/whatsmeow/types"
)

func testParticipants() []types.GroupParticipant {
	return []types.GroupParticipant{
		{
			JID:     types.NewJID("9000000001", types.HiddenUserServer),
			LID:     types.NewJID("9000000001", types.HiddenUserServer),
			IsAdmin: true,
		},
		{
			JID:         types.NewJID("263770000002", types.DefaultUserServer),
			PhoneNumber: types.NewJID("263770000002", types.DefaultUserServer),
		},
		{
			JID: types.NewJID("263770000003", types.DefaultUserServer),
		},
	}
}

func TestFindParticipantEmptyInputs(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	if p := r.FindParticipant(ctx, nil, types.NewJID("263770000002", types.DefaultUserServer)); p != nil {
		t.Errorf("match against empty participant list: %+v", p)
	}
	if p := r.FindParticipant(ctx, testParticipants()); p != nil {
		t.Errorf("match with no targets: %+v", p)
	}
	if p := r.FindParticipant(ctx, testParticipants(), types.EmptyJID); p != nil {
		t.Errorf("match with empty target: %+v", p)
	}
}

func TestFindParticipantDirectHit(t *testing.T) {
	r, _ := newTestResolver()

	p := r.FindParticipant(context.Background(), testParticipants(), types.NewJID("263770000002", types.DefaultUserServer))
	if p == nil || p.JID.User != "263770000002" {
		t.Fatalf("direct match failed: %+v", p)
	}
}

// A PN target must find a participant listed only under its LID.
func TestFindParticipantAcrossIdentifierFamilies(t *testing.T) {
	r, _ := newTestResolver()

	p := r.FindParticipant(context.Background(), testParticipants(), types.NewJID("263712000001", types.DefaultUserServer))
	if p == nil {
		t.Fatal("PN target did not match LID-listed participant")
	}
	if !p.IsAdmin {
		t.Errorf("matched wrong participant: %+v", p)
	}
}

func TestFindParticipantLIDTargetAgainstPNEntry(t *testing.T) {
	r, _ := newTestResolver()

	participants := []types.GroupParticipant{
		{JID: types.NewJID("263712000001", types.DefaultUserServer)},
	}
	p := r.FindParticipant(context.Background(), participants, types.NewJID("9000000001", types.HiddenUserServer))
	if p == nil {
		t.Fatal("LID target did not match PN-listed participant")
	}
}

func TestFindParticipantDeviceSuffixTolerated(t *testing.T) {
	r, _ := newTestResolver()

	target := types.JID{User: "263770000003", Device: 7, Server: types.DefaultUserServer}
	p := r.FindParticipant(context.Background(), testParticipants(), target)
	if p == nil {
		t.Fatal("device-suffixed target did not match")
	}
}

func TestFindParticipantFirstMatchWins(t *testing.T) {
	r, _ := newTestResolver()

	targets := []types.JID{
		types.NewJID("263770000003", types.DefaultUserServer),
		types.NewJID("263770000002", types.DefaultUserServer),
	}
	p := r.FindParticipant(context.Background(), testParticipants(), targets...)
	if p == nil {
		t.Fatal("no match")
	}
	if p.JID.User != "263770000002" {
		t.Errorf("expected first matching participant in list order, got %s", p.JID)
	}
}
