package perm

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.mau.fi/whatsmeow/types"

	"github.com/nattydev/whatsguard/internal/config"
	"github.com/nattydev/whatsguard/internal/identity"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

type countingFetcher struct {
	calls int
	info  *types.GroupInfo
}

func (f *countingFetcher) GroupInfo(_ context.Context, _ types.JID) (*types.GroupInfo, error) {
	f.calls++
	return f.info, nil
}

type fakeMods struct{ numbers map[string]bool }

func (f *fakeMods) IsModerator(number string) bool { return f.numbers[number] }

type fakeSelf struct{ id, lid types.JID }

func (f *fakeSelf) SelfID() types.JID  { return f.id }
func (f *fakeSelf) SelfLID() types.JID { return f.lid }

func groupJID() types.JID {
	return types.NewJID("120363000000000001", types.GroupServer)
}

func groupInfoWithAdmins() *types.GroupInfo {
	info := &types.GroupInfo{}
	info.JID = groupJID()
	info.Participants = []types.GroupParticipant{
		{JID: types.NewJID("263770000001", types.DefaultUserServer), IsAdmin: true},
		{JID: types.NewJID("263770000002", types.DefaultUserServer)},
		{JID: types.NewJID("9000000055", types.HiddenUserServer), IsAdmin: true},
	}
	return info
}

func newTestResolver(t *testing.T, fetcher *countingFetcher, owners []string) *Resolver {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("BOT_OWNER_NUMBERS", "")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(owners) > 0 {
		if err := cfg.Update(func(c *config.Config) { c.OwnerNumbers = owners }); err != nil {
			t.Fatal(err)
		}
	}

	return &Resolver{
		IDs:    identity.NewResolver(nil),
		Groups: whatsapp.NewGroupCache(fetcher, time.Minute),
		Cfg:    cfg,
		Mods:   &fakeMods{numbers: map[string]bool{"263770000008": true}},
		Self:   &fakeSelf{lid: types.NewJID("9000000055", types.HiddenUserServer)},
	}
}

// A direct-message JID must answer false without touching the transport.
func TestIsAdminShortCircuitsOutsideGroups(t *testing.T) {
	fetcher := &countingFetcher{info: groupInfoWithAdmins()}
	r := newTestResolver(t, fetcher, nil)
	ctx := context.Background()

	dm := types.NewJID("263770000001", types.DefaultUserServer)
	if r.IsAdmin(ctx, dm, dm, nil) {
		t.Error("IsAdmin true for a direct message")
	}
	if r.IsBotAdmin(ctx, dm, nil) {
		t.Error("IsBotAdmin true for a direct message")
	}
	if fetcher.calls != 0 {
		t.Errorf("transport hit %d times for non-group check", fetcher.calls)
	}
}

func TestIsAdminMatchesRank(t *testing.T) {
	fetcher := &countingFetcher{info: groupInfoWithAdmins()}
	r := newTestResolver(t, fetcher, nil)
	ctx := context.Background()

	if !r.IsAdmin(ctx, types.NewJID("263770000001", types.DefaultUserServer), groupJID(), nil) {
		t.Error("admin participant not recognized")
	}
	if r.IsAdmin(ctx, types.NewJID("263770000002", types.DefaultUserServer), groupJID(), nil) {
		t.Error("plain member reported as admin")
	}
	if r.IsAdmin(ctx, types.NewJID("263779999999", types.DefaultUserServer), groupJID(), nil) {
		t.Error("non-member reported as admin")
	}
}

// Admin checks without supplied metadata always fetch, even with a warm cache.
func TestIsAdminUsesLiveMetadata(t *testing.T) {
	fetcher := &countingFetcher{info: groupInfoWithAdmins()}
	r := newTestResolver(t, fetcher, nil)
	ctx := context.Background()

	r.Groups.Cached(ctx, groupJID())
	base := fetcher.calls

	sender := types.NewJID("263770000001", types.DefaultUserServer)
	r.IsAdmin(ctx, sender, groupJID(), nil)
	r.IsAdmin(ctx, sender, groupJID(), nil)

	if fetcher.calls != base+2 {
		t.Errorf("expected 2 live fetches, got %d", fetcher.calls-base)
	}
}

func TestIsAdminWithSuppliedMetadataSkipsFetch(t *testing.T) {
	fetcher := &countingFetcher{info: groupInfoWithAdmins()}
	r := newTestResolver(t, fetcher, nil)
	ctx := context.Background()

	sender := types.NewJID("263770000001", types.DefaultUserServer)
	if !r.IsAdmin(ctx, sender, groupJID(), groupInfoWithAdmins()) {
		t.Error("supplied metadata not honored")
	}
	if fetcher.calls != 0 {
		t.Errorf("fetched %d times despite supplied metadata", fetcher.calls)
	}
}

func TestIsBotAdminMatchesSelfLID(t *testing.T) {
	fetcher := &countingFetcher{info: groupInfoWithAdmins()}
	r := newTestResolver(t, fetcher, nil)

	if !r.IsBotAdmin(context.Background(), groupJID(), nil) {
		t.Error("bot LID admin entry not matched")
	}
}

func TestIsOwnerNormalizesBothSides(t *testing.T) {
	fetcher := &countingFetcher{info: groupInfoWithAdmins()}
	r := newTestResolver(t, fetcher, []string{"263712779049"})
	ctx := context.Background()

	owner := types.JID{User: "263712779049", Device: 23, Server: types.DefaultUserServer}
	if !r.IsOwner(ctx, owner) {
		t.Error("device-suffixed owner JID not recognized")
	}
	if r.IsOwner(ctx, types.NewJID("263700000000", types.DefaultUserServer)) {
		t.Error("stranger recognized as owner")
	}
}

func TestIsModeratorUsesBareNumber(t *testing.T) {
	fetcher := &countingFetcher{info: groupInfoWithAdmins()}
	r := newTestResolver(t, fetcher, nil)
	ctx := context.Background()

	if !r.IsModerator(ctx, types.NewJID("263770000008", types.DefaultUserServer)) {
		t.Error("moderator not recognized")
	}
	if r.IsModerator(ctx, types.NewJID("263770000002", types.DefaultUserServer)) {
		t.Error("non-moderator recognized")
	}
}
