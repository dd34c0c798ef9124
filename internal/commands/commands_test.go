package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/nattydev/whatsguard/internal/command"
	"github.com/nattydev/whatsguard/internal/config"
	"github.com/nattydev/whatsguard/internal/identity"
	"github.com/nattydev/whatsguard/internal/perm"
	"github.com/nattydev/whatsguard/internal/store"
	"github.com/nattydev/whatsguard/internal/tasks"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

type nullMapping struct{}

func (nullMapping) LIDForPN(_ context.Context, _ string) (string, error) { return "", nil }
func (nullMapping) PNForLID(_ context.Context, _ string) (string, error) { return "", nil }

type fakeTransport struct {
	mu sync.Mutex

	self    types.JID
	meta    *types.GroupInfo
	kickErr error

	removed  []types.JID
	replies  []string
	mentions []string
	texts    []string
	revoked  []string
	announce []bool
}

func (f *fakeTransport) SelfID() types.JID  { return f.self }
func (f *fakeTransport) SelfLID() types.JID { return types.EmptyJID }

func (f *fakeTransport) GroupInfo(_ context.Context, _ types.JID) (*types.GroupInfo, error) {
	if f.meta == nil {
		return nil, fmt.Errorf("no group metadata")
	}
	return f.meta, nil
}

func (f *fakeTransport) SendText(_ context.Context, _ types.JID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return "id", nil
}

func (f *fakeTransport) SendMentions(_ context.Context, _ types.JID, text string, _ []types.JID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mentions = append(f.mentions, text)
	return "id", nil
}

func (f *fakeTransport) SendReply(_ context.Context, _ types.JID, text string, _ *events.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, text)
	return "id", nil
}

func (f *fakeTransport) React(_ context.Context, _, _ types.JID, _ string, _ string) error {
	return nil
}

func (f *fakeTransport) Revoke(_ context.Context, _, _ types.JID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, messageID)
	return nil
}

func (f *fakeTransport) RemoveParticipants(_ context.Context, _ types.JID, users []types.JID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kickErr != nil {
		return f.kickErr
	}
	f.removed = append(f.removed, users...)
	return nil
}

func (f *fakeTransport) PromoteParticipants(_ context.Context, _ types.JID, _ []types.JID) error {
	return nil
}

func (f *fakeTransport) DemoteParticipants(_ context.Context, _ types.JID, _ []types.JID) error {
	return nil
}

func (f *fakeTransport) SetAnnounce(_ context.Context, _ types.JID, announce bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announce = append(f.announce, announce)
	return nil
}

func (f *fakeTransport) InviteLink(_ context.Context, _ types.JID, _ bool) (string, error) {
	return "https://chat.whatsapp.com/test", nil
}

func (f *fakeTransport) JoinedGroups(_ context.Context) ([]*types.GroupInfo, error) {
	if f.meta == nil {
		return nil, nil
	}
	return []*types.GroupInfo{f.meta}, nil
}

func (f *fakeTransport) RejectCall(_ context.Context, _ types.JID, _ string) error { return nil }
func (f *fakeTransport) BlockUser(_ context.Context, _ types.JID) error            { return nil }
func (f *fakeTransport) UnblockUser(_ context.Context, _ types.JID) error          { return nil }
func (f *fakeTransport) MarkRead(_ context.Context, _, _ types.JID, _ []string) error {
	return nil
}
func (f *fakeTransport) ChatPresence(_ context.Context, _ types.JID, _ bool) error { return nil }

var _ whatsapp.Transport = (*fakeTransport)(nil)

var (
	testGroup = types.JID{User: "120363000000000042", Server: types.GroupServer}
	botJID    = types.JID{User: "628999", Server: types.DefaultUserServer}
	adminJID  = types.JID{User: "628200", Server: types.DefaultUserServer}
	memberJID = types.JID{User: "628300", Server: types.DefaultUserServer}
)

func groupMeta(botAdmin bool) *types.GroupInfo {
	info := &types.GroupInfo{JID: testGroup}
	info.Participants = []types.GroupParticipant{
		{JID: adminJID, IsAdmin: true},
		{JID: botJID, IsAdmin: botAdmin},
		{JID: memberJID},
	}
	return info
}

type testEnv struct {
	svc *command.Services
	ft  *fakeTransport
	db  *store.DB
	cfg *config.Store
}

func newTestEnv(t *testing.T, ft *fakeTransport) *testEnv {
	t.Helper()
	t.Setenv("BOT_OWNER_NUMBERS", "")

	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	db, err := store.Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if ft.self.User == "" {
		ft.self = botJID
	}

	ids := identity.NewResolver(nullMapping{})
	groups := whatsapp.NewGroupCache(ft, time.Minute)
	perms := &perm.Resolver{IDs: ids, Groups: groups, Cfg: cfg, Mods: db, Self: ft}
	queue := tasks.New(16, 1000, 100)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		queue.Stop(ctx)
	})

	return &testEnv{
		svc: &command.Services{
			WA:        ft,
			Groups:    groups,
			IDs:       ids,
			Perms:     perms,
			DB:        db,
			Cfg:       cfg,
			Tasks:     queue,
			StartedAt: time.Now(),
		},
		ft:  ft,
		db:  db,
		cfg: cfg,
	}
}

func (e *testEnv) run(t *testing.T, name string, sender types.JID, args []string, mentions []string) error {
	t.Helper()
	cmd := command.Lookup(name)
	if cmd == nil {
		t.Fatalf("command %q not registered", name)
	}

	content := &waE2E.Message{Conversation: proto.String("")}
	if len(mentions) > 0 {
		content = &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String(""),
			ContextInfo: &waE2E.ContextInfo{MentionedJID: mentions},
		}}
	}

	raw := &events.Message{Message: content}
	raw.Info.ID = "CMD-" + name
	raw.Info.Chat = testGroup
	raw.Info.Sender = sender

	return cmd.Execute(context.Background(), &command.Context{
		Services: e.svc,
		Raw:      raw,
		Content:  content,
		Args:     args,
		From:     testGroup,
		Sender:   sender,
		IsGroup:  true,
	})
}

func TestAntilinkActionAutoEnables(t *testing.T) {
	env := newTestEnv(t, &fakeTransport{meta: groupMeta(true)})

	if err := env.run(t, "antilink", adminJID, []string{"kick"}, nil); err != nil {
		t.Fatalf("antilink kick: %v", err)
	}

	settings, err := env.db.GroupSettings(testGroup.String())
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	if !settings.Antilink {
		t.Error("setting the action did not enable the rule")
	}
	if settings.AntilinkAction != store.ActionKick {
		t.Errorf("action = %q, want kick", settings.AntilinkAction)
	}

	// Turning the rule off and on again keeps the chosen action.
	if err := env.run(t, "antilink", adminJID, []string{"off"}, nil); err != nil {
		t.Fatalf("antilink off: %v", err)
	}
	if err := env.run(t, "antilink", adminJID, []string{"on"}, nil); err != nil {
		t.Fatalf("antilink on: %v", err)
	}
	settings, _ = env.db.GroupSettings(testGroup.String())
	if settings.AntilinkAction != store.ActionKick {
		t.Errorf("action after off/on = %q, want kick", settings.AntilinkAction)
	}
}

func TestAntilinkSetSubcommand(t *testing.T) {
	env := newTestEnv(t, &fakeTransport{meta: groupMeta(true)})

	if err := env.run(t, "antilink", adminJID, []string{"set", "kick"}, nil); err != nil {
		t.Fatalf("antilink set kick: %v", err)
	}

	settings, err := env.db.GroupSettings(testGroup.String())
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	if !settings.Antilink {
		t.Error("set subcommand did not enable the rule")
	}
	if settings.AntilinkAction != store.ActionKick {
		t.Errorf("action = %q, want kick", settings.AntilinkAction)
	}
	if last := env.ft.replies[len(env.ft.replies)-1]; !strings.Contains(last, "kick") {
		t.Errorf("confirmation = %q, want action echo", last)
	}

	// A bare or malformed set changes nothing.
	if err := env.run(t, "antitag", adminJID, []string{"set"}, nil); err != nil {
		t.Fatalf("antitag set: %v", err)
	}
	if err := env.run(t, "antitag", adminJID, []string{"set", "ban"}, nil); err != nil {
		t.Fatalf("antitag set ban: %v", err)
	}
	settings, _ = env.db.GroupSettings(testGroup.String())
	if settings.Antitag {
		t.Error("incomplete set enabled the rule")
	}
}

func TestProtectionStatusReply(t *testing.T) {
	env := newTestEnv(t, &fakeTransport{meta: groupMeta(true)})

	if err := env.run(t, "antilink", adminJID, nil, nil); err != nil {
		t.Fatalf("antilink status: %v", err)
	}
	if last := env.ft.replies[len(env.ft.replies)-1]; !strings.Contains(last, "disabled") {
		t.Errorf("status reply = %q, want disabled state", last)
	}

	if err := env.run(t, "antilink", adminJID, []string{"set", "kick"}, nil); err != nil {
		t.Fatalf("antilink set kick: %v", err)
	}
	if err := env.run(t, "antilink", adminJID, []string{"get"}, nil); err != nil {
		t.Fatalf("antilink get: %v", err)
	}
	last := env.ft.replies[len(env.ft.replies)-1]
	if !strings.Contains(last, "enabled") || !strings.Contains(last, "kick") {
		t.Errorf("status reply = %q, want enabled with kick action", last)
	}
}

func TestWarnEscalatesToRemoval(t *testing.T) {
	env := newTestEnv(t, &fakeTransport{meta: groupMeta(true)})
	mention := []string{memberJID.String()}

	for i := 0; i < 2; i++ {
		if err := env.run(t, "warn", adminJID, []string{"spam"}, mention); err != nil {
			t.Fatalf("warn %d: %v", i+1, err)
		}
	}
	if len(env.ft.removed) != 0 {
		t.Fatalf("removed before reaching the limit: %v", env.ft.removed)
	}

	if err := env.run(t, "warn", adminJID, []string{"spam"}, mention); err != nil {
		t.Fatalf("final warn: %v", err)
	}
	if len(env.ft.removed) != 1 || env.ft.removed[0].User != memberJID.User {
		t.Fatalf("removed = %v, want [%s]", env.ft.removed, memberJID.User)
	}

	record, err := env.db.Warnings(testGroup.String(), memberJID.User)
	if err != nil {
		t.Fatalf("read warnings: %v", err)
	}
	if record.Count != 0 {
		t.Errorf("warnings after removal = %d, want 0", record.Count)
	}
}

func TestWarnKeepsRecordWhenRemovalFails(t *testing.T) {
	ft := &fakeTransport{meta: groupMeta(true), kickErr: fmt.Errorf("status 403 forbidden")}
	env := newTestEnv(t, ft)
	mention := []string{memberJID.String()}

	for i := 0; i < 3; i++ {
		err := env.run(t, "warn", adminJID, []string{"spam"}, mention)
		if i == 2 && err == nil {
			t.Fatal("final warn with failing removal returned nil error")
		}
	}

	record, err := env.db.Warnings(testGroup.String(), memberJID.User)
	if err != nil {
		t.Fatalf("read warnings: %v", err)
	}
	if record.Count != 3 {
		t.Errorf("warnings after failed removal = %d, want 3", record.Count)
	}
}

func TestKickRefusesBotAndTargetsMember(t *testing.T) {
	env := newTestEnv(t, &fakeTransport{meta: groupMeta(true)})

	if err := env.run(t, "kick", adminJID, nil, []string{botJID.String()}); err != nil {
		t.Fatalf("kick bot: %v", err)
	}
	if len(env.ft.removed) != 0 {
		t.Errorf("bot removed itself: %v", env.ft.removed)
	}

	if err := env.run(t, "kick", adminJID, nil, []string{memberJID.String()}); err != nil {
		t.Fatalf("kick member: %v", err)
	}
	if len(env.ft.removed) != 1 || env.ft.removed[0].User != memberJID.User {
		t.Errorf("removed = %v, want [%s]", env.ft.removed, memberJID.User)
	}
}

func TestMuteSetsAnnounce(t *testing.T) {
	env := newTestEnv(t, &fakeTransport{meta: groupMeta(true)})

	if err := env.run(t, "mute", adminJID, nil, nil); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if err := env.run(t, "unmute", adminJID, nil, nil); err != nil {
		t.Fatalf("unmute: %v", err)
	}

	want := []bool{true, false}
	if len(env.ft.announce) != 2 || env.ft.announce[0] != want[0] || env.ft.announce[1] != want[1] {
		t.Errorf("announce calls = %v, want %v", env.ft.announce, want)
	}
}

func TestTagallMentionsRoster(t *testing.T) {
	env := newTestEnv(t, &fakeTransport{meta: groupMeta(false)})

	if err := env.run(t, "tagall", adminJID, []string{"meeting", "now"}, nil); err != nil {
		t.Fatalf("tagall: %v", err)
	}

	if len(env.ft.mentions) != 1 {
		t.Fatalf("mention sends = %d, want 1", len(env.ft.mentions))
	}
	text := env.ft.mentions[0]
	if !strings.Contains(text, "meeting now") {
		t.Errorf("tagall dropped the header: %q", text)
	}
	for _, user := range []string{adminJID.User, botJID.User, memberJID.User} {
		if !strings.Contains(text, "@"+user) {
			t.Errorf("tagall missing @%s", user)
		}
	}
}

func TestSetPrefixPersists(t *testing.T) {
	env := newTestEnv(t, &fakeTransport{meta: groupMeta(false)})

	if err := env.run(t, "setprefix", adminJID, []string{"!"}, nil); err != nil {
		t.Fatalf("setprefix: %v", err)
	}
	if got := env.cfg.Get().Prefix; got != "!" {
		t.Errorf("prefix = %q, want !", got)
	}
}

func TestMenuListsCommands(t *testing.T) {
	env := newTestEnv(t, &fakeTransport{meta: groupMeta(false)})

	if err := env.run(t, "menu", memberJID, nil, nil); err != nil {
		t.Fatalf("menu: %v", err)
	}
	if len(env.ft.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(env.ft.replies))
	}
	for _, name := range []string{"antilink", "kick", "ping"} {
		if !strings.Contains(env.ft.replies[0], name) {
			t.Errorf("menu missing %q", name)
		}
	}
}

func TestModeratorLifecycle(t *testing.T) {
	env := newTestEnv(t, &fakeTransport{meta: groupMeta(false)})
	mention := []string{memberJID.String()}

	if err := env.run(t, "addmod", adminJID, nil, mention); err != nil {
		t.Fatalf("addmod: %v", err)
	}
	if !env.db.IsModerator(memberJID.User) {
		t.Error("member was not added as moderator")
	}

	if err := env.run(t, "mods", adminJID, nil, nil); err != nil {
		t.Fatalf("mods: %v", err)
	}
	if last := env.ft.replies[len(env.ft.replies)-1]; !strings.Contains(last, memberJID.User) {
		t.Errorf("mods listing missing %s: %q", memberJID.User, last)
	}

	if err := env.run(t, "delmod", adminJID, nil, mention); err != nil {
		t.Fatalf("delmod: %v", err)
	}
	if env.db.IsModerator(memberJID.User) {
		t.Error("member still moderator after delmod")
	}
}
