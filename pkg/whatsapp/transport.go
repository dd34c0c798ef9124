package whatsapp

import (
	"context"
	"errors"
	"time"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// Transport is the moderation-facing surface of the WhatsApp session. The
// dispatcher, policies and command handlers depend on this interface so tests
// can count and script the calls.
type Transport interface {
	SelfID() types.JID
	SelfLID() types.JID
	SendText(ctx context.Context, to types.JID, text string) (string, error)
	SendMentions(ctx context.Context, to types.JID, text string, mentions []types.JID) (string, error)
	SendReply(ctx context.Context, to types.JID, text string, quoted *events.Message) (string, error)
	React(ctx context.Context, chat types.JID, sender types.JID, messageID string, emoji string) error
	Revoke(ctx context.Context, chat types.JID, sender types.JID, messageID string) error
	RemoveParticipants(ctx context.Context, group types.JID, users []types.JID) error
	PromoteParticipants(ctx context.Context, group types.JID, users []types.JID) error
	DemoteParticipants(ctx context.Context, group types.JID, users []types.JID) error
	SetAnnounce(ctx context.Context, group types.JID, announce bool) error
	InviteLink(ctx context.Context, group types.JID, reset bool) (string, error)
	JoinedGroups(ctx context.Context) ([]*types.GroupInfo, error)
	RejectCall(ctx context.Context, caller types.JID, callID string) error
	BlockUser(ctx context.Context, user types.JID) error
	UnblockUser(ctx context.Context, user types.JID) error
	MarkRead(ctx context.Context, chat types.JID, sender types.JID, messageIDs []string) error
	ChatPresence(ctx context.Context, chat types.JID, composing bool) error
}

var _ Transport = (*Session)(nil)

func (s *Session) SendText(ctx context.Context, to types.JID, text string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return "", err
	}

	msgExtra := whatsmeow.SendRequestExtra{ID: client.GenerateMessageID()}
	msgContent := &waE2E.Message{Conversation: proto.String(text)}

	if _, err := client.SendMessage(ctx, to, msgContent, msgExtra); err != nil {
		return "", err
	}
	return msgExtra.ID, nil
}

func (s *Session) SendMentions(ctx context.Context, to types.JID, text string, mentions []types.JID) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return "", err
	}

	mentioned := make([]string, 0, len(mentions))
	for _, m := range mentions {
		if m.User != "" {
			mentioned = append(mentioned, m.String())
		}
	}

	msgExtra := whatsmeow.SendRequestExtra{ID: client.GenerateMessageID()}
	msgContent := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				MentionedJID: mentioned,
			},
		},
	}

	if _, err := client.SendMessage(ctx, to, msgContent, msgExtra); err != nil {
		return "", err
	}
	return msgExtra.ID, nil
}

func (s *Session) SendReply(ctx context.Context, to types.JID, text string, quoted *events.Message) (string, error) {
	if quoted == nil {
		return s.SendText(ctx, to, text)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return "", err
	}

	msgExtra := whatsmeow.SendRequestExtra{ID: client.GenerateMessageID()}
	msgContent := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(quoted.Info.ID),
				Participant:   proto.String(quoted.Info.Sender.String()),
				QuotedMessage: quoted.Message,
			},
		},
	}

	if _, err := client.SendMessage(ctx, to, msgContent, msgExtra); err != nil {
		return "", err
	}
	return msgExtra.ID, nil
}

func (s *Session) React(ctx context.Context, chat types.JID, sender types.JID, messageID string, emoji string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return err
	}

	if emoji != "" && !gomoji.ContainsEmoji(emoji) && uniseg.GraphemeClusterCount(emoji) != 1 {
		return errors.New("Reaction Must Be a Single Emoji")
	}

	msg := client.BuildReaction(chat, sender, messageID, emoji)
	_, err = client.SendMessage(ctx, chat, msg)
	return err
}

// Revoke deletes a message for everyone. Pass the offender's JID as sender to
// remove someone else's message as a group admin; types.EmptyJID revokes own
// messages.
func (s *Session) Revoke(ctx context.Context, chat types.JID, sender types.JID, messageID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return err
	}

	msg := client.BuildRevoke(chat, sender, messageID)
	_, err = client.SendMessage(ctx, chat, msg)
	return err
}

func (s *Session) updateParticipants(ctx context.Context, group types.JID, users []types.JID, change whatsmeow.ParticipantChange) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return err
	}
	if group.Server != types.GroupServer {
		return ErrInvalidGroupID
	}
	if len(users) == 0 {
		return errors.New("WhatsApp Participant List is Empty")
	}

	_, err = client.UpdateGroupParticipants(ctx, group, users, change)
	return err
}

func (s *Session) RemoveParticipants(ctx context.Context, group types.JID, users []types.JID) error {
	return s.updateParticipants(ctx, group, users, whatsmeow.ParticipantChangeRemove)
}

func (s *Session) PromoteParticipants(ctx context.Context, group types.JID, users []types.JID) error {
	return s.updateParticipants(ctx, group, users, whatsmeow.ParticipantChangePromote)
}

func (s *Session) DemoteParticipants(ctx context.Context, group types.JID, users []types.JID) error {
	return s.updateParticipants(ctx, group, users, whatsmeow.ParticipantChangeDemote)
}

func (s *Session) SetAnnounce(ctx context.Context, group types.JID, announce bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return err
	}
	if group.Server != types.GroupServer {
		return ErrInvalidGroupID
	}
	return client.SetGroupAnnounce(ctx, group, announce)
}

func (s *Session) InviteLink(ctx context.Context, group types.JID, reset bool) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return "", err
	}
	if group.Server != types.GroupServer {
		return "", ErrInvalidGroupID
	}
	return client.GetGroupInviteLink(ctx, group, reset)
}

func (s *Session) JoinedGroups(ctx context.Context) ([]*types.GroupInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return nil, err
	}
	return client.GetJoinedGroups(ctx)
}

// GroupInfo fetches live metadata for one group. GroupCache wraps this; most
// callers should go through the cache.
func (s *Session) GroupInfo(ctx context.Context, group types.JID) (*types.GroupInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return nil, err
	}
	return client.GetGroupInfo(ctx, group)
}

func (s *Session) RejectCall(ctx context.Context, caller types.JID, callID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return err
	}
	return client.RejectCall(ctx, caller, callID)
}

func (s *Session) BlockUser(ctx context.Context, user types.JID) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return err
	}
	_, err = client.UpdateBlocklist(ctx, user, "block")
	return err
}

func (s *Session) UnblockUser(ctx context.Context, user types.JID) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return err
	}
	_, err = client.UpdateBlocklist(ctx, user, "unblock")
	return err
}

func (s *Session) MarkRead(ctx context.Context, chat types.JID, sender types.JID, messageIDs []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return err
	}

	msgIDs := make([]types.MessageID, 0, len(messageIDs))
	for _, id := range messageIDs {
		msgIDs = append(msgIDs, types.MessageID(id))
	}
	return client.MarkRead(ctx, msgIDs, time.Now(), chat, sender)
}

func (s *Session) ChatPresence(ctx context.Context, chat types.JID, composing bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := s.ensureReady()
	if err != nil {
		return err
	}

	state := types.ChatPresencePaused
	if composing {
		state = types.ChatPresenceComposing
	}
	return client.SendChatPresence(ctx, chat, state, types.ChatPresenceMediaText)
}
