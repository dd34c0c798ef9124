package whatsapp

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
)

// Envelope identifies the transport container a message content arrived in.
type Envelope int

const (
	EnvelopeNone Envelope = iota
	EnvelopeEphemeral
	EnvelopeViewOnce
	EnvelopeViewOnceV2
	EnvelopeDocumentCaption
)

// Unwrap strips transport envelope wrappers (ephemeral, view-once, document
// caption) until the actual content payload is reached. Wrappers can nest;
// the outermost recognized kind is reported. Unknown shapes pass through
// untouched.
func Unwrap(msg *waE2E.Message) (*waE2E.Message, Envelope) {
	kind := EnvelopeNone
	for msg != nil {
		switch {
		case msg.GetEphemeralMessage().GetMessage() != nil:
			msg = msg.GetEphemeralMessage().GetMessage()
			if kind == EnvelopeNone {
				kind = EnvelopeEphemeral
			}
		case msg.GetViewOnceMessage().GetMessage() != nil:
			msg = msg.GetViewOnceMessage().GetMessage()
			if kind == EnvelopeNone {
				kind = EnvelopeViewOnce
			}
		case msg.GetViewOnceMessageV2().GetMessage() != nil:
			msg = msg.GetViewOnceMessageV2().GetMessage()
			if kind == EnvelopeNone {
				kind = EnvelopeViewOnceV2
			}
		case msg.GetDocumentWithCaptionMessage().GetMessage() != nil:
			msg = msg.GetDocumentWithCaptionMessage().GetMessage()
			if kind == EnvelopeNone {
				kind = EnvelopeDocumentCaption
			}
		default:
			return msg, kind
		}
	}
	return msg, kind
}

// ExtractText pulls the human-visible text out of a content payload: plain
// conversation, extended text, or a media caption.
func ExtractText(msg *waE2E.Message) string {
	switch {
	case msg == nil:
		return ""
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage() != nil:
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetCaption()
	default:
		return ""
	}
}

// ContextInfoOf returns the context info of whichever content shape carries
// one, or nil.
func ContextInfoOf(msg *waE2E.Message) *waE2E.ContextInfo {
	switch {
	case msg == nil:
		return nil
	case msg.GetExtendedTextMessage() != nil:
		return msg.GetExtendedTextMessage().GetContextInfo()
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetContextInfo()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetContextInfo()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetContextInfo()
	case msg.GetStickerMessage() != nil:
		return msg.GetStickerMessage().GetContextInfo()
	case msg.GetAudioMessage() != nil:
		return msg.GetAudioMessage().GetContextInfo()
	default:
		return nil
	}
}

// MentionedJIDs returns the structured mention list of a content payload.
func MentionedJIDs(msg *waE2E.Message) []string {
	if info := ContextInfoOf(msg); info != nil {
		return info.GetMentionedJID()
	}
	return nil
}

// HasVisualMedia reports whether the payload carries an image or video,
// used for auto-sticker routing.
func HasVisualMedia(msg *waE2E.Message) bool {
	if msg == nil {
		return false
	}
	return msg.GetImageMessage() != nil || msg.GetVideoMessage() != nil
}
