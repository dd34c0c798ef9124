package whatsapp

import (
	"testing"

	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow/proto/waE2E"
)

func textMessage(text string) *waE2E.Message {
	return &waE2E.Message{Conversation: proto.String(text)}
}

func TestUnwrapPlainMessage(t *testing.T) {
	msg := textMessage("hello")
	content, kind := Unwrap(msg)
	if kind != EnvelopeNone {
		t.Errorf("kind = %v, want EnvelopeNone", kind)
	}
	if ExtractText(content) != "hello" {
		t.Errorf("text = %q", ExtractText(content))
	}
}

func TestUnwrapEphemeral(t *testing.T) {
	msg := &waE2E.Message{
		EphemeralMessage: &waE2E.FutureProofMessage{Message: textMessage("vanishing")},
	}
	content, kind := Unwrap(msg)
	if kind != EnvelopeEphemeral {
		t.Errorf("kind = %v, want EnvelopeEphemeral", kind)
	}
	if ExtractText(content) != "vanishing" {
		t.Errorf("text = %q", ExtractText(content))
	}
}

func TestUnwrapNestedEphemeralViewOnce(t *testing.T) {
	inner := &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{Caption: proto.String("pic")},
	}
	msg := &waE2E.Message{
		EphemeralMessage: &waE2E.FutureProofMessage{
			Message: &waE2E.Message{
				ViewOnceMessageV2: &waE2E.FutureProofMessage{Message: inner},
			},
		},
	}

	content, kind := Unwrap(msg)
	if kind != EnvelopeEphemeral {
		t.Errorf("kind = %v, want outermost EnvelopeEphemeral", kind)
	}
	if ExtractText(content) != "pic" {
		t.Errorf("text = %q, want pic", ExtractText(content))
	}
	if !HasVisualMedia(content) {
		t.Error("expected visual media after unwrap")
	}
}

func TestUnwrapDocumentCaption(t *testing.T) {
	msg := &waE2E.Message{
		DocumentWithCaptionMessage: &waE2E.FutureProofMessage{
			Message: &waE2E.Message{
				DocumentMessage: &waE2E.DocumentMessage{Caption: proto.String("report")},
			},
		},
	}
	content, kind := Unwrap(msg)
	if kind != EnvelopeDocumentCaption {
		t.Errorf("kind = %v, want EnvelopeDocumentCaption", kind)
	}
	if ExtractText(content) != "report" {
		t.Errorf("text = %q", ExtractText(content))
	}
}

func TestMentionedJIDs(t *testing.T) {
	msg := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String("hi @everyone"),
			ContextInfo: &waE2E.ContextInfo{
				MentionedJID: []string{"263770000001@s.whatsapp.net", "263770000002@s.whatsapp.net"},
			},
		},
	}
	if got := MentionedJIDs(msg); len(got) != 2 {
		t.Errorf("mentions = %v", got)
	}
	if got := MentionedJIDs(textMessage("plain")); len(got) != 0 {
		t.Errorf("mentions on plain text = %v", got)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		text      string
		forbidden bool
		rate      bool
	}{
		{"info query returned status 403 (forbidden)", true, false},
		{"info query returned status 429 (rate-overlimit)", false, true},
		{"websocket disconnected", false, false},
	}
	for _, c := range cases {
		err := errorText(c.text)
		if IsForbiddenError(err) != c.forbidden {
			t.Errorf("IsForbiddenError(%q) = %v", c.text, !c.forbidden)
		}
		if IsRateLimitError(err) != c.rate {
			t.Errorf("IsRateLimitError(%q) = %v", c.text, !c.rate)
		}
	}
	if IsForbiddenError(nil) || IsRateLimitError(nil) {
		t.Error("nil error misclassified")
	}
}

type errorText string

func (e errorText) Error() string { return string(e) }
