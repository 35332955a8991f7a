// ABOUTME: Outbound message model - types, conversation keys, media refs
// ABOUTME: Validation enforces the per-type required-field contract before any state is touched

package message

import "fmt"

// Type identifies the wire format of an outbound message. The numeric values
// are the platform's own msg_type codes and must not be renumbered.
type Type int

const (
	TypeText     Type = 0 // plain text
	TypeMixed    Type = 1 // text with inline images
	TypeMarkdown Type = 2 // markdown
	TypeArk      Type = 3 // ark template
	TypeEmbed    Type = 4 // embed card
	TypeMedia    Type = 7 // rich media (uploaded file)
)

// Valid reports whether t is one of the recognized message types.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeMixed, TypeMarkdown, TypeArk, TypeEmbed, TypeMedia:
		return true
	}
	return false
}

func (t Type) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeMixed:
		return "mixed"
	case TypeMarkdown:
		return "markdown"
	case TypeArk:
		return "ark"
	case TypeEmbed:
		return "embed"
	case TypeMedia:
		return "media"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ConversationKind distinguishes group chats from direct messages.
type ConversationKind string

const (
	KindGroup ConversationKind = "group"
	KindUser  ConversationKind = "user"
)

// ConversationKey identifies the unit of ordering, rate limiting, and queue
// capacity: one group or one direct-message peer.
type ConversationKey struct {
	Kind ConversationKind
	ID   string
}

// GroupKey returns the conversation key for a group chat.
func GroupKey(groupID string) ConversationKey {
	return ConversationKey{Kind: KindGroup, ID: groupID}
}

// UserKey returns the conversation key for a direct-message peer.
func UserKey(userID string) ConversationKey {
	return ConversationKey{Kind: KindUser, ID: userID}
}

func (k ConversationKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

// MediaRef is an opaque handle to an already-uploaded media file, produced by
// the platform's file-upload API and passed through unmodified.
type MediaRef struct {
	FileInfo string `json:"file_info"`
}

// Outbound is a message destined for a conversation. Sequence is assigned by
// the dispatch core, never by the caller.
type Outbound struct {
	Key      ConversationKey
	Content  string
	Type     Type
	MsgID    string
	Media    *MediaRef
	Sequence int64
}

// Validate checks the per-type required-field contract. It returns a
// *FatalError with CodeInvalidType on any structural problem so callers can
// short-circuit before touching shared state.
func (m *Outbound) Validate() error {
	if !m.Type.Valid() {
		return NewFatal(CodeInvalidType, fmt.Sprintf("invalid message type: %d", int(m.Type)), nil)
	}
	if m.MsgID == "" {
		return NewFatal(CodeInvalidType, "message id cannot be empty", nil)
	}
	switch m.Type {
	case TypeText, TypeMixed, TypeMarkdown, TypeArk, TypeEmbed:
		if m.Content == "" {
			return NewFatal(CodeInvalidType, fmt.Sprintf("%s message requires content", m.Type), nil)
		}
	case TypeMedia:
		if m.Media == nil || m.Media.FileInfo == "" {
			return NewFatal(CodeInvalidType, "media message requires a media payload", nil)
		}
	}
	return nil
}

// Outcome is the result of a send that did not fail. Either the message was
// delivered with the given sequence number, or it was suppressed as a recent
// duplicate and never reached the transport.
type Outcome struct {
	Sequence  int64
	Duplicate bool
}
