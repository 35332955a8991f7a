// ABOUTME: Tests for the outbound message model and per-type validation
// ABOUTME: Covers the required-field contract for every message type

package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_Valid(t *testing.T) {
	for _, typ := range []Type{TypeText, TypeMixed, TypeMarkdown, TypeArk, TypeEmbed, TypeMedia} {
		assert.True(t, typ.Valid(), typ.String())
	}

	// 5 and 6 are holes in the platform's numbering
	assert.False(t, Type(5).Valid())
	assert.False(t, Type(6).Valid())
	assert.False(t, Type(99).Valid())
	assert.False(t, Type(-1).Valid())
}

func TestOutbound_Validate_Text(t *testing.T) {
	msg := &Outbound{
		Key:     GroupKey("group-1"),
		Content: "hello",
		Type:    TypeText,
		MsgID:   "msg-1",
	}
	assert.NoError(t, msg.Validate())
}

func TestOutbound_Validate_InvalidType(t *testing.T) {
	msg := &Outbound{
		Key:     GroupKey("group-1"),
		Content: "hello",
		Type:    Type(42),
		MsgID:   "msg-1",
	}

	err := msg.Validate()
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, CodeInvalidType, ErrCode(err))
}

func TestOutbound_Validate_EmptyContent(t *testing.T) {
	for _, typ := range []Type{TypeText, TypeMixed, TypeMarkdown, TypeArk, TypeEmbed} {
		msg := &Outbound{
			Key:   GroupKey("group-1"),
			Type:  typ,
			MsgID: "msg-1",
		}
		err := msg.Validate()
		require.Error(t, err, typ.String())
		assert.True(t, IsFatal(err), typ.String())
	}
}

func TestOutbound_Validate_EmptyMsgID(t *testing.T) {
	msg := &Outbound{
		Key:     GroupKey("group-1"),
		Content: "hello",
		Type:    TypeText,
	}
	assert.Error(t, msg.Validate())
}

func TestOutbound_Validate_Media(t *testing.T) {
	// Media without a payload is rejected
	msg := &Outbound{
		Key:   GroupKey("group-1"),
		Type:  TypeMedia,
		MsgID: "msg-1",
	}
	err := msg.Validate()
	require.Error(t, err)
	assert.Equal(t, CodeInvalidType, ErrCode(err))

	// Media with a payload passes, content optional
	msg.Media = &MediaRef{FileInfo: "file-info-blob"}
	assert.NoError(t, msg.Validate())
}

func TestConversationKey_String(t *testing.T) {
	assert.Equal(t, "group:g1", GroupKey("g1").String())
	assert.Equal(t, "user:u1", UserKey("u1").String())

	// Keys are comparable and distinct across kinds
	assert.NotEqual(t, GroupKey("x"), UserKey("x"))
}
