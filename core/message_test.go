package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.True(t, RoleSystem.Valid())
	assert.False(t, Role("tool").Valid())
	assert.False(t, Role("").Valid())
}

func TestMessageConstructors(t *testing.T) {
	u := NewUserMessage("hi")
	assert.Equal(t, RoleUser, u.Role)
	assert.Equal(t, "hi", u.Content)
	assert.NotEmpty(t, u.ID)
	assert.Nil(t, u.Metadata)

	a := NewAssistantMessage("hello")
	assert.Equal(t, RoleAssistant, a.Role)
	assert.NotEqual(t, u.ID, a.ID)
}

func TestNewRawResultMessage(t *testing.T) {
	m := NewRawResultMessage("get_os_name", "Linux")
	assert.Equal(t, RoleAssistant, m.Role)
	assert.Equal(t, "```\nLinux\n```", m.Content)
	if assert.NotNil(t, m.Metadata) {
		assert.Equal(t, "raw_result_get_os_name", m.Metadata.ID)
		assert.Equal(t, "result_get_os_name", m.Metadata.ParentID)
		assert.Equal(t, "Raw Output", m.Metadata.Title)
	}
}
