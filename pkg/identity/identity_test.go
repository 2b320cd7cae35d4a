package identity

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credvault/credvault/pkg/model"
)

func TestIdentity_Accessors(t *testing.T) {
	u := &model.User{ID: 7, Username: "alice", IsStaff: true}
	ip := net.ParseIP("192.168.1.100")

	id := FromUser(u).WithRemoteIP(ip)

	assert.Equal(t, uint(7), id.UserID())
	assert.Equal(t, "alice", id.Username())
	assert.True(t, id.IsStaff())
	assert.Equal(t, ip, id.RemoteIP)
}

func TestIdentity_Anonymous(t *testing.T) {
	var id *Identity
	assert.Zero(t, id.UserID())
	assert.Empty(t, id.Username())
	assert.False(t, id.IsStaff())

	empty := &Identity{}
	assert.Zero(t, empty.UserID())
	assert.False(t, empty.IsStaff())
}

func TestContextGetSet(t *testing.T) {
	ctx := context.Background()

	id, ok := Get(ctx)
	assert.False(t, ok)
	assert.Nil(t, id)

	expected := FromUser(&model.User{ID: 3, Username: "bob"})
	ctx = Set(ctx, expected)

	id, ok = Get(ctx)
	assert.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, expected.User.ID, id.UserID())
	assert.Equal(t, "bob", id.Username())
}
