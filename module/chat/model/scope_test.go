package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrivateScopeIsDirectionless(t *testing.T) {
	assert.Equal(t, PrivateScope("bob", "alice"), PrivateScope("alice", "bob"))
	assert.Equal(t, Scope("p2p:alice_bob"), PrivateScope("bob", "alice"))
}

func TestPeerOf(t *testing.T) {
	s := PrivateScope("alice", "bob")
	assert.Equal(t, "bob", s.PeerOf("alice"))
	assert.Equal(t, "alice", s.PeerOf("bob"))
	assert.Empty(t, s.PeerOf("mallory"))
	assert.Empty(t, GroupScope("g1").PeerOf("alice"))
}

func TestScopeKinds(t *testing.T) {
	assert.True(t, ScopeGlobal.IsGlobal())
	assert.True(t, GroupScope("g1").IsGroup())
	assert.True(t, PrivateScope("a", "b").IsPrivate())
	assert.Equal(t, "g1", GroupScope("g1").GroupID())

	a, b := PrivateScope("b", "a").PrivateUsers()
	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)
}

func TestPrivateScopeUnderscoreIDs(t *testing.T) {
	// ID 自带下划线也要能无损拆回
	s := PrivateScope("u", "v_w")
	a, b := s.PrivateUsers()
	assert.Equal(t, "u", a)
	assert.Equal(t, "v_w", b)
	assert.Equal(t, "v_w", s.PeerOf("u"))
	assert.Equal(t, "u", s.PeerOf("v_w"))
	assert.True(t, s.Valid())

	// 不同的对绝不折叠成同一个 scope
	assert.NotEqual(t, PrivateScope("u", "v_w"), PrivateScope("u_v", "w"))
	assert.Equal(t, PrivateScope("v_w", "u"), s, "still directionless")

	// 转义字符本身也要可逆
	s2 := PrivateScope("a%5F", "b%")
	x, y := s2.PrivateUsers()
	assert.ElementsMatch(t, []string{"a%5F", "b%"}, []string{x, y})

	// 普通ID的规范形式不变
	assert.Equal(t, Scope("p2p:alice_bob"), PrivateScope("bob", "alice"))
}

func TestScopeValid(t *testing.T) {
	assert.True(t, ScopeGlobal.Valid())
	assert.True(t, GroupScope("g1").Valid())
	assert.True(t, PrivateScope("a", "b").Valid())

	assert.False(t, Scope("").Valid())
	assert.False(t, Scope("grp:").Valid())
	assert.False(t, Scope("bogus").Valid())
}
