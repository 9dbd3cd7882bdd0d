package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownTable_SetGet(t *testing.T) {
	table := CooldownTable{}
	now := time.Now()

	_, ok := table.Get("alice", "v1")
	assert.False(t, ok)

	table.Set("alice", "v1", now)
	at, ok := table.Get("alice", "v1")
	assert.True(t, ok)
	assert.Equal(t, now, at)

	_, ok = table.Get("alice", "v2")
	assert.False(t, ok)
}

func TestCooldownTable_Prune(t *testing.T) {
	table := CooldownTable{}
	now := time.Now()
	table.Set("alice", "old1", now.Add(-25*time.Hour))
	table.Set("alice", "old2", now.Add(-48*time.Hour))
	table.Set("alice", "fresh", now.Add(-time.Hour))
	table.Set("bob", "old", now.Add(-48*time.Hour))

	removed := table.Prune("alice", now.Add(-CooldownRetention))
	assert.Equal(t, 2, removed)

	_, ok := table.Get("alice", "fresh")
	assert.True(t, ok)
	_, ok = table.Get("bob", "old")
	assert.True(t, ok, "prune is scoped to one username")
}

func TestCooldownTable_PruneDropsEmptyUser(t *testing.T) {
	table := CooldownTable{}
	now := time.Now()
	table.Set("alice", "old", now.Add(-48*time.Hour))

	assert.Equal(t, 1, table.Prune("alice", now.Add(-CooldownRetention)))
	assert.NotContains(t, table, "alice")
	assert.Equal(t, 0, table.Prune("nobody", now))
}

func TestInCooldown(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, InCooldown(at, at.Add(5*time.Minute), CooldownWindow))
	assert.False(t, InCooldown(at, at.Add(CooldownWindow), CooldownWindow))
	assert.False(t, InCooldown(at, at.Add(61*time.Minute), CooldownWindow))
}
