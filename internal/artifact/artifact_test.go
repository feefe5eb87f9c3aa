package artifact

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iurnickita/primelabel/internal/artifact/config"
)

func TestArtifactsSaveOpen(t *testing.T) {
	ctx := context.Background()
	a, err := NewArtifacts(ctx, config.Config{Secret: "s3cr3t"})
	require.NoError(t, err)
	defer a.Close()

	ticket, err := a.Save(ctx, "^XA^XZ\n^XA^XZ")
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), ticket.ExpiresAt, time.Minute)

	content, err := a.Open(ctx, ticket.Token)
	require.NoError(t, err)
	assert.Equal(t, "^XA^XZ\n^XA^XZ", content)

	_, err = a.Open(ctx, ticket.Token+"x")
	require.ErrorIs(t, err, ErrInvalidTicket)

	// чужой ключ
	other, err := New(NewMemStore(), "other", time.Minute)
	require.NoError(t, err)
	_, err = other.Open(ctx, ticket.Token)
	require.ErrorIs(t, err, ErrInvalidTicket)
}

func TestArtifactsRequireSecret(t *testing.T) {
	_, err := New(NewMemStore(), "", time.Minute)
	require.Error(t, err)
}

func TestTicketExpired(t *testing.T) {
	tickets := NewTickets("s3cr3t")
	token, err := tickets.Issue("id-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = tickets.Parse(token)
	require.ErrorIs(t, err, ErrExpiredTicket)

	token, err = tickets.Issue("id-1", time.Now().Add(time.Minute))
	require.NoError(t, err)
	id, err := tickets.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
}

func TestMemStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	s := &memStore{entries: make(map[string]memEntry), now: func() time.Time { return now }}

	require.NoError(t, s.Put(ctx, "a", "label", time.Minute))
	content, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "label", content)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "b", "label", time.Minute))
	assert.Len(t, s.entries, 1)

	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
