package trust

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/pathakanu/chronobot/internal/chat"
	"github.com/pathakanu/chronobot/internal/chat/chattest"
	"github.com/pathakanu/chronobot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	rows      map[model.ChatID]model.TrustedChat
	listErr   error
	insertErr error
}

func newFakeStore(ids ...model.ChatID) *fakeStore {
	s := &fakeStore{rows: map[model.ChatID]model.TrustedChat{}}
	for _, id := range ids {
		s.rows[id] = model.TrustedChat{ChatID: id}
	}
	return s
}

func (s *fakeStore) ListTrustedIDs(context.Context) ([]model.ChatID, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var ids []model.ChatID
	for id := range s.rows {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeStore) InsertTrusted(_ context.Context, c *model.TrustedChat) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.rows[c.ChatID]; ok {
		return errors.New("duplicate")
	}
	s.rows[c.ChatID] = *c
	return nil
}

var auth = Authentication{Prompt: "password?", Password: "open sesame", Authorized: "welcome"}

func newTestGate(t *testing.T, store *fakeStore) (*Gate, *chattest.Messenger) {
	t.Helper()
	m := chattest.NewMessenger()
	g, err := New(context.Background(), store, m, auth, zap.NewNop())
	require.NoError(t, err)
	return g, m
}

// assertCacheInStore checks that every cached id is persisted.
func assertCacheInStore(t *testing.T, g *Gate, store *fakeStore) {
	t.Helper()
	for _, id := range g.TrustedIDs() {
		_, ok := store.rows[id]
		assert.True(t, ok, "cached chat %d missing from store", id)
	}
}

func TestNewWarmsCache(t *testing.T) {
	t.Parallel()
	store := newFakeStore(1, 2)
	g, _ := newTestGate(t, store)

	ids := g.TrustedIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, []model.ChatID{1, 2}, ids)
	assert.True(t, g.Admit(context.Background(), chat.Update{Chat: 1, Text: "list"}))
}

func TestNewFailsWhenStoreFails(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.listErr = errors.New("db down")

	_, err := New(context.Background(), store, chattest.NewMessenger(), auth, zap.NewNop())
	assert.ErrorContains(t, err, "db down")
}

func TestPasswordGrantsTrustWithOneMessageLag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()
	g, m := newTestGate(t, store)

	admitted := g.Admit(ctx, chat.Update{Chat: 7, Text: "open sesame", Username: "whatsapp:+7", Title: "Ana"})
	assert.False(t, admitted, "the password message itself is consumed by the gate")
	assert.True(t, g.Trusted(7))
	assert.Equal(t, []string{"welcome"}, m.Texts(7))
	assert.Empty(t, m.Left())

	row := store.rows[7]
	require.NotNil(t, row.Username)
	require.NotNil(t, row.Title)
	assert.Equal(t, "whatsapp:+7", *row.Username)
	assert.Equal(t, "Ana", *row.Title)

	assert.True(t, g.Admit(ctx, chat.Update{Chat: 7, Text: "list"}))
	assertCacheInStore(t, g, store)
}

func TestWrongPasswordLeaves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()
	g, m := newTestGate(t, store)

	for _, text := range []string{"open sesame ", "OPEN SESAME", "hello", ""} {
		assert.False(t, g.Admit(ctx, chat.Update{Chat: 9, Text: text}), text)
	}
	assert.Equal(t, []model.ChatID{9, 9, 9, 9}, m.Left())
	assert.False(t, g.Trusted(9))
	assert.Empty(t, store.rows)
	assert.Empty(t, m.Sent())
}

func TestJoinSendsPromptOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()
	g, m := newTestGate(t, store)

	assert.False(t, g.Admit(ctx, chat.Update{Chat: 3, Joined: true, Text: "open sesame"}))
	assert.Equal(t, []string{"password?"}, m.Texts(3))
	assert.Empty(t, m.Left(), "a join event must not be evaluated as a password attempt")
	assert.False(t, g.Trusted(3))

	m.FailSends(3, errors.New("offline"))
	assert.False(t, g.Admit(ctx, chat.Update{Chat: 3, Joined: true}))
}

func TestJoinOnTrustedChatIsNotAdmitted(t *testing.T) {
	t.Parallel()
	g, m := newTestGate(t, newFakeStore(4))

	assert.False(t, g.Admit(context.Background(), chat.Update{Chat: 4, Joined: true}))
	assert.Equal(t, []string{"password?"}, m.Texts(4))
	assert.True(t, g.Trusted(4))
}

func TestStoreFailureKeepsCacheBehindStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	g, m := newTestGate(t, store)

	assert.False(t, g.Admit(ctx, chat.Update{Chat: 5, Text: "open sesame"}))
	assert.False(t, g.Trusted(5))
	assert.Empty(t, m.Sent())
	assert.Empty(t, m.Left())
	assertCacheInStore(t, g, store)

	store.insertErr = nil
	assert.False(t, g.Admit(ctx, chat.Update{Chat: 5, Text: "open sesame"}))
	assert.True(t, g.Trusted(5))
	assertCacheInStore(t, g, store)
}

func TestAuthorizedSendFailureStillTrusts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()
	g, m := newTestGate(t, store)
	m.FailSends(6, errors.New("offline"))

	assert.False(t, g.Admit(ctx, chat.Update{Chat: 6, Text: "open sesame"}))
	assert.True(t, g.Trusted(6))
	assert.True(t, g.Admit(ctx, chat.Update{Chat: 6, Text: "anything"}))
}
