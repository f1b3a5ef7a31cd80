package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPersonaCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Persona{Owner: "alice", Name: "Skeptic", Description: "questions everything"}
	require.NoError(t, s.CreatePersona(ctx, p))
	require.NotEmpty(t, p.ID)
	require.False(t, p.CreatedAt.IsZero())

	got, err := s.GetPersona(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Skeptic", got.Name)
	assert.Equal(t, "questions everything", got.Description)

	p.Name = "Hardened Skeptic"
	require.NoError(t, s.UpdatePersona(ctx, p))
	got, err = s.GetPersona(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hardened Skeptic", got.Name)

	list, err := s.ListPersonas(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeletePersona(ctx, "alice", p.ID))
	_, err = s.GetPersona(ctx, "alice", p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersonaOwnerScoping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Persona{Owner: "alice", Name: "Fan", Description: "loves everything"}
	require.NoError(t, s.CreatePersona(ctx, p))

	_, err := s.GetPersona(ctx, "bob", p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeletePersona(ctx, "bob", p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.ListPersonas(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAgoraCRUDWithMembers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1 := &Persona{Owner: "alice", Name: "One", Description: "d"}
	p2 := &Persona{Owner: "alice", Name: "Two", Description: "d"}
	require.NoError(t, s.CreatePersona(ctx, p1))
	require.NoError(t, s.CreatePersona(ctx, p2))

	a := &Agora{Owner: "alice", Name: "Panel", Description: "test panel", PersonaIDs: []string{p1.ID, p2.ID}}
	require.NoError(t, s.CreateAgora(ctx, a))

	got, err := s.GetAgora(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{p1.ID, p2.ID}, got.PersonaIDs)

	// Replace the member set.
	a.PersonaIDs = []string{p2.ID}
	require.NoError(t, s.UpdateAgora(ctx, a))
	got, err = s.GetAgora(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{p2.ID}, got.PersonaIDs)

	list, err := s.ListAgoras(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{p2.ID}, list[0].PersonaIDs)

	require.NoError(t, s.DeleteAgora(ctx, "alice", a.ID))
	_, err = s.GetAgora(ctx, "alice", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAgoraRejectsForeignPersonas(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	theirs := &Persona{Owner: "bob", Name: "Bob's", Description: "d"}
	require.NoError(t, s.CreatePersona(ctx, theirs))

	a := &Agora{Owner: "alice", Name: "Panel", PersonaIDs: []string{theirs.ID}}
	err := s.CreateAgora(ctx, a)
	assert.ErrorIs(t, err, ErrNotFound)

	// The failed transaction must not leave a partial agora behind.
	list, listErr := s.ListAgoras(ctx, "alice")
	require.NoError(t, listErr)
	assert.Empty(t, list)
}

func TestDeletingPersonaRemovesMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Persona{Owner: "alice", Name: "Member", Description: "d"}
	require.NoError(t, s.CreatePersona(ctx, p))

	a := &Agora{Owner: "alice", Name: "Panel", PersonaIDs: []string{p.ID}}
	require.NoError(t, s.CreateAgora(ctx, a))

	require.NoError(t, s.DeletePersona(ctx, "alice", p.ID))

	got, err := s.GetAgora(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PersonaIDs)
}

func TestSharedPostLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	post := &SharedPost{Owner: "alice", Idea: "beta launch", VariantText: "Try our beta!", Score: 42}
	require.NoError(t, s.CreateSharedPost(ctx, post))
	assert.Equal(t, PostStatusPending, post.Status)

	approved, err := s.SetSharedPostStatus(ctx, "alice", post.ID, PostStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, PostStatusApproved, approved.Status)

	// Terminal states cannot move again.
	_, err = s.SetSharedPostStatus(ctx, "alice", post.ID, PostStatusRejected)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.SetSharedPostStatus(ctx, "alice", post.ID, PostStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, s.DeleteSharedPost(ctx, "alice", post.ID))
	_, err = s.GetSharedPost(ctx, "alice", post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSharedPostRejection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	post := &SharedPost{Owner: "alice", Idea: "idea", VariantText: "text", Score: -10}
	require.NoError(t, s.CreateSharedPost(ctx, post))

	rejected, err := s.SetSharedPostStatus(ctx, "alice", post.ID, PostStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, PostStatusRejected, rejected.Status)
}

func TestSharedPostStatusUnknownValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	post := &SharedPost{Owner: "alice", Idea: "idea", VariantText: "text"}
	require.NoError(t, s.CreateSharedPost(ctx, post))

	_, err := s.SetSharedPostStatus(ctx, "alice", post.ID, PostStatus("archived"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSharedPostListOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, idea := range []string{"first", "second"} {
		require.NoError(t, s.CreateSharedPost(ctx, &SharedPost{Owner: "alice", Idea: idea, VariantText: "v"}))
	}

	posts, err := s.ListSharedPosts(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, posts, 2)
}
