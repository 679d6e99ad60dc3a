package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/internal/store"
	"github.com/adalparedes/adalcore/pkg/logger"
)

func newTestService(t *testing.T) (*ConversationService, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewConversationService(st, nil, logger.NewNop()), st
}

func TestTierLimit(t *testing.T) {
	tests := []struct {
		tier  string
		limit int
	}{
		{"free", 5},
		{"piojoso", 5},
		{"bronze", 20},
		{"novato", 20},
		{"novata", 20},
		{"silver", 50},
		{"jefe", 50},
		{"patrona", 50},
		{"gold", 100},
		{"rey", 100},
		{"reina", 100},
		{"premium", 100},
		{"GOLD", 100},
		{"", 5},
		{"tier_del_futuro", 5},
	}

	for _, tt := range tests {
		limit, limited := TierLimit(tt.tier, false)
		assert.True(t, limited, tt.tier)
		assert.Equal(t, tt.limit, limit, tt.tier)
	}

	_, limited := TierLimit("free", true)
	assert.False(t, limited, "admins have no limit")
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Nuevo Comando", CleanTitle(""))
	assert.Equal(t, "hola mundo", CleanTitle("<b>hola</b> mundo"))
	assert.Equal(t, "Nuevo Comando", CleanTitle("<script>"))
	assert.Equal(t, strings.Repeat("a", 40), CleanTitle(strings.Repeat("a", 80)))
	assert.Equal(t, "con acentosáé", CleanTitle("con acentosáé"))
}

func TestCleanTitleTruncatesOnRuneBoundary(t *testing.T) {
	// An accented rune straddling the 40-character cut must survive the
	// truncation whole, never as a dangling lead byte.
	title := CleanTitle(strings.Repeat("a", 39) + "é más texto")
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, strings.Repeat("a", 39)+"é", title)
	assert.Equal(t, 40, utf8.RuneCountInString(title))
}

func TestCreateAtLimitArchivesSingleOldest(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	// Fill a free-tier user to the limit of 5.
	var first *model.Conversation
	for i := 0; i < 5; i++ {
		conv, err := svc.Create(ctx, "user-1", "charla", "free", false)
		require.NoError(t, err)
		if i == 0 {
			first = conv
		}
		// Creation timestamps must be strictly ordered for oldest-first.
		time.Sleep(2 * time.Millisecond)
	}

	count, err := st.CountActive("user-1")
	require.NoError(t, err)
	require.Equal(t, 5, count)

	// The sixth creation archives exactly the oldest and still succeeds.
	sixth, err := svc.Create(ctx, "user-1", "la sexta", "free", false)
	require.NoError(t, err)
	require.NotNil(t, sixth)

	count, err = st.CountActive("user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	archived, err := st.GetConversation(first.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)
}

func TestCreateAdminBypassesLimit(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := svc.Create(ctx, "admin-1", "charla", "free", true)
		require.NoError(t, err)
	}

	count, err := st.CountActive("admin-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.Create(ctx, "user-1", "mía", "free", false)
	require.NoError(t, err)

	got, err := svc.Get(ctx, "user-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = svc.Get(ctx, "user-2", conv.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, "user-1", "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetArchivedReportsNotFound(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	conv, err := svc.Create(ctx, "user-1", "vieja", "free", false)
	require.NoError(t, err)
	require.NoError(t, st.ArchiveConversation(conv.ID))

	_, err = svc.Get(ctx, "user-1", conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.Create(ctx, "user-1", "a borrar", "free", false)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "user-2", conv.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, "user-1", conv.ID))

	_, err = svc.Get(ctx, "user-1", conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTitlesAreCleaned(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", "<h1>inyección</h1>", "free", false)
	require.NoError(t, err)

	convs, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "inyección", convs[0].Title)
}
