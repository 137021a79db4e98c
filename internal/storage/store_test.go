package storage

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/tag-bot/internal/models"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*TagStore, *FilePersister) {
	t.Helper()

	persister := NewFilePersister(filepath.Join(t.TempDir(), "tags.json"))
	store, err := NewTagStore(persister, zap.NewNop())
	require.NoError(t, err)

	return store, persister
}

func TestCreateThenGet(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Create("42", "greeting", "hello there", 7)
	require.NoError(t, err)
	assert.Equal(t, "greeting", created.Name)
	assert.Equal(t, "42", created.Location)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.Get("42", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "greeting", got.Name)
	assert.Equal(t, "hello there", got.Content)
	assert.Equal(t, int64(7), got.OwnerID)
	assert.Equal(t, 0, got.Uses)
}

func TestCreateWithoutGuildIsGeneric(t *testing.T) {
	store, _ := newTestStore(t)

	tag, err := store.Create("", "motd", "be kind", 1)
	require.NoError(t, err)
	assert.True(t, tag.IsGeneric())

	// Generic tags are visible from any guild context.
	got, err := store.Get("9000", "motd")
	require.NoError(t, err)
	assert.Equal(t, "be kind", got.Content)
}

func TestCreateDuplicateLeavesExistingUnchanged(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("", "greeting", "original", 1)
	require.NoError(t, err)

	_, err = store.Create("", "greeting", "usurper", 2)
	assert.ErrorIs(t, err, ErrTagExists)

	got, err := store.Get("", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Content)
	assert.Equal(t, int64(1), got.OwnerID)
}

func TestCreateAllowsShadowingGenericName(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("", "greeting", "generic hello", 1)
	require.NoError(t, err)

	// The duplicate check targets the guild's own namespace, so a guild may
	// shadow a generic name.
	_, err = store.Create("42", "greeting", "guild hello", 2)
	require.NoError(t, err)

	got, err := store.Get("42", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "guild hello", got.Content)

	got, err = store.Get("", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "generic hello", got.Content)
}

func TestCreateValidation(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("", "@everyone-ping", "boom", 1)
	assert.ErrorIs(t, err, ErrNameBlocked)

	_, err = store.Create("", "ping-@here-now", "boom", 1)
	assert.ErrorIs(t, err, ErrNameBlocked)

	_, err = store.Create("", strings.Repeat("a", 101), "too long", 1)
	assert.ErrorIs(t, err, ErrNameTooLong)

	_, err = store.Create("", strings.Repeat("a", 100), "just fits", 1)
	assert.NoError(t, err)

	_, err = store.Create("", "empty", "", 1)
	assert.ErrorIs(t, err, ErrEmptyContent)

	// Failed creates leave no trace behind.
	_, err = store.Get("", "empty")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditRequiresOwner(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("", "greeting", "hello", 1)
	require.NoError(t, err)

	_, err = store.Edit("", "greeting", "hijacked", 2)
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := store.Get("", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
}

func TestEditPreservesIdentity(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Create("", "greeting", "hello", 1)
	require.NoError(t, err)

	edited, err := store.Edit("", "greeting", "hello again", 1)
	require.NoError(t, err)
	assert.Equal(t, "hello again", edited.Content)
	assert.Equal(t, created.Name, edited.Name)
	assert.Equal(t, created.OwnerID, edited.OwnerID)
	assert.Equal(t, created.CreatedAt, edited.CreatedAt)
}

func TestEditFromGuildKeepsGenericTagGeneric(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("", "motd", "old", 1)
	require.NoError(t, err)

	// Editing a generic tag from inside a guild must not move it into the
	// guild's namespace.
	_, err = store.Edit("42", "motd", "new", 1)
	require.NoError(t, err)

	got, err := store.Get("", "motd")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Content)
	assert.True(t, got.IsGeneric())

	assert.Empty(t, store.Visible("")["motd"].Location)
	_, inGuildBucket := store.Visible("42")["motd"]
	assert.True(t, inGuildBucket)
}

func TestDeleteRequiresOwner(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("", "greeting", "hello", 1)
	require.NoError(t, err)

	err = store.Delete("", "greeting", 2)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = store.Get("", "greeting")
	assert.NoError(t, err)

	err = store.Delete("", "greeting", 1)
	require.NoError(t, err)

	_, err = store.Get("", "greeting")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIncrementUse(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("", "counter", "tick", 1)
	require.NoError(t, err)

	const n = 5
	for i := 1; i <= n; i++ {
		tag, err := store.IncrementUse("", "counter")
		require.NoError(t, err)
		assert.Equal(t, i, tag.Uses)

		// Unrelated mutations in other namespaces must not disturb the count.
		_, err = store.Create("99", "noise", "irrelevant", 2)
		if i == 1 {
			require.NoError(t, err)
		}
		_, err = store.IncrementUse("99", "noise")
		require.NoError(t, err)
	}

	got, err := store.Get("", "counter")
	require.NoError(t, err)
	assert.Equal(t, n, got.Uses)
}

func TestIncrementUseNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.IncrementUse("", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVisibleGuildOverridesGeneric(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("", "greeting", "generic hello", 1)
	require.NoError(t, err)
	_, err = store.Create("42", "greeting", "guild hello", 2)
	require.NoError(t, err)
	_, err = store.Create("", "other", "generic only", 1)
	require.NoError(t, err)

	visible := store.Visible("42")
	assert.Len(t, visible, 2)
	assert.Equal(t, "guild hello", visible["greeting"].Content)
	assert.Equal(t, "generic only", visible["other"].Content)

	// Without guild context only generic tags are visible.
	visible = store.Visible("")
	assert.Equal(t, "generic hello", visible["greeting"].Content)

	// Another guild sees the generic entry, not guild 42's override.
	visible = store.Visible("77")
	assert.Equal(t, "generic hello", visible["greeting"].Content)
}

func TestListSorted(t *testing.T) {
	store, _ := newTestStore(t)

	assert.Empty(t, store.List(""))

	for _, name := range []string{"zulu", "alpha", "mike"} {
		_, err := store.Create("", name, "content", 1)
		require.NoError(t, err)
	}
	_, err := store.Create("42", "bravo", "content", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "mike", "zulu"}, store.List(""))
	assert.Equal(t, []string{"alpha", "bravo", "mike", "zulu"}, store.List("42"))
}

func TestTagLifecycle(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("", "welcome", "Hi!", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"welcome"}, store.List(""))

	got, err := store.Get("", "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", got.Content)
	assert.Equal(t, 0, got.Uses)

	invoked, err := store.IncrementUse("", "welcome")
	require.NoError(t, err)
	assert.Equal(t, 1, invoked.Uses)

	err = store.Delete("", "welcome", 2)
	assert.ErrorIs(t, err, ErrNotOwner)

	err = store.Delete("", "welcome", 1)
	require.NoError(t, err)

	assert.Empty(t, store.List(""))
}

func TestStoreReloadsPersistedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.json")

	persister := NewFilePersister(path)
	store, err := NewTagStore(persister, zap.NewNop())
	require.NoError(t, err)

	_, err = store.Create("", "welcome", "Hi!", 1)
	require.NoError(t, err)
	_, err = store.Create("42", "rules", "be nice", 2)
	require.NoError(t, err)
	_, err = store.IncrementUse("", "welcome")
	require.NoError(t, err)

	// A second store over the same file sees the identical map.
	reloaded, err := NewTagStore(NewFilePersister(path), zap.NewNop())
	require.NoError(t, err)

	got, err := reloaded.Get("", "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", got.Content)
	assert.Equal(t, 1, got.Uses)
	assert.Equal(t, int64(1), got.OwnerID)

	got, err = reloaded.Get("42", "rules")
	require.NoError(t, err)
	assert.Equal(t, "be nice", got.Content)
	assert.Equal(t, "42", got.Location)
}

func TestConcurrentMutations(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create("", "counter", "tick", 1)
	require.NoError(t, err)

	const (
		workers    = 8
		iterations = 25
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			guild := strconv.Itoa(100 + w)
			for i := 0; i < iterations; i++ {
				_, err := store.IncrementUse("", "counter")
				assert.NoError(t, err)

				name := "tag-" + strconv.Itoa(i)
				_, err = store.Create(guild, name, "content", int64(w))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get("", "counter")
	require.NoError(t, err)
	assert.Equal(t, workers*iterations, got.Uses)

	for w := 0; w < workers; w++ {
		assert.Len(t, store.Visible(strconv.Itoa(100+w)), iterations+1)
	}
}

// failingPersister applies loads normally but can be switched to reject
// every save, mimicking a full or unwritable disk.
type failingPersister struct {
	fail  bool
	saved map[string]map[string]models.Tag
}

func (p *failingPersister) Load() (map[string]map[string]models.Tag, error) {
	return make(map[string]map[string]models.Tag), nil
}

func (p *failingPersister) Save(tags map[string]map[string]models.Tag) error {
	if p.fail {
		return errors.New("disk full")
	}
	p.saved = tags
	return nil
}

func (p *failingPersister) Close() error { return nil }

func TestSaveFailureKeepsMutationApplied(t *testing.T) {
	persister := &failingPersister{fail: true}
	store, err := NewTagStore(persister, zap.NewNop())
	require.NoError(t, err)

	// The error must reach the caller so success is never claimed...
	_, err = store.Create("", "greeting", "hello", 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	// ...but the in-memory mutation stays applied.
	got, err := store.Get("", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)

	// The next successful mutation persists the earlier one too.
	persister.fail = false
	_, err = store.Create("", "second", "world", 1)
	require.NoError(t, err)
	assert.Contains(t, persister.saved[GenericLocation], "greeting")
	assert.Contains(t, persister.saved[GenericLocation], "second")
}

func TestValidationFailureDoesNotSave(t *testing.T) {
	persister := &failingPersister{fail: true}
	store, err := NewTagStore(persister, zap.NewNop())
	require.NoError(t, err)

	// Validation and permission failures never reach the persister, so a
	// broken disk is irrelevant to them.
	_, err = store.Create("", "@everyone", "boom", 1)
	assert.ErrorIs(t, err, ErrNameBlocked)

	_, err = store.Edit("", "ghost", "content", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
