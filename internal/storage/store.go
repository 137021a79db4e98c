package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xaenox/tag-bot/internal/models"
	"go.uber.org/zap"
)

// TagStore is the sole owner of the namespace map. Every read and mutation
// runs under one mutex, and every mutation rewrites the persisted document
// before the lock is released, so callers never observe a torn state.
//
// Guild context is passed as a string identifier; the empty string means
// the caller is outside any group (direct-message scope). Tag names are
// expected to be lowercase already — normalization is the caller's job.
type TagStore struct {
	mu        sync.Mutex
	tags      map[string]map[string]models.Tag
	persister Persister
	logger    *zap.Logger
}

// NewTagStore loads the persisted namespace map through the persister.
// A load failure is returned to the caller: starting with an empty store
// while persisted state exists but is unreadable would silently lose data.
func NewTagStore(persister Persister, logger *zap.Logger) (*TagStore, error) {
	tags, err := persister.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if tags == nil {
		tags = make(map[string]map[string]models.Tag)
	}

	return &TagStore{
		tags:      tags,
		persister: persister,
		logger:    logger,
	}, nil
}

// Visible returns every tag usable in the given guild context: generic tags
// merged with the guild's own, the guild's entry winning on a shared name.
func (s *TagStore) Visible(guildID string) map[string]models.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.visible(guildID)
}

// Get looks a name up in the visible set for the guild context.
func (s *TagStore) Get(guildID, name string) (models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, _, err := s.find(guildID, name)
	return tag, err
}

// Create validates and stores a new tag in the target namespace: the
// guild's own when called from a guild, generic otherwise. The new record
// starts with zero uses.
func (s *TagStore) Create(guildID, name, content string, ownerID int64) (models.Tag, error) {
	if err := verifyTagName(name); err != nil {
		return models.Tag{}, err
	}
	if content == "" {
		return models.Tag{}, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	location := locationKey(guildID)
	if _, exists := s.tags[location][name]; exists {
		return models.Tag{}, ErrTagExists
	}

	tag := models.NewTag(name, content, ownerID, guildID)
	s.put(location, tag)

	if err := s.save(); err != nil {
		return tag, err
	}
	return tag, nil
}

// Edit replaces the content of an existing tag. Only the owner may edit;
// name, owner and creation time are preserved, and the tag stays in the
// namespace it was created in regardless of where the edit came from.
func (s *TagStore) Edit(guildID, name, content string, requesterID int64) (models.Tag, error) {
	if content == "" {
		return models.Tag{}, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tag, home, err := s.find(guildID, name)
	if err != nil {
		return models.Tag{}, err
	}
	if tag.OwnerID != requesterID {
		return models.Tag{}, ErrNotOwner
	}

	tag.Content = content
	s.put(home, tag)

	if err := s.save(); err != nil {
		return tag, err
	}
	return tag, nil
}

// Delete removes a tag from its namespace. Only the owner may delete.
func (s *TagStore) Delete(guildID, name string, requesterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, home, err := s.find(guildID, name)
	if err != nil {
		return err
	}
	if tag.OwnerID != requesterID {
		return ErrNotOwner
	}

	delete(s.tags[home], name)
	return s.save()
}

// IncrementUse records one successful invocation of the tag and returns the
// updated record.
func (s *TagStore) IncrementUse(guildID, name string) (models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, home, err := s.find(guildID, name)
	if err != nil {
		return models.Tag{}, err
	}

	tag.Uses++
	s.put(home, tag)

	if err := s.save(); err != nil {
		return tag, err
	}
	return tag, nil
}

// List returns the names of the visible set in ascending order.
func (s *TagStore) List(guildID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := s.visible(guildID)
	names := make([]string, 0, len(visible))
	for name := range visible {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// visible merges the generic namespace with the guild's. Callers hold the
// lock. The returned map is freshly built, so it stays valid after release.
func (s *TagStore) visible(guildID string) map[string]models.Tag {
	merged := make(map[string]models.Tag)
	for name, tag := range s.tags[GenericLocation] {
		merged[name] = tag
	}
	if guildID != "" {
		for name, tag := range s.tags[guildID] {
			merged[name] = tag
		}
	}
	return merged
}

// find resolves a name against the visible set and reports the namespace
// the tag actually lives in, so mutations write back to the tag's home
// bucket rather than the caller's. Callers hold the lock.
func (s *TagStore) find(guildID, name string) (models.Tag, string, error) {
	if guildID != "" {
		if tag, ok := s.tags[guildID][name]; ok {
			return tag, guildID, nil
		}
	}
	if tag, ok := s.tags[GenericLocation][name]; ok {
		return tag, GenericLocation, nil
	}
	return models.Tag{}, "", ErrNotFound
}

// put writes a tag into a namespace, creating the bucket lazily if it does
// not exist yet. Callers hold the lock.
func (s *TagStore) put(location string, tag models.Tag) {
	bucket := s.tags[location]
	if bucket == nil {
		bucket = make(map[string]models.Tag)
		s.tags[location] = bucket
	}
	bucket[tag.Name] = tag
}

// save persists the whole map while the lock is held. On failure the
// in-memory mutation stays applied; the caller reports the error so the
// user is never told the change is durable when it is not.
func (s *TagStore) save() error {
	if err := s.persister.Save(s.tags); err != nil {
		s.logger.Error("Failed to persist tags", zap.Error(err))
		return fmt.Errorf("failed to persist tags: %w", err)
	}
	return nil
}

// locationKey maps a guild context to its namespace key.
func locationKey(guildID string) string {
	if guildID == "" {
		return GenericLocation
	}
	return guildID
}

// verifyTagName denies names that would be unusable or unsafe as keys.
func verifyTagName(name string) error {
	for _, blocked := range blockedSubstrings {
		if strings.Contains(name, blocked) {
			return ErrNameBlocked
		}
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}
