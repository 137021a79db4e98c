package storage

import (
	"errors"

	"github.com/xaenox/tag-bot/internal/models"
)

// GenericLocation is the namespace key for tags visible in every chat.
const GenericLocation = "generic"

// MaxNameLength is the longest permitted tag name.
const MaxNameLength = 100

// blockedSubstrings must never appear in a tag name: a tag whose name is
// echoed back into chat would otherwise smuggle a broadcast mention.
var blockedSubstrings = []string{"@everyone", "@here"}

var (
	ErrNotFound     = errors.New("tag not found")
	ErrTagExists    = errors.New("tag already exists")
	ErrNotOwner     = errors.New("requester does not own the tag")
	ErrNameTooLong  = errors.New("tag name exceeds the length limit")
	ErrNameBlocked  = errors.New("tag name contains blocked words")
	ErrEmptyContent = errors.New("tag content must not be empty")
)

// Persister durably stores the complete namespace map. Implementations must
// guarantee that a failed Save leaves the previously persisted state intact.
type Persister interface {
	Load() (map[string]map[string]models.Tag, error)
	Save(tags map[string]map[string]models.Tag) error
	Close() error
}
