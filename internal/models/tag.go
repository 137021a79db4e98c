package models

import "time"

// Tag is a named text snippet, scoped either globally ("generic") or to a
// single group chat.
type Tag struct {
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	OwnerID   int64     `json:"owner_id"`
	Uses      int       `json:"uses"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTag builds a fresh tag with zero uses. Location is empty for generic
// tags and the guild identifier otherwise; CreatedAt is set once here and
// never changes.
func NewTag(name, content string, ownerID int64, location string) Tag {
	return Tag{
		Name:      name,
		Content:   content,
		OwnerID:   ownerID,
		Location:  location,
		CreatedAt: time.Now().UTC(),
	}
}

// IsGeneric reports whether the tag is visible in every chat rather than
// bound to one group.
func (t Tag) IsGeneric() bool {
	return t.Location == ""
}
