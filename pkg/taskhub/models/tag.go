package models

// Tag represents a label shared across all users. Names are stored in
// canonical form only (trimmed, lowercased), so the unique index doubles as
// the case-insensitive uniqueness constraint.
type Tag struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"size:50;uniqueIndex;not null" json:"name"`

	// Relationships
	Tasks []Task `gorm:"many2many:task_tags;" json:"tasks,omitempty"`
}
