package models

import "time"

// Task represents a unit of work owned by exactly one user.
// Tasks are hard-deleted: the task_tags join rows must actually go away so
// that tag reference counts stay accurate.
type Task struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Completed   bool      `gorm:"default:false" json:"completed"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`

	// Relationships
	Owner User  `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Tags  []Tag `gorm:"many2many:task_tags;constraint:OnDelete:CASCADE" json:"tags"`
}
