package tasks

import (
	"errors"
	"time"

	"github.com/mleone/taskhub/pkg/taskhub/apperrors"
	"github.com/mleone/taskhub/pkg/taskhub/models"
	"github.com/mleone/taskhub/pkg/taskhub/tags"
	"gorm.io/gorm"
)

// Service orchestrates task CRUD and the task-tag associations. Typed errors
// from the tag store pass through unchanged so the HTTP layer can map them.
type Service struct {
	db *gorm.DB
}

// NewService creates a task service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateTaskInput holds the fields for a new task
type CreateTaskInput struct {
	Title       string
	Description string
	Completed   bool
	TagNames    []string
}

// UpdateTaskInput holds a partial update. Nil fields are left untouched; a
// non-nil TagNames (even an empty slice) replaces the whole tag set.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Completed   *bool
	TagNames    *[]string
}

// ListResult is one page of tasks plus the totals computed from the same
// filter predicates.
type ListResult struct {
	Items      []models.Task
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// attachTags resolves each name through the canonical tag store and appends
// the association. Input is deduplicated case-insensitively after trimming,
// and appending an already-associated tag is a no-op.
func attachTags(tx *gorm.DB, task *models.Task, tagNames []string) error {
	store := tags.NewStore(tx)
	seen := make(map[string]bool, len(tagNames))
	for _, raw := range tagNames {
		canonical := tags.Canonicalize(raw)
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true

		tag, err := store.FindOrCreate(raw)
		if err != nil {
			return err
		}
		if err := tx.Model(task).Association("Tags").Append(tag); err != nil {
			return err
		}
	}
	return nil
}

// findOwned loads a task only if it belongs to the user. A task owned by
// someone else is indistinguishable from a missing one.
func (s *Service) findOwned(taskID, userID uint) (*models.Task, error) {
	var task models.Task
	err := s.db.Where("id = ? AND owner_id = ?", taskID, userID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "task"}
		}
		return nil, err
	}
	return &task, nil
}

// Create inserts a task for the owner and attaches any requested tags, then
// rereads it through the same path as GetByID so create/read/update all
// return the same shape.
func (s *Service) Create(ownerID uint, in CreateTaskInput) (*models.Task, error) {
	task := models.Task{
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
		OwnerID:     ownerID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		if len(in.TagNames) > 0 {
			return attachTags(tx, &task, in.TagNames)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(task.ID, ownerID)
}

// GetByID returns the task with its full tag list, or NotFoundError when it
// does not exist or belongs to another user.
func (s *Service) GetByID(taskID, userID uint) (*models.Task, error) {
	var task models.Task
	err := s.db.Preload("Tags").Where("id = ? AND owner_id = ?", taskID, userID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "task"}
		}
		return nil, err
	}
	if task.Tags == nil {
		task.Tags = []models.Tag{}
	}
	return &task, nil
}

// Update applies a partial update. UpdatedAt always moves strictly forward,
// even for back-to-back updates within the clock's resolution.
func (s *Service) Update(taskID, userID uint, in UpdateTaskInput) (*models.Task, error) {
	task, err := s.findOwned(taskID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Completed != nil {
		updates["completed"] = *in.Completed
	}

	now := time.Now().UTC()
	if !now.After(task.UpdatedAt) {
		now = task.UpdatedAt.Add(time.Microsecond)
	}
	updates["updated_at"] = now

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(task).Updates(updates).Error; err != nil {
			return err
		}
		if in.TagNames != nil {
			if err := tx.Model(task).Association("Tags").Clear(); err != nil {
				return err
			}
			return attachTags(tx, task, *in.TagNames)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(taskID, userID)
}

// Delete removes the task and its tag associations. Tags themselves survive
// even when the deleted task was their last reference; only an explicit tag
// delete removes them. Returns whether a row was actually removed.
func (s *Service) Delete(taskID, userID uint) (bool, error) {
	task, err := s.findOwned(taskID, userID)
	if err != nil {
		var notFound *apperrors.NotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(task).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(task).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// AttachTags adds tags to an owned task without touching its existing set.
func (s *Service) AttachTags(taskID uint, tagNames []string, ownerID uint) error {
	task, err := s.findOwned(taskID, ownerID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return attachTags(tx, task, tagNames)
	})
}

// ReplaceTags clears an owned task's associations and attaches the new set.
// An empty list leaves the task with zero tags.
func (s *Service) ReplaceTags(taskID uint, tagNames []string, ownerID uint) error {
	task, err := s.findOwned(taskID, ownerID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(task).Association("Tags").Clear(); err != nil {
			return err
		}
		return attachTags(tx, task, tagNames)
	})
}

// List returns one page of the user's tasks under the filter. The count
// query is compiled from the same filter as the page query, so Total and
// TotalPages stay consistent with the items under every combination,
// including the all-mode group-and-count semantics.
func (s *Service) List(userID uint, filter ListFilter) (*ListResult, error) {
	filter.normalize()

	var total int64
	if err := filter.apply(s.db, userID).Count(&total).Error; err != nil {
		return nil, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	}

	items := []models.Task{}
	err := filter.apply(s.db, userID).
		Order(filter.orderClause()).
		Limit(filter.PageSize).
		Offset((filter.Page - 1) * filter.PageSize).
		Preload("Tags").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	// Returned tasks carry their full tag list, not just the matching ones
	for i := range items {
		if items[i].Tags == nil {
			items[i].Tags = []models.Tag{}
		}
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}
