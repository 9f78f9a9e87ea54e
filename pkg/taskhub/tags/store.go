package tags

import (
	"errors"
	"strings"

	"github.com/mleone/taskhub/pkg/taskhub/apperrors"
	"github.com/mleone/taskhub/pkg/taskhub/models"
	"gorm.io/gorm"
)

const (
	// MaxNameLength matches the column size on models.Tag
	MaxNameLength = 50
	// DefaultAutocompleteLimit caps autocomplete results when no limit is given
	DefaultAutocompleteLimit = 10
)

// Store maintains the global tag vocabulary. Tag names are canonicalized
// (trimmed, lowercased) at every write boundary: the unique index on
// tags.name only enforces case-insensitive uniqueness if non-canonical
// forms never reach the table.
type Store struct {
	db *gorm.DB
}

// NewStore creates a tag store on the given database handle. Pass a
// transaction handle to run store operations inside that transaction.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Canonicalize returns the canonical form of a tag name: trimmed and
// lowercased. All comparisons and storage use this form.
func Canonicalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateName(name string) (string, error) {
	canonical := Canonicalize(name)
	if canonical == "" {
		return "", &apperrors.EmptyNameError{}
	}
	if len(canonical) > MaxNameLength {
		return "", &apperrors.ValidationError{Fields: map[string]string{
			"name": "must be at most 50 characters",
		}}
	}
	return canonical, nil
}

// FindOrCreate resolves a tag name to its canonical row, inserting one if it
// does not exist yet. Two concurrent callers may race on the insert; the
// loser detects the uniqueness violation and reads back the winner's row
// instead of surfacing the error.
func (s *Store) FindOrCreate(name string) (*models.Tag, error) {
	canonical, err := validateName(name)
	if err != nil {
		return nil, err
	}

	var tag models.Tag
	err = s.db.Where("LOWER(name) = ?", canonical).First(&tag).Error
	if err == nil {
		// Legacy rows may deviate in casing; callers always see the
		// canonical form.
		tag.Name = canonical
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tag = models.Tag{Name: canonical}
	if createErr := s.db.Create(&tag).Error; createErr != nil {
		// Lost the insert race: fall back to reading the winner's row.
		if readErr := s.db.Where("LOWER(name) = ?", canonical).First(&tag).Error; readErr == nil {
			tag.Name = canonical
			return &tag, nil
		}
		return nil, createErr
	}
	return &tag, nil
}

// userOwnsTaskWithTag reports whether the user owns at least one task bearing
// the tag. Owning such a task is what grants permission to mutate the shared
// tag; there is no stored ACL.
func (s *Store) userOwnsTaskWithTag(userID, tagID uint) (bool, error) {
	var count int64
	err := s.db.Table("task_tags").
		Joins("JOIN tasks ON tasks.id = task_tags.task_id").
		Where("task_tags.tag_id = ? AND tasks.owner_id = ?", tagID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rename changes a tag's name globally, visible to every user of the tag.
// The requesting user must own at least one task bearing the tag. Concurrent
// renames of the same tag are last-write-wins; the permission check is
// read-then-act and tolerates that window.
func (s *Store) Rename(tagID uint, newName string, userID uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.First(&tag, tagID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "tag"}
		}
		return nil, err
	}

	trimmed := strings.TrimSpace(newName)
	canonical, err := validateName(newName)
	if err != nil {
		return nil, err
	}

	owns, err := s.userOwnsTaskWithTag(userID, tag.ID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, &apperrors.PermissionError{Action: "rename tag"}
	}

	var other models.Tag
	if err := s.db.Where("LOWER(name) = ? AND id != ?", canonical, tag.ID).First(&other).Error; err == nil {
		// Report the attempted (trimmed) name, store only canonical form
		return nil, &apperrors.ConflictError{Name: trimmed}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tag.Name = canonical
	if err := s.db.Save(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// Delete removes a tag, but only when zero tasks system-wide still reference
// it. The reference check subsumes the ownership-derived permission rule:
// while any reference exists (the requester's or anyone else's) the result
// is InUseError, and once none exist there is nobody left who could derive
// ownership, so any authenticated user may remove the orphaned row.
func (s *Store) Delete(tagID uint, userID uint) error {
	var tag models.Tag
	if err := s.db.First(&tag, tagID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperrors.NotFoundError{Resource: "tag"}
		}
		return err
	}

	var refs int64
	if err := s.db.Table("task_tags").Where("tag_id = ?", tag.ID).Count(&refs).Error; err != nil {
		return err
	}
	if refs > 0 {
		return &apperrors.InUseError{Name: tag.Name, Count: refs}
	}

	return s.db.Delete(&tag).Error
}

// ListForUser returns the distinct tags attached to any task owned by the
// user, ordered by canonical name ascending.
func (s *Store) ListForUser(userID uint) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := s.db.Table("tags").
		Select("DISTINCT tags.id, tags.name").
		Joins("JOIN task_tags ON task_tags.tag_id = tags.id").
		Joins("JOIN tasks ON tasks.id = task_tags.task_id").
		Where("tasks.owner_id = ?", userID).
		Order("tags.name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Autocomplete returns up to limit tags used by the user's own tasks whose
// canonical name starts with the given prefix (case-insensitive). An empty
// prefix yields an empty list unless listAll is set, which behaves as
// ListForUser with no limit.
func (s *Store) Autocomplete(userID uint, prefix string, limit int, listAll bool) ([]models.Tag, error) {
	if listAll {
		return s.ListForUser(userID)
	}

	canonical := Canonicalize(prefix)
	if canonical == "" {
		return []models.Tag{}, nil
	}
	if limit <= 0 {
		limit = DefaultAutocompleteLimit
	}

	tags := []models.Tag{}
	err := s.db.Table("tags").
		Select("DISTINCT tags.id, tags.name").
		Joins("JOIN task_tags ON task_tags.tag_id = tags.id").
		Joins("JOIN tasks ON tasks.id = task_tags.task_id").
		Where("tasks.owner_id = ?", userID).
		Where(`tags.name LIKE ? ESCAPE '\'`, likeEscaper.Replace(canonical)+"%").
		Order("tags.name ASC").
		Limit(limit).
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}
