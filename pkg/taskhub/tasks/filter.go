package tasks

import (
	"fmt"

	"github.com/mleone/taskhub/pkg/taskhub/models"
	"github.com/mleone/taskhub/pkg/taskhub/tags"
	"gorm.io/gorm"
)

const (
	// DefaultPageSize is used when no page size is requested
	DefaultPageSize = 10
	// MaxPageSize caps the requested page size
	MaxPageSize = 100
)

// TagMatchMode governs how a multi-tag filter combines.
type TagMatchMode string

const (
	// TagMatchAll keeps tasks bearing every requested tag
	TagMatchAll TagMatchMode = "all"
	// TagMatchAny keeps tasks bearing at least one requested tag
	TagMatchAny TagMatchMode = "any"
)

// ParseTagMatchMode maps a raw string onto a match mode. Anything that is
// not "any" falls back to "all".
func ParseTagMatchMode(raw string) TagMatchMode {
	if raw == string(TagMatchAny) {
		return TagMatchAny
	}
	return TagMatchAll
}

// TagFilter is a filter specification over a task's tag set. The zero value
// matches every task. Names are held in canonical, deduplicated form so the
// "all" mode's required count is never inflated by duplicate input.
type TagFilter struct {
	mode  TagMatchMode
	names []string
}

// NewTagFilter canonicalizes the raw names (trim, lowercase, drop empty
// segments, deduplicate) and builds a filter. With no surviving names the
// filter is empty regardless of mode.
func NewTagFilter(mode TagMatchMode, rawNames []string) TagFilter {
	seen := make(map[string]bool, len(rawNames))
	names := make([]string, 0, len(rawNames))
	for _, raw := range rawNames {
		canonical := tags.Canonicalize(raw)
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true
		names = append(names, canonical)
	}
	if len(names) == 0 {
		return TagFilter{}
	}
	return TagFilter{mode: mode, names: names}
}

// Empty reports whether the filter matches every task.
func (f TagFilter) Empty() bool {
	return len(f.names) == 0
}

// matchingTaskIDs compiles the filter into a subquery selecting the IDs of
// tasks whose tag set satisfies it. "any" is plain membership; "all" keeps
// only tasks whose count of distinct matching names equals the request set
// size, i.e. their tag set is a superset of the request. Selecting IDs
// through a subquery also deduplicates the join rows before pagination.
func (f TagFilter) matchingTaskIDs(db *gorm.DB) *gorm.DB {
	q := db.Table("task_tags").
		Select("task_tags.task_id").
		Joins("JOIN tags ON tags.id = task_tags.tag_id").
		Where("tags.name IN ?", f.names)
	if f.mode == TagMatchAll {
		q = q.Group("task_tags.task_id").
			Having("COUNT(DISTINCT tags.name) = ?", len(f.names))
	}
	return q
}

// sortColumns whitelists the sortable fields. Unrecognized fields fall back
// to the default sort rather than erroring.
var sortColumns = map[string]string{
	"createdAt":  "created_at",
	"created_at": "created_at",
	"updatedAt":  "updated_at",
	"updated_at": "updated_at",
	"title":      "title",
	"completed":  "completed",
}

// ListFilter describes one task listing: optional predicates, sort and page.
// The same filter compiles the page query and the count query so that total
// and totalPages always agree with the returned items.
type ListFilter struct {
	Completed     *bool
	Tags          TagFilter
	SortField     string
	SortDirection string
	Page          int
	PageSize      int
}

func (f *ListFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// orderClause builds the ORDER BY for the page query. A tiebreak on id keeps
// pagination stable when sort keys collide.
func (f ListFilter) orderClause() string {
	column, ok := sortColumns[f.SortField]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if f.SortDirection == "ASC" || f.SortDirection == "asc" {
		direction = "ASC"
	}
	return fmt.Sprintf("tasks.%s %s, tasks.id %s", column, direction, direction)
}

// apply compiles the filter's predicates onto a fresh query. The ownership
// predicate is mandatory and applied first; everything else is ANDed in.
func (f ListFilter) apply(db *gorm.DB, userID uint) *gorm.DB {
	q := db.Model(&models.Task{}).Where("tasks.owner_id = ?", userID)
	if f.Completed != nil {
		q = q.Where("tasks.completed = ?", *f.Completed)
	}
	if !f.Tags.Empty() {
		q = q.Where("tasks.id IN (?)", f.Tags.matchingTaskIDs(db))
	}
	return q
}
