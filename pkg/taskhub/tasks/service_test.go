package tasks

import (
	"errors"
	"testing"

	"github.com/mleone/taskhub/pkg/taskhub/apperrors"
	"github.com/mleone/taskhub/pkg/taskhub/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	user := models.User{
		Username:     username,
		PasswordHash: "x",
		SystemRole:   models.SystemRoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTask(t *testing.T, svc *Service, ownerID uint, title string, completed bool, tagNames ...string) *models.Task {
	task, err := svc.Create(ownerID, CreateTaskInput{
		Title:     title,
		Completed: completed,
		TagNames:  tagNames,
	})
	if err != nil {
		t.Fatalf("Create(%q) failed: %v", title, err)
	}
	return task
}

func tagNames(task models.Task) []string {
	names := make([]string, 0, len(task.Tags))
	for _, tag := range task.Tags {
		names = append(names, tag.Name)
	}
	return names
}

func TestCreateWithDuplicateTagVariants(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	task := createTask(t, svc, user.ID, "Write report", false, "work", "WORK", " Work ")

	if len(task.Tags) != 1 {
		t.Fatalf("Expected 1 tag, got %d: %v", len(task.Tags), tagNames(*task))
	}
	if task.Tags[0].Name != "work" {
		t.Errorf("Expected tag 'work', got %q", task.Tags[0].Name)
	}

	var count int64
	db.Model(&models.Tag{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 tag row, got %d", count)
	}
}

func TestCreateWithoutTags(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	task := createTask(t, svc, user.ID, "Untagged", false)

	if task.Tags == nil {
		t.Error("Expected empty tag slice, got nil")
	}
	if len(task.Tags) != 0 {
		t.Errorf("Expected 0 tags, got %d", len(task.Tags))
	}
}

func TestGetByIDScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	task := createTask(t, svc, alice.ID, "Private", false)

	_, err := svc.GetByID(task.ID, bob.ID)
	var notFound *apperrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("Expected NotFoundError for another user's task, got %v", err)
	}
}

func TestUpdatePartial(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	task := createTask(t, svc, user.ID, "Draft", false, "work")

	completed := true
	updated, err := svc.Update(task.ID, user.ID, UpdateTaskInput{Completed: &completed})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if !updated.Completed {
		t.Error("Expected task to be completed")
	}
	if updated.Title != "Draft" {
		t.Errorf("Expected title unchanged, got %q", updated.Title)
	}
	if len(updated.Tags) != 1 || updated.Tags[0].Name != "work" {
		t.Errorf("Expected tags unchanged, got %v", tagNames(*updated))
	}
}

func TestUpdateReplacesTagSet(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	task := createTask(t, svc, user.ID, "Draft", false, "work", "urgent")

	newTags := []string{"Home", "home", "garden"}
	updated, err := svc.Update(task.ID, user.ID, UpdateTaskInput{TagNames: &newTags})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	names := tagNames(*updated)
	if len(names) != 2 {
		t.Fatalf("Expected 2 tags, got %v", names)
	}
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["home"] || !found["garden"] {
		t.Errorf("Expected [garden home], got %v", names)
	}
}

func TestUpdateWithEmptyTagListClearsTags(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	task := createTask(t, svc, user.ID, "Draft", false, "work")

	empty := []string{}
	updated, err := svc.Update(task.ID, user.ID, UpdateTaskInput{TagNames: &empty})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if len(updated.Tags) != 0 {
		t.Errorf("Expected no tags, got %v", tagNames(*updated))
	}

	// The tag row itself survives the dissociation
	var count int64
	db.Model(&models.Tag{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected tag row to survive, got %d rows", count)
	}
}

func TestUpdateMonotonicTimestamp(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	task := createTask(t, svc, user.ID, "Draft", false)

	title1 := "First"
	first, err := svc.Update(task.ID, user.ID, UpdateTaskInput{Title: &title1})
	if err != nil {
		t.Fatalf("First update failed: %v", err)
	}

	title2 := "Second"
	second, err := svc.Update(task.ID, user.ID, UpdateTaskInput{Title: &title2})
	if err != nil {
		t.Fatalf("Second update failed: %v", err)
	}

	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("Expected UpdatedAt to advance: first=%v second=%v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestDeleteTaskKeepsTags(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	task := createTask(t, svc, user.ID, "Doomed", false, "keepme")

	deleted, err := svc.Delete(task.ID, user.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted {
		t.Error("Expected delete to report a removed row")
	}

	var tagCount int64
	db.Model(&models.Tag{}).Count(&tagCount)
	if tagCount != 1 {
		t.Errorf("Expected tag to survive task deletion, got %d rows", tagCount)
	}

	var refCount int64
	db.Table("task_tags").Count(&refCount)
	if refCount != 0 {
		t.Errorf("Expected no leftover associations, got %d", refCount)
	}
}

func TestDeleteMissingTask(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	deleted, err := svc.Delete(999, user.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted {
		t.Error("Expected no row removed for missing task")
	}
}

func TestDeleteScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	task := createTask(t, svc, alice.ID, "Private", false)

	deleted, err := svc.Delete(task.ID, bob.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted {
		t.Error("Expected delete by non-owner to remove nothing")
	}

	if _, err := svc.GetByID(task.ID, alice.ID); err != nil {
		t.Errorf("Expected task to still exist for its owner: %v", err)
	}
}

func TestListMatchModes(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	createTask(t, svc, user.ID, "Both", false, "a", "b")
	createTask(t, svc, user.ID, "JustA", false, "a")
	createTask(t, svc, user.ID, "BAndC", false, "b", "c")

	all, err := svc.List(user.ID, ListFilter{Tags: NewTagFilter(TagMatchAll, []string{"a", "b"})})
	if err != nil {
		t.Fatalf("List(all) failed: %v", err)
	}
	if all.Total != 1 || len(all.Items) != 1 {
		t.Fatalf("Expected 1 task for all-mode [a b], got total=%d items=%d", all.Total, len(all.Items))
	}
	if all.Items[0].Title != "Both" {
		t.Errorf("Expected 'Both', got %q", all.Items[0].Title)
	}

	any, err := svc.List(user.ID, ListFilter{Tags: NewTagFilter(TagMatchAny, []string{"a", "b"})})
	if err != nil {
		t.Fatalf("List(any) failed: %v", err)
	}
	if any.Total != 3 || len(any.Items) != 3 {
		t.Errorf("Expected 3 tasks for any-mode [a b], got total=%d items=%d", any.Total, len(any.Items))
	}
}

func TestListAllModeWithDuplicateFilterNames(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	createTask(t, svc, user.ID, "Tagged", false, "work")

	result, err := svc.List(user.ID, ListFilter{
		Tags: NewTagFilter(TagMatchAll, []string{"work", "WORK", " Work "}),
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("Expected duplicate filter names to collapse, got total=%d", result.Total)
	}
}

func TestListFullTagSetOnFilteredTasks(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	createTask(t, svc, user.ID, "Multi", false, "alpha", "beta", "gamma")

	result, err := svc.List(user.ID, ListFilter{Tags: NewTagFilter(TagMatchAny, []string{"alpha"})})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(result.Items))
	}
	if len(result.Items[0].Tags) != 3 {
		t.Errorf("Expected the full tag set on the result, got %v", tagNames(result.Items[0]))
	}
}

func TestListCompletedAndTagsCombined(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	createTask(t, svc, user.ID, "DoneWork", true, "work")
	createTask(t, svc, user.ID, "OpenWork", false, "work")
	createTask(t, svc, user.ID, "DoneHome", true, "home")

	completed := true
	result, err := svc.List(user.ID, ListFilter{
		Completed: &completed,
		Tags:      NewTagFilter(TagMatchAll, []string{"work"}),
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 || len(result.Items) != 1 {
		t.Fatalf("Expected exactly 1 match, got total=%d items=%d", result.Total, len(result.Items))
	}
	if result.Items[0].Title != "DoneWork" {
		t.Errorf("Expected 'DoneWork', got %q", result.Items[0].Title)
	}
}

func TestListScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	createTask(t, svc, alice.ID, "Alice task", false, "shared")
	createTask(t, svc, bob.ID, "Bob task", false, "shared")

	result, err := svc.List(alice.ID, ListFilter{Tags: NewTagFilter(TagMatchAny, []string{"shared"})})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("Expected 1 task, got %d", result.Total)
	}
	if result.Items[0].Title != "Alice task" {
		t.Errorf("Expected only alice's task, got %q", result.Items[0].Title)
	}
}

func TestListCountConsistentAcrossPages(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	for i := 0; i < 7; i++ {
		createTask(t, svc, user.ID, "Task", false, "bulk", "extra")
	}

	filter := ListFilter{
		Tags:     NewTagFilter(TagMatchAny, []string{"bulk", "extra"}),
		PageSize: 3,
	}

	var fetched int
	for page := 1; ; page++ {
		filter.Page = page
		result, err := svc.List(user.ID, filter)
		if err != nil {
			t.Fatalf("List page %d failed: %v", page, err)
		}
		if result.Total != 7 {
			t.Errorf("Page %d: expected total 7, got %d", page, result.Total)
		}
		if result.TotalPages != 3 {
			t.Errorf("Page %d: expected 3 total pages, got %d", page, result.TotalPages)
		}
		fetched += len(result.Items)
		if len(result.Items) == 0 {
			break
		}
		if page > result.TotalPages {
			break
		}
	}

	if fetched != 7 {
		t.Errorf("Expected pages to sum to 7 tasks, got %d", fetched)
	}
}

func TestListPageBeyondLast(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	createTask(t, svc, user.ID, "Only", false)

	result, err := svc.List(user.ID, ListFilter{Page: 50, PageSize: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Items) != 0 {
		t.Errorf("Expected empty page, got %d items", len(result.Items))
	}
	if result.Total != 1 {
		t.Errorf("Expected total 1 on an out-of-range page, got %d", result.Total)
	}
}

func TestListSortByTitleAscending(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	createTask(t, svc, user.ID, "banana", false)
	createTask(t, svc, user.ID, "apple", false)
	createTask(t, svc, user.ID, "cherry", false)

	result, err := svc.List(user.ID, ListFilter{SortField: "title", SortDirection: "asc"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	expected := []string{"apple", "banana", "cherry"}
	for i, title := range expected {
		if result.Items[i].Title != title {
			t.Errorf("Position %d: expected %q, got %q", i, title, result.Items[i].Title)
		}
	}
}

func TestReplaceTags(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	task := createTask(t, svc, user.ID, "Draft", false, "old")

	if err := svc.ReplaceTags(task.ID, []string{"new"}, user.ID); err != nil {
		t.Fatalf("ReplaceTags failed: %v", err)
	}

	reloaded, err := svc.GetByID(task.ID, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(reloaded.Tags) != 1 || reloaded.Tags[0].Name != "new" {
		t.Errorf("Expected [new], got %v", tagNames(*reloaded))
	}
}

func TestAttachTagsPreservesExisting(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "alice")

	task := createTask(t, svc, user.ID, "Draft", false, "first")

	if err := svc.AttachTags(task.ID, []string{"second", "FIRST"}, user.ID); err != nil {
		t.Fatalf("AttachTags failed: %v", err)
	}

	reloaded, err := svc.GetByID(task.ID, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(reloaded.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %v", tagNames(*reloaded))
	}
}
