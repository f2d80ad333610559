package link

import (
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/lynkpage/core/internal/database"
	"github.com/lynkpage/core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// A single connection keeps every query on the same in-memory database
	// and serializes the concurrent reorder writes.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db, nil)
}

func createTestUser(t *testing.T, db *gorm.DB, handle string) string {
	t.Helper()
	u := models.UserModel{Username: handle, Name: handle, Password: "x"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", handle, err)
	}
	return u.ID
}

func validDTO(slug string) *LinkDTO {
	return &LinkDTO{
		Slug:  slug,
		Title: "My " + slug,
		URL:   "https://example.com/" + slug,
	}
}

func TestCreateAssignsSequentialOrder(t *testing.T) {
	svc := newTestService(t)
	owner := createTestUser(t, svc.db, "alice")

	for i, slug := range []string{"first", "second", "third"} {
		l, err := svc.Create(owner, validDTO(slug))
		if err != nil {
			t.Fatalf("create %s: %v", slug, err)
		}
		if l.Order != i {
			t.Errorf("link %s: order = %d, want %d", slug, l.Order, i)
		}
		if !l.IsActive {
			t.Errorf("link %s: expected active by default", slug)
		}
	}
}

func TestCreateSlugConflictSameOwnerOnly(t *testing.T) {
	svc := newTestService(t)
	alice := createTestUser(t, svc.db, "alice")
	bob := createTestUser(t, svc.db, "bob")

	if _, err := svc.Create(alice, validDTO("github")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(alice, validDTO("github")); !errors.Is(err, errSlugTaken) {
		t.Fatalf("duplicate slug for same owner: err = %v, want errSlugTaken", err)
	}
	// Another owner may reuse the slug.
	if _, err := svc.Create(bob, validDTO("github")); err != nil {
		t.Fatalf("same slug for other owner: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	owner := createTestUser(t, svc.db, "alice")

	start := time.Now()
	end := start.Add(-time.Hour)

	tests := []struct {
		name string
		dto  *LinkDTO
	}{
		{"empty slug", &LinkDTO{Slug: "", Title: "t", URL: "https://example.com"}},
		{"uppercase slug", &LinkDTO{Slug: "GitHub", Title: "t", URL: "https://example.com"}},
		{"slug with space", &LinkDTO{Slug: "my link", Title: "t", URL: "https://example.com"}},
		{"empty title", &LinkDTO{Slug: "ok", Title: "  ", URL: "https://example.com"}},
		{"relative url", &LinkDTO{Slug: "ok", Title: "t", URL: "/nope"}},
		{"no host", &LinkDTO{Slug: "ok", Title: "t", URL: "https://"}},
		{"unknown category", &LinkDTO{Slug: "ok", Title: "t", URL: "https://example.com", Category: "blog"}},
		{"end before start", &LinkDTO{Slug: "ok", Title: "t", URL: "https://example.com", StartDate: &start, EndDate: &end}},
		{"end equals start", &LinkDTO{Slug: "ok", Title: "t", URL: "https://example.com", StartDate: &start, EndDate: &start}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(owner, tt.dto); !errors.Is(err, errInvalidLink) {
				t.Errorf("err = %v, want errInvalidLink", err)
			}
		})
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	svc := newTestService(t)
	owner := createTestUser(t, svc.db, "alice")

	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	inactive := false
	dto := &LinkDTO{
		Slug:        "launch",
		Title:       "Launch Party",
		URL:         "https://example.com/launch?src=bio",
		Icon:        "rocket",
		Description: "limited time",
		Category:    models.CategoryProjects,
		IsActive:    &inactive,
		StartDate:   &start,
		EndDate:     &end,
	}
	created, err := svc.Create(owner, dto)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.GetByID(owner, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Slug != dto.Slug || got.Title != dto.Title || got.URL != dto.URL {
		t.Errorf("identity fields = %q %q %q", got.Slug, got.Title, got.URL)
	}
	if got.Icon != dto.Icon || got.Description != dto.Description || got.Category != dto.Category {
		t.Errorf("detail fields = %q %q %q", got.Icon, got.Description, got.Category)
	}
	if got.IsActive {
		t.Error("IsActive = true, want supplied false")
	}
	if got.StartDate == nil || !got.StartDate.Equal(start) {
		t.Errorf("start date = %v, want %v", got.StartDate, start)
	}
	if got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Errorf("end date = %v, want %v", got.EndDate, end)
	}
}

func TestGetByIDScopedToOwner(t *testing.T) {
	svc := newTestService(t)
	alice := createTestUser(t, svc.db, "alice")
	bob := createTestUser(t, svc.db, "bob")

	l, err := svc.Create(alice, validDTO("github"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.GetByID(alice, l.ID)
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if got.Slug != "github" {
		t.Errorf("slug = %q, want github", got.Slug)
	}

	// A foreign link and a missing link answer identically.
	if _, err := svc.GetByID(bob, l.ID); !errors.Is(err, errNotFound) {
		t.Errorf("foreign get: err = %v, want errNotFound", err)
	}
	if _, err := svc.GetByID(alice, "no-such-id"); !errors.Is(err, errNotFound) {
		t.Errorf("missing get: err = %v, want errNotFound", err)
	}
}

func TestUpdateSlugChange(t *testing.T) {
	svc := newTestService(t)
	owner := createTestUser(t, svc.db, "alice")

	a, err := svc.Create(owner, validDTO("aaa"))
	if err != nil {
		t.Fatalf("create aaa: %v", err)
	}
	if _, err := svc.Create(owner, validDTO("bbb")); err != nil {
		t.Fatalf("create bbb: %v", err)
	}

	// Renaming onto a taken slug conflicts.
	dto := validDTO("bbb")
	if _, err := svc.Update(owner, a.ID, dto); !errors.Is(err, errSlugTaken) {
		t.Fatalf("rename to taken slug: err = %v, want errSlugTaken", err)
	}

	// Keeping the same slug is fine, order survives the update.
	dto = validDTO("aaa")
	dto.Title = "Renamed"
	updated, err := svc.Update(owner, a.ID, dto)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Order != a.Order {
		t.Errorf("order changed on update: %d -> %d", a.Order, updated.Order)
	}
	got, _ := svc.GetByID(owner, a.ID)
	if got.Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", got.Title)
	}
}

func TestDeleteLeavesOrderGap(t *testing.T) {
	svc := newTestService(t)
	owner := createTestUser(t, svc.db, "alice")

	var ids []string
	for _, slug := range []string{"a", "b", "c"} {
		l, err := svc.Create(owner, validDTO(slug))
		if err != nil {
			t.Fatalf("create %s: %v", slug, err)
		}
		ids = append(ids, l.ID)
	}

	if err := svc.Delete(owner, ids[1]); err != nil {
		t.Fatalf("delete: %v", err)
	}

	links, err := svc.List(owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("len = %d, want 2", len(links))
	}
	// Survivors keep their positions, the gap stays.
	if links[0].Order != 0 || links[1].Order != 2 {
		t.Errorf("orders = [%d %d], want [0 2]", links[0].Order, links[1].Order)
	}

	// New links append after the highest survivor.
	l, err := svc.Create(owner, validDTO("d"))
	if err != nil {
		t.Fatalf("create d: %v", err)
	}
	if l.Order != 3 {
		t.Errorf("new order = %d, want 3", l.Order)
	}
}

func TestDeleteRemovesClickEvents(t *testing.T) {
	svc := newTestService(t)
	owner := createTestUser(t, svc.db, "alice")

	l, err := svc.Create(owner, validDTO("a"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	clicks := []models.ClickEventModel{
		{LinkID: l.ID, ClickedAt: time.Now()},
		{LinkID: l.ID, ClickedAt: time.Now()},
	}
	if err := svc.db.Create(&clicks).Error; err != nil {
		t.Fatalf("seed clicks: %v", err)
	}

	if err := svc.Delete(owner, l.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	svc.db.Model(&models.ClickEventModel{}).Where("link_id = ?", l.ID).Count(&count)
	if count != 0 {
		t.Errorf("click events remaining = %d, want 0", count)
	}
}

func TestDeleteForeignLink(t *testing.T) {
	svc := newTestService(t)
	alice := createTestUser(t, svc.db, "alice")
	bob := createTestUser(t, svc.db, "bob")

	l, err := svc.Create(alice, validDTO("a"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(bob, l.ID); !errors.Is(err, errNotFound) {
		t.Fatalf("foreign delete: err = %v, want errNotFound", err)
	}
	if _, err := svc.GetByID(alice, l.ID); err != nil {
		t.Errorf("link gone after foreign delete attempt: %v", err)
	}
}

func TestToggleActive(t *testing.T) {
	svc := newTestService(t)
	owner := createTestUser(t, svc.db, "alice")

	l, err := svc.Create(owner, validDTO("a"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	toggled, err := svc.ToggleActive(owner, l.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.IsActive {
		t.Error("expected inactive after first toggle")
	}
	// The returned record must agree with what was stored.
	stored, err := svc.GetByID(owner, l.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.IsActive != toggled.IsActive {
		t.Errorf("returned IsActive=%v, stored IsActive=%v", toggled.IsActive, stored.IsActive)
	}

	toggled, err = svc.ToggleActive(owner, l.ID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if !toggled.IsActive {
		t.Error("expected active after second toggle")
	}
	stored, err = svc.GetByID(owner, l.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.IsActive != toggled.IsActive {
		t.Errorf("returned IsActive=%v, stored IsActive=%v", toggled.IsActive, stored.IsActive)
	}
}

func TestReorder(t *testing.T) {
	svc := newTestService(t)
	owner := createTestUser(t, svc.db, "alice")

	idBySlug := map[string]string{}
	for _, slug := range []string{"a", "b", "c"} {
		l, err := svc.Create(owner, validDTO(slug))
		if err != nil {
			t.Fatalf("create %s: %v", slug, err)
		}
		idBySlug[slug] = l.ID
	}

	want := []string{"c", "a", "b"}
	if err := svc.Reorder(owner, []string{idBySlug["c"], idBySlug["a"], idBySlug["b"]}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	links, err := svc.List(owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, slug := range want {
		if links[i].Slug != slug {
			t.Errorf("position %d: slug = %q, want %q", i, links[i].Slug, slug)
		}
	}

	// Reordering is idempotent.
	if err := svc.Reorder(owner, []string{idBySlug["c"], idBySlug["a"], idBySlug["b"]}); err != nil {
		t.Fatalf("repeat reorder: %v", err)
	}
	links, _ = svc.List(owner)
	for i, slug := range want {
		if links[i].Slug != slug {
			t.Errorf("after repeat, position %d: slug = %q, want %q", i, links[i].Slug, slug)
		}
	}
}

func TestReorderSkipsForeignIDs(t *testing.T) {
	svc := newTestService(t)
	alice := createTestUser(t, svc.db, "alice")
	bob := createTestUser(t, svc.db, "bob")

	mine, err := svc.Create(alice, validDTO("mine"))
	if err != nil {
		t.Fatalf("create mine: %v", err)
	}
	theirs, err := svc.Create(bob, validDTO("theirs"))
	if err != nil {
		t.Fatalf("create theirs: %v", err)
	}

	// Foreign and unknown ids are silently ignored.
	if err := svc.Reorder(alice, []string{theirs.ID, "ghost", mine.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	got, _ := svc.GetByID(alice, mine.ID)
	if got.Order != 2 {
		t.Errorf("own link order = %d, want 2", got.Order)
	}
	other, _ := svc.GetByID(bob, theirs.ID)
	if other.Order != 0 {
		t.Errorf("foreign link order = %d, want 0 (untouched)", other.Order)
	}
}

func TestListIncludesHiddenLinks(t *testing.T) {
	svc := newTestService(t)
	owner := createTestUser(t, svc.db, "alice")

	future := time.Now().Add(time.Hour)
	dto := validDTO("scheduled")
	dto.StartDate = &future
	if _, err := svc.Create(owner, dto); err != nil {
		t.Fatalf("create scheduled: %v", err)
	}

	inactive := false
	dto = validDTO("off")
	dto.IsActive = &inactive
	if _, err := svc.Create(owner, dto); err != nil {
		t.Fatalf("create inactive: %v", err)
	}

	links, err := svc.List(owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("len = %d, want 2 (management view shows everything)", len(links))
	}
	for _, l := range links {
		if l.Slug == "off" && l.IsActive {
			t.Error("inactive link stored as active")
		}
	}
}
