package public

import (
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
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db)
}

func seedUser(t *testing.T, db *gorm.DB, handle, name string) string {
	t.Helper()
	u := models.UserModel{Username: handle, Name: name, Password: "x"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

func seedLink(t *testing.T, db *gorm.DB, l models.LinkModel) {
	t.Helper()
	if err := db.Create(&l).Error; err != nil {
		t.Fatalf("seed link %s: %v", l.Slug, err)
	}
}

func TestResolveUnknownHandle(t *testing.T) {
	svc := newTestService(t)

	p, err := svc.Resolve("nobody", time.Now())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p != nil {
		t.Fatalf("profile = %+v, want nil", p)
	}
}

func TestResolveHandleCaseInsensitive(t *testing.T) {
	svc := newTestService(t)
	seedUser(t, svc.db, "alice", "Alice")

	p, err := svc.Resolve("ALICE", time.Now())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p == nil {
		t.Fatal("profile is nil")
	}
	if p.Handle != "alice" {
		t.Errorf("handle = %q, want alice", p.Handle)
	}
}

func TestResolveFallsBackWithoutProfileRow(t *testing.T) {
	svc := newTestService(t)
	userID := seedUser(t, svc.db, "alice", "Alice Liddell")

	p, err := svc.Resolve("alice", time.Now())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.DisplayName != "Alice Liddell" {
		t.Errorf("display name = %q, want account name", p.DisplayName)
	}
	if p.Theme != models.ThemeDark {
		t.Errorf("theme = %q, want default dark", p.Theme)
	}

	// Public reads must not create the settings row.
	var count int64
	svc.db.Model(&models.ProfileSettingsModel{}).Where("user_id = ?", userID).Count(&count)
	if count != 0 {
		t.Errorf("profile rows = %d, want 0", count)
	}
}

func TestResolveFallsBackToHandleWhenNameEmpty(t *testing.T) {
	svc := newTestService(t)
	seedUser(t, svc.db, "alice", "")

	p, err := svc.Resolve("alice", time.Now())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.DisplayName != "alice" {
		t.Errorf("display name = %q, want alice", p.DisplayName)
	}
}

func TestResolveUsesProfileSettings(t *testing.T) {
	svc := newTestService(t)
	userID := seedUser(t, svc.db, "alice", "Alice")

	settings := models.ProfileSettingsModel{
		UserID:      userID,
		DisplayName: "Wonderland",
		Bio:         "down the rabbit hole",
		Theme:       models.ThemeLight,
	}
	if err := svc.db.Create(&settings).Error; err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	p, err := svc.Resolve("alice", time.Now())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.DisplayName != "Wonderland" || p.Bio != "down the rabbit hole" || p.Theme != models.ThemeLight {
		t.Errorf("profile = %+v, want settings applied", p)
	}
}

func TestResolveFiltersAndOrdersLinks(t *testing.T) {
	svc := newTestService(t)
	userID := seedUser(t, svc.db, "alice", "Alice")

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	seedLink(t, svc.db, models.LinkModel{UserID: userID, Slug: "second", Title: "B", URL: "https://b", Order: 1, IsActive: true})
	seedLink(t, svc.db, models.LinkModel{UserID: userID, Slug: "first", Title: "A", URL: "https://a", Order: 0, IsActive: true})
	seedLink(t, svc.db, models.LinkModel{UserID: userID, Slug: "off", Title: "C", URL: "https://c", Order: 2, IsActive: false})
	seedLink(t, svc.db, models.LinkModel{UserID: userID, Slug: "soon", Title: "D", URL: "https://d", Order: 3, IsActive: true, StartDate: &future})
	seedLink(t, svc.db, models.LinkModel{UserID: userID, Slug: "gone", Title: "E", URL: "https://e", Order: 4, IsActive: true, EndDate: &past})

	p, err := svc.Resolve("alice", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(p.Links) != 2 {
		t.Fatalf("visible links = %d, want 2", len(p.Links))
	}
	if p.Links[0].Slug != "first" || p.Links[1].Slug != "second" {
		t.Errorf("order = [%s %s], want [first second]", p.Links[0].Slug, p.Links[1].Slug)
	}
}

func TestResolveLink(t *testing.T) {
	svc := newTestService(t)
	userID := seedUser(t, svc.db, "alice", "Alice")

	now := time.Now()
	future := now.Add(time.Hour)
	seedLink(t, svc.db, models.LinkModel{UserID: userID, Slug: "live", Title: "L", URL: "https://live", IsActive: true})
	seedLink(t, svc.db, models.LinkModel{UserID: userID, Slug: "soon", Title: "S", URL: "https://soon", IsActive: true, StartDate: &future})

	l, err := svc.ResolveLink("Alice", "live", now)
	if err != nil {
		t.Fatalf("resolve live: %v", err)
	}
	if l == nil || l.URL != "https://live" {
		t.Fatalf("link = %+v, want https://live", l)
	}

	// Not-yet-visible and missing slugs both resolve to nothing.
	if l, _ := svc.ResolveLink("alice", "soon", now); l != nil {
		t.Errorf("scheduled link resolved: %+v", l)
	}
	if l, _ := svc.ResolveLink("alice", "nope", now); l != nil {
		t.Errorf("missing slug resolved: %+v", l)
	}
	if l, _ := svc.ResolveLink("nobody", "live", now); l != nil {
		t.Errorf("unknown handle resolved: %+v", l)
	}
}

func TestHandleCacheSurvivesRepeatLookups(t *testing.T) {
	svc := newTestService(t)
	seedUser(t, svc.db, "alice", "Alice")

	for i := 0; i < 3; i++ {
		p, err := svc.Resolve("alice", time.Now())
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if p == nil || p.Handle != "alice" {
			t.Fatalf("resolve %d: got %+v", i, p)
		}
	}
	if _, ok := svc.handles.Get("alice"); !ok {
		t.Error("handle not memoized after lookups")
	}
}
