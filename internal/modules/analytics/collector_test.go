package analytics

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/lynkpage/core/internal/database"
	"github.com/lynkpage/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	uaChrome    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaIPhone    = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaGooglebot = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seedLink(t *testing.T, db *gorm.DB) string {
	t.Helper()
	u := models.UserModel{Username: "alice", Password: "x"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	l := models.LinkModel{UserID: u.ID, Slug: "a", Title: "A", URL: "https://a", IsActive: true}
	if err := db.Create(&l).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}
	return l.ID
}

func TestEnrich(t *testing.T) {
	c := &Collector{log: zap.NewNop()}

	tests := []struct {
		name     string
		raw      RawClick
		device   string
		browser  string
		referrer string
	}{
		{
			name:     "desktop chrome with referrer",
			raw:      RawClick{UserAgent: uaChrome, Referrer: "https://twitter.com/some/post?x=1"},
			device:   "desktop",
			browser:  "Chrome",
			referrer: "twitter.com",
		},
		{
			name:   "mobile safari",
			raw:    RawClick{UserAgent: uaIPhone},
			device: "mobile",
		},
		{
			name:   "crawler",
			raw:    RawClick{UserAgent: uaGooglebot},
			device: "bot",
		},
		{
			name:     "opaque referrer kept as is",
			raw:      RawClick{UserAgent: uaChrome, Referrer: "android-app"},
			device:   "desktop",
			referrer: "android-app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := c.enrich(tt.raw)
			if ev.Device != tt.device {
				t.Errorf("device = %q, want %q", ev.Device, tt.device)
			}
			if tt.browser != "" && ev.Browser != tt.browser {
				t.Errorf("browser = %q, want %q", ev.Browser, tt.browser)
			}
			if ev.Referrer != tt.referrer {
				t.Errorf("referrer = %q, want %q", ev.Referrer, tt.referrer)
			}
			if ev.Country != "" {
				t.Errorf("country = %q, want empty without geo database", ev.Country)
			}
		})
	}
}

func TestCollectorFlushOnShutdown(t *testing.T) {
	db := newTestDB(t)
	linkID := seedLink(t, db)

	c := NewCollector(db, nil, zap.NewNop(), 16, time.Hour)
	for i := 0; i < 3; i++ {
		c.Push(RawClick{LinkID: linkID, ClickedAt: time.Now(), UserAgent: uaChrome})
	}
	c.Shutdown()

	var count int64
	db.Model(&models.ClickEventModel{}).Where("link_id = ?", linkID).Count(&count)
	if count != 3 {
		t.Fatalf("stored clicks = %d, want 3", count)
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	db := newTestDB(t)
	linkID := seedLink(t, db)

	c := NewCollector(db, nil, zap.NewNop(), 2, time.Hour)
	for i := 0; i < 10; i++ {
		c.Push(RawClick{LinkID: linkID, ClickedAt: time.Now()})
	}
	c.Shutdown()

	var count int64
	db.Model(&models.ClickEventModel{}).Where("link_id = ?", linkID).Count(&count)
	if count > 2 {
		t.Fatalf("stored clicks = %d, want at most buffer size", count)
	}
	if count == 0 {
		t.Fatal("no clicks stored at all")
	}
}
