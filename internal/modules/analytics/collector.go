package analytics

import (
	"net/url"
	"time"

	"github.com/lynkpage/core/internal/models"
	"github.com/lynkpage/core/internal/pkg/geo"
	"github.com/mssola/useragent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RawClick is an unenriched click observation taken on the redirect path.
type RawClick struct {
	LinkID    string
	ClickedAt time.Time
	IP        string
	UserAgent string
	Referrer  string
}

// Collector buffers clicks and writes them in batches so the redirect path
// never waits on the database.
type Collector struct {
	ch   chan RawClick
	stop chan struct{}
	done chan struct{}
	db   *gorm.DB
	geo  *geo.Reader
	log  *zap.Logger
}

func NewCollector(db *gorm.DB, geoReader *geo.Reader, log *zap.Logger, bufferSize int, flushInterval time.Duration) *Collector {
	c := &Collector{
		ch:   make(chan RawClick, bufferSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
		db:   db,
		geo:  geoReader,
		log:  log,
	}
	go c.run(flushInterval)
	return c
}

// Push sends a click event non-blocking. Drops the event if the buffer is full.
func (c *Collector) Push(click RawClick) {
	select {
	case c.ch <- click:
	default:
	}
}

// Shutdown flushes remaining events and returns.
func (c *Collector) Shutdown() {
	close(c.stop)
	<-c.done
}

func (c *Collector) run(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stop:
			c.flush()
			return
		}
	}
}

func (c *Collector) flush() {
	var batch []RawClick
	for {
		select {
		case raw := <-c.ch:
			batch = append(batch, raw)
		default:
			goto done
		}
	}
done:
	if len(batch) == 0 {
		return
	}

	events := make([]models.ClickEventModel, 0, len(batch))
	for _, raw := range batch {
		events = append(events, c.enrich(raw))
	}

	if err := c.db.Create(&events).Error; err != nil {
		c.log.Warn("click flush failed", zap.Int("count", len(events)), zap.Error(err))
		return
	}
	c.log.Debug("clicks flushed", zap.Int("count", len(events)))
}

func (c *Collector) enrich(raw RawClick) models.ClickEventModel {
	ua := useragent.New(raw.UserAgent)
	browser, _ := ua.Browser()

	deviceType := "desktop"
	if ua.Bot() {
		deviceType = "bot"
	} else if ua.Mobile() {
		deviceType = "mobile"
	}

	referrer := raw.Referrer
	if referrer != "" {
		if u, err := url.Parse(referrer); err == nil && u.Host != "" {
			referrer = u.Host
		}
	}

	return models.ClickEventModel{
		LinkID:    raw.LinkID,
		Referrer:  referrer,
		Device:    deviceType,
		Browser:   browser,
		Country:   c.geo.Country(raw.IP),
		ClickedAt: raw.ClickedAt,
	}
}
