package models

import "time"

// ClickEventModel records one public click on a link. Append-only; rows
// cascade away with their link.
type ClickEventModel struct {
	Base
	LinkID    string    `json:"link_id"    gorm:"index;not null"`
	Link      LinkModel `json:"-"          gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE"`
	Referrer  string    `json:"referrer"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	Country   string    `json:"country"`
	ClickedAt time.Time `json:"clicked_at" gorm:"index;not null"`
}

func (ClickEventModel) TableName() string { return "click_events" }
