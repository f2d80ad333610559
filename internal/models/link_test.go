package models

import (
	"testing"
	"time"
)

func TestLinkVisibleAt(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		link LinkModel
		want bool
	}{
		{"active no window", LinkModel{IsActive: true}, true},
		{"inactive", LinkModel{IsActive: false}, false},
		{"inactive inside window", LinkModel{IsActive: false, StartDate: &past, EndDate: &future}, false},
		{"scheduled", LinkModel{IsActive: true, StartDate: &future}, false},
		{"started", LinkModel{IsActive: true, StartDate: &past}, true},
		{"starts exactly now", LinkModel{IsActive: true, StartDate: &now}, true},
		{"expired", LinkModel{IsActive: true, EndDate: &past}, false},
		{"ends exactly now", LinkModel{IsActive: true, EndDate: &now}, true},
		{"inside window", LinkModel{IsActive: true, StartDate: &past, EndDate: &future}, true},
		{"before window", LinkModel{IsActive: true, StartDate: &future, EndDate: &future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.link.VisibleAt(now); got != tt.want {
				t.Errorf("VisibleAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidLinkCategory(t *testing.T) {
	for _, c := range []LinkCategory{CategorySocial, CategoryProjects, CategoryContact, CategoryOther} {
		if !ValidLinkCategory(c) {
			t.Errorf("ValidLinkCategory(%q) = false, want true", c)
		}
	}
	if ValidLinkCategory("blog") {
		t.Error(`ValidLinkCategory("blog") = true, want false`)
	}
	if ValidLinkCategory("") {
		t.Error(`ValidLinkCategory("") = true, want false`)
	}
}
