package models

import (
	"gorm.io/gorm"
)

// Average main-meal scores for one day, keyed by label.
type DailyValues struct {
	Breakfast float64 `json:"breakfast"`
	Lunch     float64 `json:"lunch"`
	Dinner    float64 `json:"dinner"`
}

// Derived per-user-per-day aggregate of the three main meals, used for
// calendar rendering. Rebuilt from the meals table after every write
// that touches the day; never authoritative on its own.
type DailySummary struct {
	gorm.Model
	UserID uint   `gorm:"uniqueIndex:idx_daily_summaries_user_date,priority:1;not null" json:"userId"`
	Date   string `gorm:"size:10;uniqueIndex:idx_daily_summaries_user_date,priority:2;not null" json:"date"`

	Breakfast float64 `json:"-"`
	Lunch     float64 `json:"-"`
	Dinner    float64 `json:"-"`
}

func (s *DailySummary) Values() DailyValues {
	return DailyValues{Breakfast: s.Breakfast, Lunch: s.Lunch, Dinner: s.Dinner}
}
