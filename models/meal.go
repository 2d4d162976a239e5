package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	LabelBreakfast = "breakfast"
	LabelLunch     = "lunch"
	LabelDinner    = "dinner"
	LabelDessert   = "dessert"
	LabelSnack     = "snack"
	LabelDrink     = "drink"
)

// IsMainLabel reports whether the label is one of the three meals
// constrained to one per user per day. Dessert/snack/drink may repeat.
func IsMainLabel(label string) bool {
	switch label {
	case LabelBreakfast, LabelLunch, LabelDinner:
		return true
	}
	return false
}

// One journaled eating event. Date is the YYYY-MM-DD day key derived
// from DateTime (UTC); for main labels the (user, date, label) triple
// is unique — backed by a partial unique index on Postgres.
type Meal struct {
	gorm.Model
	UserID uint `gorm:"index:idx_meals_user_date,priority:1;not null" json:"userId"`

	Label    string    `gorm:"size:16;not null" json:"label"`
	Date     string    `gorm:"size:10;index:idx_meals_user_date,priority:2;not null" json:"date"`
	DateTime time.Time `gorm:"not null" json:"dateTime"`

	Images datatypes.JSONSlice[string] `json:"images"`

	Description       string                      `json:"description,omitempty"`
	Place             string                      `json:"place,omitempty"`
	EatWith           string                      `json:"eatWith,omitempty"`
	Motivation        datatypes.JSONSlice[string] `json:"motivation,omitempty"`
	NoteBefore        string                      `json:"noteBefore,omitempty"`
	NoteAfter         string                      `json:"noteAfter,omitempty"`
	SatisfactionLevel string                      `gorm:"size:16" json:"satisfactionLevel,omitempty"`

	// Optional metrics; pointers so an unset value is distinguishable
	// from a reported 0. FullLevel doubles as the phase marker.
	HungryLevel        *float64 `json:"hungryLevel,omitempty"`
	FullLevel          *float64 `json:"fullLevel,omitempty"`
	FeelingLevelBefore *float64 `json:"feelingLevelBefore,omitempty"`
	FeelingLevelAfter  *float64 `json:"feelingLevelAfter,omitempty"`
	TasteLevel         *float64 `json:"tasteLevel,omitempty"`
	TimeForEating      *int     `json:"timeForEating,omitempty"`
}

// Complete reports whether the "after" phase has run for this meal.
func (m *Meal) Complete() bool {
	return m.FullLevel != nil
}
