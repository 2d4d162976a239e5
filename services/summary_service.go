package services

import (
	"context"
	"errors"
	"time"

	"github.com/Evgenija-P/inFeely-server/models"

	"gorm.io/gorm"
)

type SummaryService struct {
	db *gorm.DB
}

func NewSummaryService(db *gorm.DB) *SummaryService {
	return &SummaryService{db: db}
}

type DailySummaryView struct {
	Date        string             `json:"date"`
	DailyValues models.DailyValues `json:"dailyValues"`
	UpdatedAt   *time.Time         `json:"updatedAt,omitempty"`
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Recompute rebuilds the summary for one user+day from the meals table.
// Always a full rebuild, never an incremental patch, so repeated calls
// converge on the same values and a deleted meal drops its contribution.
func (s *SummaryService) Recompute(ctx context.Context, userID uint, date string) error {
	var meals []models.Meal
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Find(&meals).Error; err != nil {
		return err
	}

	values := models.DailyValues{}
	for _, m := range meals {
		if !models.IsMainLabel(m.Label) {
			continue
		}
		score := (deref(m.HungryLevel) + deref(m.FullLevel)) / 2
		switch m.Label {
		case models.LabelBreakfast:
			values.Breakfast = score
		case models.LabelLunch:
			values.Lunch = score
		case models.LabelDinner:
			values.Dinner = score
		}
	}

	summary := models.DailySummary{UserID: userID, Date: date}
	return s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Assign(map[string]interface{}{
			"breakfast": values.Breakfast,
			"lunch":     values.Lunch,
			"dinner":    values.Dinner,
		}).
		FirstOrCreate(&summary).Error
}

// ByDate returns the stored summary for the day, or a zeroed one when
// no aggregate has ever run — never nil.
func (s *SummaryService) ByDate(ctx context.Context, userID uint, date string) (*DailySummaryView, error) {
	var summary models.DailySummary
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DailySummaryView{Date: date}, nil
	}
	if err != nil {
		return nil, err
	}
	return &DailySummaryView{Date: date, DailyValues: summary.Values(), UpdatedAt: &summary.UpdatedAt}, nil
}

// ByPeriod returns stored summaries in the inclusive range, ascending.
// Sparse: days without an aggregate run are absent.
func (s *SummaryService) ByPeriod(ctx context.Context, userID uint, startDate, endDate string) ([]DailySummaryView, error) {
	var summaries []models.DailySummary
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND date BETWEEN ? AND ?", userID, startDate, endDate).
		Order("date ASC").
		Find(&summaries).Error; err != nil {
		return nil, err
	}

	views := make([]DailySummaryView, 0, len(summaries))
	for i := range summaries {
		views = append(views, DailySummaryView{
			Date:        summaries[i].Date,
			DailyValues: summaries[i].Values(),
			UpdatedAt:   &summaries[i].UpdatedAt,
		})
	}
	return views, nil
}

// CurrentMonth returns the calendar map for the month containing now,
// keyed by YYYY-MM-DD.
func (s *SummaryService) CurrentMonth(ctx context.Context, userID uint, now time.Time) (map[string]models.DailyValues, error) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	summaries, err := s.ByPeriod(ctx, userID, first.Format("2006-01-02"), last.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	calendar := make(map[string]models.DailyValues, len(summaries))
	for _, v := range summaries {
		calendar[v.Date] = v.DailyValues
	}
	return calendar, nil
}
