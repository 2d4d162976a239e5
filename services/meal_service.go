package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Evgenija-P/inFeely-server/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Uploads one base64-encoded image, returning its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, base64Data string) (string, error)
}

const (
	MaxImagesPerRequest = 6

	imageUploadTimeout = 15 * time.Second
)

type MealService struct {
	db        *gorm.DB
	uploader  ImageUploader
	summaries *SummaryService
}

func NewMealService(db *gorm.DB, uploader ImageUploader, summaries *SummaryService) *MealService {
	return &MealService{db: db, uploader: uploader, summaries: summaries}
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Minimal "before" record: what the user knows when deciding to eat.
type MealBeforeRequest struct {
	Label       string    `json:"label" binding:"required,oneof=breakfast lunch dinner dessert snack drink"`
	DateTime    time.Time `json:"dateTime" binding:"required"`
	HungryLevel *float64  `json:"hungryLevel" binding:"required"`

	Description        string   `json:"description"`
	Place              string   `json:"place"`
	EatWith            string   `json:"eatWith"`
	Motivation         []string `json:"motivation"`
	FeelingLevelBefore *float64 `json:"feelingLevelBefore"`
	NoteBefore         string   `json:"noteBefore"`
	SatisfactionLevel  string   `json:"satisfactionLevel" binding:"omitempty,oneof='Mostly body' 'Mostly mind' Both Neither"`
	Images             []string `json:"images" binding:"max=6"`
}

// "After" enrichment: outcome data once the meal concluded. Pointer
// fields are merged only when provided.
type MealAfterRequest struct {
	FullLevel *float64 `json:"fullLevel" binding:"required"`

	Label    string     `json:"label" binding:"omitempty,oneof=breakfast lunch dinner dessert snack drink"`
	DateTime *time.Time `json:"dateTime"`

	Description       *string  `json:"description"`
	Place             *string  `json:"place"`
	EatWith           *string  `json:"eatWith"`
	Motivation        []string `json:"motivation"`
	FeelingLevelAfter *float64 `json:"feelingLevelAfter"`
	NoteAfter         *string  `json:"noteAfter"`
	TasteLevel        *float64 `json:"tasteLevel"`
	SatisfactionLevel string   `json:"satisfactionLevel" binding:"omitempty,oneof='Mostly body' 'Mostly mind' Both Neither"`
	TimeForEating     *int     `json:"timeForEating"`
	Images            []string `json:"images" binding:"max=6"`
}

// Full replacement of every mutable field.
type MealUpdateRequest struct {
	Label    string    `json:"label" binding:"required,oneof=breakfast lunch dinner dessert snack drink"`
	DateTime time.Time `json:"dateTime" binding:"required"`

	HungryLevel        *float64 `json:"hungryLevel"`
	FullLevel          *float64 `json:"fullLevel"`
	Description        string   `json:"description"`
	Place              string   `json:"place"`
	EatWith            string   `json:"eatWith"`
	Motivation         []string `json:"motivation"`
	FeelingLevelBefore *float64 `json:"feelingLevelBefore"`
	FeelingLevelAfter  *float64 `json:"feelingLevelAfter"`
	NoteBefore         string   `json:"noteBefore"`
	NoteAfter          string   `json:"noteAfter"`
	TasteLevel         *float64 `json:"tasteLevel"`
	SatisfactionLevel  string   `json:"satisfactionLevel" binding:"omitempty,oneof='Mostly body' 'Mostly mind' Both Neither"`
	TimeForEating      *int     `json:"timeForEating"`
	Images             []string `json:"images" binding:"max=6"`
}

// assertSlotFree is the application-level half of the uniqueness rule:
// a fast fail that names the conflicting label. The partial unique
// index on Postgres is what closes the concurrent-writer window.
func (s *MealService) assertSlotFree(ctx context.Context, userID uint, date, label string, excludeID uint) error {
	if !models.IsMainLabel(label) {
		return nil
	}

	q := s.db.WithContext(ctx).Model(&models.Meal{}).
		Where("user_id = ? AND date = ? AND label = ?", userID, date, label)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &DuplicateMealError{Label: label}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Best-effort gallery: one failed upload is logged and skipped, it
// never fails the remaining uploads or the meal write. Each upload is
// bounded by its own deadline on top of the request's.
func (s *MealService) uploadImages(ctx context.Context, images []string) []string {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		uctx, cancel := context.WithTimeout(ctx, imageUploadTimeout)
		url, err := s.uploader.Upload(uctx, img)
		cancel()
		if err != nil {
			log.Printf("image upload failed, skipping: %v", err)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

func (s *MealService) CreateBefore(ctx context.Context, userID uint, req *MealBeforeRequest) (*models.Meal, error) {
	date := dateKey(req.DateTime)
	if err := s.assertSlotFree(ctx, userID, date, req.Label, 0); err != nil {
		return nil, err
	}

	meal := &models.Meal{
		UserID:             userID,
		Label:              req.Label,
		Date:               date,
		DateTime:           req.DateTime,
		HungryLevel:        req.HungryLevel,
		Description:        req.Description,
		Place:              req.Place,
		EatWith:            req.EatWith,
		Motivation:         datatypes.JSONSlice[string](req.Motivation),
		FeelingLevelBefore: req.FeelingLevelBefore,
		NoteBefore:         req.NoteBefore,
		SatisfactionLevel:  req.SatisfactionLevel,
		Images:             datatypes.JSONSlice[string](s.uploadImages(ctx, req.Images)),
	}

	if err := s.db.WithContext(ctx).Create(meal).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateMealError{Label: req.Label}
		}
		return nil, err
	}

	if err := s.summaries.Recompute(ctx, userID, date); err != nil {
		return nil, err
	}
	return meal, nil
}

func (s *MealService) CreateAfter(ctx context.Context, userID, mealID uint, req *MealAfterRequest) (*models.Meal, error) {
	meal, err := s.Get(ctx, userID, mealID)
	if err != nil {
		return nil, err
	}
	if meal.Complete() {
		return nil, ErrMealAlreadyComplete
	}

	oldDate := meal.Date
	if req.Label != "" {
		meal.Label = req.Label
	}
	if req.DateTime != nil {
		meal.DateTime = *req.DateTime
		meal.Date = dateKey(*req.DateTime)
	}
	if req.Label != "" || req.DateTime != nil {
		if err := s.assertSlotFree(ctx, userID, meal.Date, meal.Label, meal.ID); err != nil {
			return nil, err
		}
	}

	meal.FullLevel = req.FullLevel
	if req.Description != nil {
		meal.Description = *req.Description
	}
	if req.Place != nil {
		meal.Place = *req.Place
	}
	if req.EatWith != nil {
		meal.EatWith = *req.EatWith
	}
	if len(req.Motivation) > 0 {
		meal.Motivation = datatypes.JSONSlice[string](req.Motivation)
	}
	if req.FeelingLevelAfter != nil {
		meal.FeelingLevelAfter = req.FeelingLevelAfter
	}
	if req.NoteAfter != nil {
		meal.NoteAfter = *req.NoteAfter
	}
	if req.TasteLevel != nil {
		meal.TasteLevel = req.TasteLevel
	}
	if req.SatisfactionLevel != "" {
		meal.SatisfactionLevel = req.SatisfactionLevel
	}
	if req.TimeForEating != nil {
		meal.TimeForEating = req.TimeForEating
	}
	meal.Images = append(meal.Images, s.uploadImages(ctx, req.Images)...)

	if err := s.db.WithContext(ctx).Save(meal).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateMealError{Label: meal.Label}
		}
		return nil, err
	}

	if err := s.summaries.Recompute(ctx, userID, meal.Date); err != nil {
		return nil, err
	}
	if oldDate != meal.Date {
		if err := s.summaries.Recompute(ctx, userID, oldDate); err != nil {
			return nil, err
		}
	}
	return meal, nil
}

func (s *MealService) Update(ctx context.Context, userID, mealID uint, req *MealUpdateRequest) (*models.Meal, error) {
	meal, err := s.Get(ctx, userID, mealID)
	if err != nil {
		return nil, err
	}

	oldDate := meal.Date
	newDate := dateKey(req.DateTime)
	if req.Label != meal.Label || newDate != oldDate {
		if err := s.assertSlotFree(ctx, userID, newDate, req.Label, meal.ID); err != nil {
			return nil, err
		}
	}

	meal.Label = req.Label
	meal.DateTime = req.DateTime
	meal.Date = newDate
	meal.HungryLevel = req.HungryLevel
	meal.FullLevel = req.FullLevel
	meal.Description = req.Description
	meal.Place = req.Place
	meal.EatWith = req.EatWith
	meal.Motivation = datatypes.JSONSlice[string](req.Motivation)
	meal.FeelingLevelBefore = req.FeelingLevelBefore
	meal.FeelingLevelAfter = req.FeelingLevelAfter
	meal.NoteBefore = req.NoteBefore
	meal.NoteAfter = req.NoteAfter
	meal.TasteLevel = req.TasteLevel
	meal.SatisfactionLevel = req.SatisfactionLevel
	meal.TimeForEating = req.TimeForEating
	meal.Images = append(meal.Images, s.uploadImages(ctx, req.Images)...)

	if err := s.db.WithContext(ctx).Save(meal).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateMealError{Label: meal.Label}
		}
		return nil, err
	}

	// A date move must also clear the vacated day, or its summary keeps
	// a stale nonzero entry.
	if err := s.summaries.Recompute(ctx, userID, newDate); err != nil {
		return nil, err
	}
	if oldDate != newDate {
		if err := s.summaries.Recompute(ctx, userID, oldDate); err != nil {
			return nil, err
		}
	}
	return meal, nil
}

func (s *MealService) Delete(ctx context.Context, userID, mealID uint) error {
	meal, err := s.Get(ctx, userID, mealID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(meal).Error; err != nil {
		return err
	}
	return s.summaries.Recompute(ctx, userID, meal.Date)
}

func (s *MealService) Get(ctx context.Context, userID, mealID uint) (*models.Meal, error) {
	var meal models.Meal
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", mealID, userID).
		First(&meal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMealNotFound
	}
	if err != nil {
		return nil, err
	}
	return &meal, nil
}

func (s *MealService) List(ctx context.Context, userID uint) ([]models.Meal, error) {
	meals := []models.Meal{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date_time ASC").
		Find(&meals).Error
	return meals, err
}

func (s *MealService) ListByDate(ctx context.Context, userID uint, date string) ([]models.Meal, error) {
	meals := []models.Meal{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Order("date_time ASC").
		Find(&meals).Error
	return meals, err
}

func (s *MealService) ListByRange(ctx context.Context, userID uint, startDate, endDate string) ([]models.Meal, error) {
	meals := []models.Meal{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date BETWEEN ? AND ?", userID, startDate, endDate).
		Order("date_time ASC").
		Find(&meals).Error
	return meals, err
}

type RollingStats struct {
	AvgHungryLevel float64  `json:"avgHungryLevel"`
	AvgFullLevel   *float64 `json:"avgFullLevel"`
	TotalMeals     int      `json:"totalMeals"`
}

type Last30DaysResult struct {
	Meals []models.Meal `json:"meals"`
	Stats RollingStats  `json:"stats"`
}

// Last30Days returns the meals of the trailing 30-day window (today
// inclusive) plus rolling stats over the main-meal records in it.
// avgFullLevel averages only records where fullLevel is set and is
// null when there are none.
func (s *MealService) Last30Days(ctx context.Context, userID uint, now time.Time) (*Last30DaysResult, error) {
	startDate := dateKey(now.AddDate(0, 0, -29))
	endDate := dateKey(now)

	meals, err := s.ListByRange(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	var hungrySum, fullSum float64
	var mainCount, fullCount int
	for _, m := range meals {
		if !models.IsMainLabel(m.Label) {
			continue
		}
		mainCount++
		hungrySum += deref(m.HungryLevel)
		if m.FullLevel != nil {
			fullSum += *m.FullLevel
			fullCount++
		}
	}

	stats := RollingStats{TotalMeals: mainCount}
	if mainCount > 0 {
		stats.AvgHungryLevel = hungrySum / float64(mainCount)
	}
	if fullCount > 0 {
		avg := fullSum / float64(fullCount)
		stats.AvgFullLevel = &avg
	}

	return &Last30DaysResult{Meals: meals, Stats: stats}, nil
}
