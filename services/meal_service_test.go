package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Evgenija-P/inFeely-server/config"
	"github.com/Evgenija-P/inFeely-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubUploader struct {
	fail bool
	n    int
}

func (u *stubUploader) Upload(ctx context.Context, data string) (string, error) {
	if u.fail {
		return "", fmt.Errorf("upload down")
	}
	u.n++
	return fmt.Sprintf("https://cdn.test/meals/%d.jpg", u.n), nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	return db
}

func newTestServices(t *testing.T) (*MealService, *SummaryService, *stubUploader, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	uploader := &stubUploader{}
	summaries := NewSummaryService(db)
	meals := NewMealService(db, uploader, summaries)
	return meals, summaries, uploader, db
}

func fptr(v float64) *float64 { return &v }

func at(date string) time.Time {
	ts, err := time.Parse(time.RFC3339, date+"T12:00:00Z")
	if err != nil {
		panic(err)
	}
	return ts
}

func storedSummary(t *testing.T, db *gorm.DB, userID uint, date string) models.DailyValues {
	t.Helper()
	var summary models.DailySummary
	err := db.Where("user_id = ? AND date = ?", userID, date).First(&summary).Error
	require.NoError(t, err)
	return summary.Values()
}

func TestCreateBeforeRejectsDuplicateMainMeal(t *testing.T) {
	meals, _, _, _ := newTestServices(t)
	ctx := context.Background()

	first, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", first.Date)
	assert.False(t, first.Complete())

	_, err = meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-05"), HungryLevel: fptr(5),
	})
	var dup *DuplicateMealError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, models.LabelBreakfast, dup.Label)
	assert.Contains(t, dup.Error(), "breakfast")
}

func TestDuplicateAllowedForOtherUsersAndDays(t *testing.T) {
	meals, _, _, _ := newTestServices(t)
	ctx := context.Background()

	_, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
	})
	require.NoError(t, err)

	// same slot, different user
	_, err = meals.CreateBefore(ctx, 2, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
	})
	assert.NoError(t, err)

	// same user, next day
	_, err = meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-06"), HungryLevel: fptr(8),
	})
	assert.NoError(t, err)
}

func TestUnconstrainedLabelsMayRepeat(t *testing.T) {
	meals, _, _, _ := newTestServices(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
			Label: models.LabelDessert, DateTime: at("2024-01-05"), HungryLevel: fptr(3),
		})
		require.NoError(t, err)
	}

	all, err := meals.ListByDate(ctx, 1, "2024-01-05")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateAfterCompletesMealAndSummary(t *testing.T) {
	meals, _, _, db := newTestServices(t)
	ctx := context.Background()

	created, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
	})
	require.NoError(t, err)

	// hungryLevel only: (8+0)/2
	assert.Equal(t, 4.0, storedSummary(t, db, 1, "2024-01-05").Breakfast)

	updated, err := meals.CreateAfter(ctx, 1, created.ID, &MealAfterRequest{FullLevel: fptr(6)})
	require.NoError(t, err)
	assert.True(t, updated.Complete())

	assert.Equal(t, 7.0, storedSummary(t, db, 1, "2024-01-05").Breakfast)
}

func TestCreateAfterTwiceFails(t *testing.T) {
	meals, _, _, _ := newTestServices(t)
	ctx := context.Background()

	created, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelLunch, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
	})
	require.NoError(t, err)

	_, err = meals.CreateAfter(ctx, 1, created.ID, &MealAfterRequest{FullLevel: fptr(6)})
	require.NoError(t, err)

	_, err = meals.CreateAfter(ctx, 1, created.ID, &MealAfterRequest{FullLevel: fptr(9)})
	assert.ErrorIs(t, err, ErrMealAlreadyComplete)

	// record unchanged
	stored, err := meals.Get(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, *stored.FullLevel)
}

func TestCreateAfterUnknownOrForeignMeal(t *testing.T) {
	meals, _, _, _ := newTestServices(t)
	ctx := context.Background()

	created, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelDinner, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
	})
	require.NoError(t, err)

	_, err = meals.CreateAfter(ctx, 1, created.ID+100, &MealAfterRequest{FullLevel: fptr(6)})
	assert.ErrorIs(t, err, ErrMealNotFound)

	// another user's meal is indistinguishable from a missing one
	_, err = meals.CreateAfter(ctx, 2, created.ID, &MealAfterRequest{FullLevel: fptr(6)})
	assert.ErrorIs(t, err, ErrMealNotFound)
}

func TestCreateAfterRevalidatesMovedSlot(t *testing.T) {
	meals, _, _, _ := newTestServices(t)
	ctx := context.Background()

	_, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelLunch, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
	})
	require.NoError(t, err)

	snack, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelSnack, DateTime: at("2024-01-05"), HungryLevel: fptr(2),
	})
	require.NoError(t, err)

	// relabelling the snack as a lunch collides with the existing one
	_, err = meals.CreateAfter(ctx, 1, snack.ID, &MealAfterRequest{
		FullLevel: fptr(5), Label: models.LabelLunch,
	})
	var dup *DuplicateMealError
	assert.ErrorAs(t, err, &dup)
}

func TestDeleteClearsSummaryContribution(t *testing.T) {
	meals, _, _, db := newTestServices(t)
	ctx := context.Background()

	created, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
	})
	require.NoError(t, err)
	_, err = meals.CreateAfter(ctx, 1, created.ID, &MealAfterRequest{FullLevel: fptr(6)})
	require.NoError(t, err)
	require.Equal(t, 7.0, storedSummary(t, db, 1, "2024-01-05").Breakfast)

	require.NoError(t, meals.Delete(ctx, 1, created.ID))
	assert.Equal(t, 0.0, storedSummary(t, db, 1, "2024-01-05").Breakfast)

	// the slot is free again
	_, err = meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-05"), HungryLevel: fptr(4),
	})
	assert.NoError(t, err)
}

func TestUpdateMovesDateRecomputesBothDays(t *testing.T) {
	meals, _, _, db := newTestServices(t)
	ctx := context.Background()

	created, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
	})
	require.NoError(t, err)
	require.Equal(t, 4.0, storedSummary(t, db, 1, "2024-01-05").Breakfast)

	_, err = meals.Update(ctx, 1, created.ID, &MealUpdateRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-06"),
		HungryLevel: fptr(8), FullLevel: fptr(6),
	})
	require.NoError(t, err)

	// vacated day is zeroed, not left stale
	assert.Equal(t, 0.0, storedSummary(t, db, 1, "2024-01-05").Breakfast)
	assert.Equal(t, 7.0, storedSummary(t, db, 1, "2024-01-06").Breakfast)
}

func TestUpdateRejectsCollidingSlot(t *testing.T) {
	meals, _, _, _ := newTestServices(t)
	ctx := context.Background()

	_, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
	})
	require.NoError(t, err)

	lunch, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelLunch, DateTime: at("2024-01-05"), HungryLevel: fptr(5),
	})
	require.NoError(t, err)

	_, err = meals.Update(ctx, 1, lunch.ID, &MealUpdateRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-05"), HungryLevel: fptr(5),
	})
	var dup *DuplicateMealError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, models.LabelBreakfast, dup.Label)

	// updating a meal without changing its slot collides only with others
	_, err = meals.Update(ctx, 1, lunch.ID, &MealUpdateRequest{
		Label: models.LabelLunch, DateTime: at("2024-01-05"), HungryLevel: fptr(6),
	})
	assert.NoError(t, err)
}

func TestUploadFailureDoesNotFailMealWrite(t *testing.T) {
	meals, _, uploader, _ := newTestServices(t)
	ctx := context.Background()
	uploader.fail = true

	created, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelSnack, DateTime: at("2024-01-05"), HungryLevel: fptr(3),
		Images: []string{"data:image/png;base64,AAAA", "data:image/png;base64,BBBB"},
	})
	require.NoError(t, err)
	assert.Empty(t, created.Images)
}

func TestImagesAppendedAcrossPhases(t *testing.T) {
	meals, _, _, _ := newTestServices(t)
	ctx := context.Background()

	created, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelDinner, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
		Images: []string{"data:image/png;base64,AAAA"},
	})
	require.NoError(t, err)
	require.Len(t, created.Images, 1)

	updated, err := meals.CreateAfter(ctx, 1, created.ID, &MealAfterRequest{
		FullLevel: fptr(6),
		Images:    []string{"data:image/png;base64,BBBB"},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Images, 2)
	assert.Equal(t, created.Images[0], updated.Images[0])
}

func TestListSortedByDateTimeAscending(t *testing.T) {
	meals, _, _, _ := newTestServices(t)
	ctx := context.Background()

	for _, d := range []string{"2024-01-07", "2024-01-05", "2024-01-06"} {
		_, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
			Label: models.LabelBreakfast, DateTime: at(d), HungryLevel: fptr(5),
		})
		require.NoError(t, err)
	}

	all, err := meals.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2024-01-05", all[0].Date)
	assert.Equal(t, "2024-01-06", all[1].Date)
	assert.Equal(t, "2024-01-07", all[2].Date)
}

func TestLast30DaysEmpty(t *testing.T) {
	meals, _, _, _ := newTestServices(t)

	result, err := meals.Last30Days(context.Background(), 1, at("2024-02-01"))
	require.NoError(t, err)
	assert.Empty(t, result.Meals)
	assert.Equal(t, 0, result.Stats.TotalMeals)
	assert.Equal(t, 0.0, result.Stats.AvgHungryLevel)
	assert.Nil(t, result.Stats.AvgFullLevel)
}

func TestLast30DaysStats(t *testing.T) {
	meals, _, _, _ := newTestServices(t)
	ctx := context.Background()
	now := at("2024-02-01")

	breakfast, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-20"), HungryLevel: fptr(8),
	})
	require.NoError(t, err)
	_, err = meals.CreateAfter(ctx, 1, breakfast.ID, &MealAfterRequest{FullLevel: fptr(6)})
	require.NoError(t, err)

	_, err = meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelLunch, DateTime: at("2024-01-21"), HungryLevel: fptr(4),
	})
	require.NoError(t, err)

	// non-main meals are listed but excluded from the stats
	_, err = meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelSnack, DateTime: at("2024-01-22"), HungryLevel: fptr(10),
	})
	require.NoError(t, err)

	// outside the window
	_, err = meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelDinner, DateTime: at("2023-12-01"), HungryLevel: fptr(10),
	})
	require.NoError(t, err)

	result, err := meals.Last30Days(ctx, 1, now)
	require.NoError(t, err)
	assert.Len(t, result.Meals, 3)
	assert.Equal(t, 2, result.Stats.TotalMeals)
	assert.Equal(t, 6.0, result.Stats.AvgHungryLevel)
	require.NotNil(t, result.Stats.AvgFullLevel)
	assert.Equal(t, 6.0, *result.Stats.AvgFullLevel)
}

func TestSummaryMatchesDirectRecomputation(t *testing.T) {
	meals, summaries, _, db := newTestServices(t)
	ctx := context.Background()

	b, err := meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelBreakfast, DateTime: at("2024-01-05"), HungryLevel: fptr(8),
	})
	require.NoError(t, err)
	_, err = meals.CreateAfter(ctx, 1, b.ID, &MealAfterRequest{FullLevel: fptr(6)})
	require.NoError(t, err)
	_, err = meals.CreateBefore(ctx, 1, &MealBeforeRequest{
		Label: models.LabelDinner, DateTime: at("2024-01-05"), HungryLevel: fptr(4),
	})
	require.NoError(t, err)

	got := storedSummary(t, db, 1, "2024-01-05")

	// a fresh recompute lands on exactly the same values
	require.NoError(t, summaries.Recompute(ctx, 1, "2024-01-05"))
	assert.Equal(t, got, storedSummary(t, db, 1, "2024-01-05"))
	assert.Equal(t, 7.0, got.Breakfast)
	assert.Equal(t, 0.0, got.Lunch)
	assert.Equal(t, 2.0, got.Dinner)

	var count int64
	require.NoError(t, db.Model(&models.DailySummary{}).Where("user_id = ? AND date = ?", 1, "2024-01-05").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDuplicateErrorIsTyped(t *testing.T) {
	err := error(&DuplicateMealError{Label: "lunch"})
	var dup *DuplicateMealError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "You already have a lunch for this day.", err.Error())
}
