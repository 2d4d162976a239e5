package controllers

import (
	"net/http"
	"time"

	"github.com/Evgenija-P/inFeely-server/services"

	"github.com/gin-gonic/gin"
)

type MealController struct {
	Meals     *services.MealService
	Summaries *services.SummaryService
}

func NewMealController(meals *services.MealService, summaries *services.SummaryService) *MealController {
	return &MealController{Meals: meals, Summaries: summaries}
}

func (h *MealController) CreateBefore(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	var req services.MealBeforeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	meal, err := h.Meals.CreateBefore(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}

func (h *MealController) CreateAfter(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	mealID, ok := mealIDParam(c)
	if !ok {
		return
	}

	var req services.MealAfterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	meal, err := h.Meals.CreateAfter(c.Request.Context(), userID, mealID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func (h *MealController) Update(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	mealID, ok := mealIDParam(c)
	if !ok {
		return
	}

	var req services.MealUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	meal, err := h.Meals.Update(c.Request.Context(), userID, mealID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func (h *MealController) Delete(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	mealID, ok := mealIDParam(c)
	if !ok {
		return
	}

	if err := h.Meals.Delete(c.Request.Context(), userID, mealID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "meal deleted"})
}

func (h *MealController) List(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	meals, err := h.Meals.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meals)
}

func (h *MealController) Get(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	mealID, ok := mealIDParam(c)
	if !ok {
		return
	}

	meal, err := h.Meals.Get(c.Request.Context(), userID, mealID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func (h *MealController) ListByDate(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	date, ok := parseDate(c, c.Param("date"), "date")
	if !ok {
		return
	}

	meals, err := h.Meals.ListByDate(c.Request.Context(), userID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meals)
}

func (h *MealController) ListByPeriod(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	startDate, endDate, ok := periodParams(c)
	if !ok {
		return
	}

	meals, err := h.Meals.ListByRange(c.Request.Context(), userID, startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meals)
}

func (h *MealController) SummaryByDate(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	date, ok := parseDate(c, c.Param("date"), "date")
	if !ok {
		return
	}

	summary, err := h.Summaries.ByDate(c.Request.Context(), userID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *MealController) SummaryByPeriod(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	startDate, endDate, ok := periodParams(c)
	if !ok {
		return
	}

	summaries, err := h.Summaries.ByPeriod(c.Request.Context(), userID, startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *MealController) Last30Days(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	result, err := h.Meals.Last30Days(c.Request.Context(), userID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *MealController) Calendar(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	calendar, err := h.Summaries.CurrentMonth(c.Request.Context(), userID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, calendar)
}

func periodParams(c *gin.Context) (string, string, bool) {
	startDate, ok := parseDate(c, c.Query("startDate"), "startDate")
	if !ok {
		return "", "", false
	}
	endDate, ok := parseDate(c, c.Query("endDate"), "endDate")
	if !ok {
		return "", "", false
	}
	if endDate < startDate {
		c.JSON(http.StatusBadRequest, gin.H{"message": "endDate must be on/after startDate"})
		return "", "", false
	}
	return startDate, endDate, true
}
