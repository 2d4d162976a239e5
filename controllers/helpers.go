package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Evgenija-P/inFeely-server/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func userIDFromCtx(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func mealIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("mealId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid mealId"})
		return 0, false
	}
	return uint(id), true
}

func parseDate(c *gin.Context, value, name string) (string, bool) {
	if _, err := time.Parse("2006-01-02", value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": name + " must be YYYY-MM-DD"})
		return "", false
	}
	return value, true
}

// bindError maps a binding failure to the wire shape: {message} plus,
// for schema validation, a field-level errors list.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]gin.H, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, gin.H{"field": fe.Field(), "message": fieldMessage(fe)})
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": details})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must have at most " + fe.Param() + " items"
	case "len":
		return "must have exactly " + fe.Param() + " items"
	default:
		return "is invalid"
	}
}

// respondError maps domain errors to status codes; anything
// unclassified becomes a 500 with the message passed through.
func respondError(c *gin.Context, err error) {
	var dup *services.DuplicateMealError
	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusBadRequest, gin.H{"message": dup.Error()})
	case errors.Is(err, services.ErrMealAlreadyComplete):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, services.ErrMealNotFound), errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	}
}
