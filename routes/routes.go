package routes

import (
	"github.com/Evgenija-P/inFeely-server/config"
	"github.com/Evgenija-P/inFeely-server/controllers"
	"github.com/Evgenija-P/inFeely-server/middlewares"
	"github.com/Evgenija-P/inFeely-server/services"
	"github.com/Evgenija-P/inFeely-server/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
		auth.POST("/oauth/google", controllers.OAuthGoogle)
		auth.POST("/oauth/apple", controllers.OAuthApple)
		auth.POST("/forgot-password", controllers.ForgotPassword)
		auth.POST("/reset-password", controllers.ResetPassword)

		me := auth.Group("")
		me.Use(middlewares.AuthMiddleware())
		{
			me.GET("/me", controllers.Me)
			me.PATCH("/profile", controllers.UpdateProfile)
			me.POST("/logout", controllers.Logout)
		}
	}

	summarySvc := services.NewSummaryService(config.DB)
	mealSvc := services.NewMealService(config.DB, utils.S3Uploader{KeyPrefix: "meals"}, summarySvc)
	mc := controllers.NewMealController(mealSvc, summarySvc)

	meal := r.Group("/meal")
	meal.Use(middlewares.AuthMiddleware())
	{
		meal.POST("/before", mc.CreateBefore)
		meal.POST("/after/:mealId", mc.CreateAfter)
		meal.GET("/", mc.List)
		meal.GET("/:mealId", mc.Get)
		meal.GET("/day/:date", mc.ListByDate)
		meal.GET("/day/period", mc.ListByPeriod)
		meal.GET("/stats/day/:date", mc.SummaryByDate)
		meal.GET("/stats/period", mc.SummaryByPeriod)
		meal.GET("/stats/last30days", mc.Last30Days)
		meal.GET("/calendar", mc.Calendar)
		meal.PATCH("/:mealId", mc.Update)
		meal.DELETE("/:mealId", mc.Delete)
	}

	return r
}
