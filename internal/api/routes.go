package api

import (
	"alcyxob/routine-planner/internal/domain" // Needed for RoleMiddleware
	"alcyxob/routine-planner/internal/metrics"
	"alcyxob/routine-planner/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth       service.AuthService
	Routines   service.RoutineService
	Reschedule service.RescheduleService
	Plans      service.PlanService
	Renewals   RenewalRunner
}

func SetupRoutes(router *gin.Engine, jwtSecret string, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	routineHandler := NewRoutineHandler(svc.Routines)
	repairHandler := NewRepairHandler(svc.Reschedule)
	planHandler := NewPlanHandler(svc.Plans)
	adminHandler := NewAdminHandler(svc.Renewals)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)
		protected.PUT("/me/profile", authHandler.UpdateProfile)

		// --- Routine Routes ---
		routineGroup := protected.Group("/routines")
		{
			routineGroup.POST("", routineHandler.CreatePeriod)
			routineGroup.GET("/current", routineHandler.GetPeriod)
			routineGroup.POST("/current/days", routineHandler.AppendDays)
			routineGroup.PATCH("/days/:dayId/status", routineHandler.UpdateDayStatus)
			routineGroup.DELETE("/days/:dayId", routineHandler.DeleteDay)

			// Failure reports drive the plan repair.
			routineGroup.POST("/failures", repairHandler.ReportFailure)
			routineGroup.GET("/failures", repairHandler.ListReports)
		}

		// --- Plan Routes ---
		planGroup := protected.Group("/plan")
		{
			planGroup.GET("", planHandler.GetPlan)
			planGroup.GET("/snapshots", planHandler.ListSnapshots)
			planGroup.GET("/snapshots/:version/url", planHandler.GetSnapshotURL)
		}

		// --- Admin Routes ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.POST("/renewals/run", adminHandler.RunRenewals)
		}
	}
}
