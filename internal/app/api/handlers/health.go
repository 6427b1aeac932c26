package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/fatflowers/dukabill/pkg/response"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthResponse struct {
	Status string `json:"status"`
	// Storage is "postgres" or "memory".
	Storage string `json:"storage"`
	Redis   string `json:"redis"`
}

// @Summary      Health check
// @Description  Returns service status and the reachability of its backing stores
// @Tags         System
// @Produce      json
// @Success      200  {object}  handlers.RespHealth
// @Router       /healthz [get]
func Healthz(db *gorm.DB, rdb *goredis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		out := &HealthResponse{Status: "ok", Storage: "memory", Redis: "disabled"}
		if db != nil {
			out.Storage = "postgres"
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				out.Status = "degraded"
				out.Storage = "postgres unreachable"
			}
		}
		if rdb != nil {
			out.Redis = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				out.Status = "degraded"
				out.Redis = "unreachable"
			}
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

func RegisterHealthRoutes(r gin.IRouter, db *gorm.DB, rdb *goredis.Client) {
	r.GET("/healthz", Healthz(db, rdb))
}
