package handlers

import (
	"net/http"

	subsvc "github.com/fatflowers/dukabill/internal/app/service/subscription"
	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ActiveSubscriptionResponse struct {
	Subscribed   bool                 `json:"subscribed"`
	Subscription *models.Subscription `json:"subscription"`
}

// @Summary      Create Subscription
// @Description  Creates a pending subscription priced from the plan catalog. Payment later activates it through the gateway callback.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body subscription.CreatePendingRequest true "Create subscription request"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/subscription/create [post]
func ApiCreateSubscription(svc *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subsvc.CreatePendingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		sub, err := svc.CreatePending(c.Request.Context(), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Active Subscription
// @Description  Returns the subscription currently granting the user access, if any.
// @Tags         Subscription
// @Produce      json
// @Param        user_id query string true "User ID"
// @Success      200  {object}  handlers.RespActiveSubscription
// @Router       /api/v1/subscription/active [get]
func ApiActiveSubscription(svc *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			badRequest(c, "missing user_id")
			return
		}
		sub, err := svc.GetActiveSubscription(c.Request.Context(), userID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&ActiveSubscriptionResponse{Subscribed: sub != nil, Subscription: sub}))
	}
}

// @Summary      List User Subscriptions
// @Description  Returns every subscription of a user, newest first.
// @Tags         Subscription
// @Produce      json
// @Param        user_id query string true "User ID"
// @Success      200  {object}  handlers.RespSubscriptions
// @Router       /api/v1/subscription/list [get]
func ApiListUserSubscriptions(svc *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			badRequest(c, "missing user_id")
			return
		}
		subs, err := svc.ListByOwner(c.Request.Context(), userID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(subs))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, svc *subsvc.Service, log *zap.SugaredLogger) {
	r.POST("/create", ApiCreateSubscription(svc, log))
	r.GET("/active", ApiActiveSubscription(svc, log))
	r.GET("/list", ApiListUserSubscriptions(svc, log))
}
