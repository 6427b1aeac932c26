package handlers

import (
	"net/http"
	"time"

	mw "github.com/fatflowers/dukabill/internal/app/api/middleware"
	"github.com/fatflowers/dukabill/internal/app/service/auditlog"
	notificationlog "github.com/fatflowers/dukabill/internal/app/service/notification_log"
	"github.com/fatflowers/dukabill/internal/app/service/statistics"
	subsvc "github.com/fatflowers/dukabill/internal/app/service/subscription"
	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/internal/store"
	"github.com/fatflowers/dukabill/pkg/response"
	"github.com/fatflowers/dukabill/pkg/tool"
	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultLogLimit = 100

type ExtendSubscriptionRequest struct {
	SubscriptionID string              `json:"subscription_id" binding:"required"`
	Extension      types.ExtensionKind `json:"extension" binding:"required" example:"1-month"`
	Reason         string              `json:"reason"`
}

type RevokeSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id" binding:"required"`
	Reason         string `json:"reason"`
}

type ListSubscriptionsRequest struct {
	UserID      string                     `json:"user_id"`
	Statuses    []types.SubscriptionStatus `json:"statuses"`
	Currency    types.Currency             `json:"currency"`
	Email       string                     `json:"email"`
	EndBefore   *time.Time                 `json:"end_before"`
	CreatedFrom *time.Time                 `json:"created_from"`
	CreatedTo   *time.Time                 `json:"created_to"`
	From        int                        `json:"from"`
	Size        int                        `json:"size"`
}

func (r *ListSubscriptionsRequest) toListRequest() *subsvc.ListRequest {
	return &subsvc.ListRequest{
		Filter: store.Filter{
			UserID:        r.UserID,
			Statuses:      r.Statuses,
			Currency:      r.Currency,
			EmailContains: r.Email,
			EndBefore:     r.EndBefore,
			CreatedFrom:   r.CreatedFrom,
			CreatedTo:     r.CreatedTo,
		},
		From: r.From,
		Size: r.Size,
	}
}

type ListSubscriptionLogsRequest struct {
	// SubscriptionID narrows the result to one subscription; empty lists the latest entries.
	SubscriptionID string `json:"subscription_id"`
	Limit          int    `json:"limit"`
}

type ListPaymentCallbacksRequest struct {
	CorrelationID string `json:"correlation_id" binding:"required"`
}

// @Summary      Extend Subscription (Admin)
// @Description  Adds a catalog extension period to a subscription and reactivates it when it already lapsed.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ExtendSubscriptionRequest true "Extend request"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/extend_subscription [post]
func ApiExtendSubscription(svc *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ExtendSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if !tool.IsUUID(req.SubscriptionID) {
			badRequest(c, "malformed subscription_id")
			return
		}
		sub, err := svc.Extend(c.Request.Context(), req.SubscriptionID, req.Extension, mw.AdminID(c), req.Reason)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Revoke Subscription (Admin)
// @Description  Cancels a subscription and ends its paid period immediately.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body RevokeSubscriptionRequest true "Revoke request"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/admin/revoke_subscription [post]
func ApiRevokeSubscription(svc *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RevokeSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if !tool.IsUUID(req.SubscriptionID) {
			badRequest(c, "malformed subscription_id")
			return
		}
		sub, err := svc.Revoke(c.Request.Context(), req.SubscriptionID, mw.AdminID(c), req.Reason)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      List Subscriptions (Admin)
// @Description  Retrieves a paginated and filterable list of subscriptions, newest first.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ListSubscriptionsRequest true "Filters and pagination"
// @Success      200  {object}  handlers.RespListSubscriptions
// @Router       /api/v1/admin/list_subscriptions [post]
func ApiListSubscriptions(svc *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListSubscriptionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.List(c.Request.Context(), req.toListRequest())
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Subscription Statistics (Admin)
// @Description  Revenue per currency for paid subscriptions, a KSH display total and counts per status.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespStats
// @Router       /api/v1/admin/get_stats [get]
func ApiGetStats(svc *statistics.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.ComputeStats(c.Request.Context())
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(stats))
	}
}

// @Summary      List Subscription Logs (Admin)
// @Description  Returns audit entries newest first, for one subscription or across all of them.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ListSubscriptionLogsRequest true "Log query"
// @Success      200  {object}  handlers.RespSubscriptionLogs
// @Router       /api/v1/admin/list_subscription_logs [post]
func ApiListSubscriptionLogs(audit *auditlog.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListSubscriptionLogsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.Limit <= 0 {
			req.Limit = defaultLogLimit
		}

		var (
			entries []*models.SubscriptionLog
			err     error
		)
		if req.SubscriptionID != "" {
			entries, err = audit.ListBySubscription(c.Request.Context(), req.SubscriptionID)
			if len(entries) > req.Limit {
				entries = entries[:req.Limit]
			}
		} else {
			entries, err = audit.ListAll(c.Request.Context(), req.Limit)
		}
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(entries))
	}
}

// @Summary      List Payment Callbacks (Admin)
// @Description  Returns every recorded gateway callback for a checkout, newest first, with its handling result.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ListPaymentCallbacksRequest true "Checkout correlation id"
// @Success      200  {object}  handlers.RespPaymentCallbacks
// @Router       /api/v1/admin/list_payment_callbacks [post]
func ApiListPaymentCallbacks(logs *notificationlog.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListPaymentCallbacksRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		entries, err := logs.ListByCorrelationID(c.Request.Context(), req.CorrelationID)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(entries))
	}
}

type AdminServices struct {
	Subscriptions *subsvc.Service
	Stats         *statistics.Service
	Audit         *auditlog.Service
	Callbacks     *notificationlog.Service
}

func RegisterAdminRoutes(r gin.IRouter, s AdminServices, log *zap.SugaredLogger) {
	r.POST("/extend_subscription", ApiExtendSubscription(s.Subscriptions, log))
	r.POST("/revoke_subscription", ApiRevokeSubscription(s.Subscriptions, log))
	r.POST("/list_subscriptions", ApiListSubscriptions(s.Subscriptions, log))
	r.GET("/get_stats", ApiGetStats(s.Stats, log))
	r.POST("/list_subscription_logs", ApiListSubscriptionLogs(s.Audit, log))
	r.POST("/list_payment_callbacks", ApiListPaymentCallbacks(s.Callbacks, log))
}
