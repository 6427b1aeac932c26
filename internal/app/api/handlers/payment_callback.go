package handlers

import (
	"errors"
	"net/http"

	pc "github.com/fatflowers/dukabill/internal/app/service/payment_callback"
	"github.com/fatflowers/dukabill/pkg/logctx"
	"github.com/fatflowers/dukabill/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxCallbackBody = 64 << 10

// MpesaAck is the acknowledgement body the STK push gateway expects.
// A non-zero ResultCode asks the gateway to deliver the callback again.
type MpesaAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func readCallbackBody(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBody)
	return c.GetRawData()
}

// @Summary      Payment Callback
// @Description  Applies a gateway payment result to the pending subscription carrying the same correlation id.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body payment_callback.Callback true "Payment result"
// @Success      200  {object}  handlers.RespCallbackResult
// @Router       /api/v2/payment/callback [post]
func ApiPaymentCallback(m *pc.Matcher, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := readCallbackBody(c)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		// processing continues if the gateway hangs up
		ctx := logctx.Detach(c.Request.Context(), log)
		res, err := m.Handle(ctx, pc.GenericParser{}, body)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      M-Pesa Webhook
// @Description  Receives STK push results. Unmatched and malformed callbacks are recorded and acknowledged; only internal failures request a retry.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body object true "STK push callback payload"
// @Success      200  {object}  handlers.MpesaAck
// @Router       /api/v2/payment/webhook/mpesa [post]
func ApiMpesaWebhook(m *pc.Matcher, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lg := logctx.FromGin(c, log)
		body, err := readCallbackBody(c)
		if err != nil {
			lg.Warnw("webhook_mpesa_unreadable", "err", err)
			c.JSON(http.StatusOK, MpesaAck{ResultCode: 1, ResultDesc: "unreadable body"})
			return
		}

		res, err := m.Handle(logctx.Detach(c.Request.Context(), log), pc.MpesaParser{}, body)
		switch {
		case err == nil:
			lg.Infow("webhook_mpesa_handled", "outcome", res.Outcome, "subscription_id", res.SubscriptionID)
		case errors.Is(err, pc.ErrUnmatchedCallback), errors.Is(err, pc.ErrInvalidCallback):
			// already recorded in the callback log; redelivery would not change the result
		default:
			lg.Errorw("webhook_mpesa_handle_error", "err", err)
			c.JSON(http.StatusOK, MpesaAck{ResultCode: 1, ResultDesc: "temporarily unavailable"})
			return
		}
		c.JSON(http.StatusOK, MpesaAck{ResultCode: 0, ResultDesc: "Accepted"})
	}
}

func RegisterPaymentRoutes(r gin.IRouter, m *pc.Matcher, log *zap.SugaredLogger) {
	r.POST("/callback", ApiPaymentCallback(m, log))
	r.POST("/webhook/mpesa", ApiMpesaWebhook(m, log))
}
