package handlers

import (
	pc "github.com/fatflowers/dukabill/internal/app/service/payment_callback"
	"github.com/fatflowers/dukabill/internal/app/service/statistics"
	subsvc "github.com/fatflowers/dukabill/internal/app/service/subscription"
	"github.com/fatflowers/dukabill/internal/models"
	"github.com/fatflowers/dukabill/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespHealth struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    HealthResponse           `json:"data"`
}

type RespSubscription struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Subscription      `json:"data"`
}

type RespSubscriptions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Subscription    `json:"data"`
}

type RespActiveSubscription struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    ActiveSubscriptionResponse `json:"data"`
}

type RespListSubscriptions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    subsvc.ListResult        `json:"data"`
}

type RespStats struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    statistics.Stats         `json:"data"`
}

type RespSubscriptionLogs struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.SubscriptionLog `json:"data"`
}

type RespCallbackResult struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    pc.Result                `json:"data"`
}

type RespPaymentCallbacks struct {
	Code    response.APIResponseCode        `json:"code"`
	Message string                          `json:"message"`
	Data    []models.PaymentNotificationLog `json:"data"`
}
