package handlers

import (
	"errors"
	"net/http"

	pc "github.com/fatflowers/dukabill/internal/app/service/payment_callback"
	subsvc "github.com/fatflowers/dukabill/internal/app/service/subscription"
	"github.com/fatflowers/dukabill/pkg/logctx"
	"github.com/fatflowers/dukabill/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func errorCode(err error) response.APIResponseCode {
	switch {
	case errors.Is(err, subsvc.ErrValidation), errors.Is(err, pc.ErrInvalidCallback):
		return response.APIResponseCodeBadRequest
	case errors.Is(err, subsvc.ErrNotFound), errors.Is(err, pc.ErrUnmatchedCallback):
		return response.APIResponseCodeNotFound
	case errors.Is(err, subsvc.ErrInvalidState):
		return response.APIResponseCodeConflict
	default:
		return response.APIResponseCodeError
	}
}

// writeError renders err in the response envelope. Unexpected errors are
// logged and their text is not exposed.
func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	code := errorCode(err)
	if code == response.APIResponseCodeError {
		logctx.FromGin(c, log).Errorw("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusOK, response.ErrorT[any](code, nil))
		return
	}
	c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, msg))
}
