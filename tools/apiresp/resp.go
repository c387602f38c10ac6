package apiresp

import (
	"net/http"

	"github.com/gin-gonic/gin"

	errs "PChat/tools/errs"
)

// Body is the uniform REST envelope.
type Body struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Msg: "ok", Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Code: 0, Msg: "ok", Data: data})
}

// Fail maps a coded error to an HTTP status and the envelope. Uncoded
// errors collapse to the generic internal error so store and transport
// details stay on the server side.
func Fail(c *gin.Context, err error) {
	ce, ok := errs.AsCodeError(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, Body{Code: errs.ErrInternal.Code, Msg: errs.ErrInternal.Msg})
		return
	}
	c.JSON(httpStatus(ce.Code), Body{Code: ce.Code, Msg: ce.Msg})
}

func httpStatus(code int) int {
	switch {
	case code == errs.ErrAccountLocked.Code:
		return http.StatusLocked
	case code == errs.ErrPasswordTooWeak.Code:
		return http.StatusBadRequest
	case code == errs.ErrPhoneExists.Code,
		code == errs.ErrEmailExists.Code,
		code == errs.ErrUsernameExists.Code:
		return http.StatusConflict
	case code >= 1101 && code < 1200:
		return http.StatusUnauthorized
	case code >= 1200 && code < 1300:
		return http.StatusForbidden
	case code >= 1300 && code < 1400:
		return http.StatusBadRequest
	case code == errs.ErrNotFound.Code:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
