package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/relay-swap/internal/common"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, err string) {
	c.JSON(status, Response{
		Success: false,
		Error:   err,
	})
}

func BadRequest(c *gin.Context, err string) {
	Error(c, http.StatusBadRequest, err)
}

// HandleHttpError writes an HttpError with its code.
func HandleHttpError(c *gin.Context, e *common.HttpError) {
	c.JSON(e.StatusCode, Response{
		Success: false,
		Error:   e.Message,
		Code:    e.Code,
	})
}

// HandleError maps a planning error to its status and user message.
func HandleError(c *gin.Context, err error) {
	HandleHttpError(c, common.HTTPErrorFrom(err))
}

func HandleSuccess(c *gin.Context, data interface{}) {
	Success(c, data)
}

func HandleBadRequest(c *gin.Context, err string) {
	BadRequest(c, err)
}
