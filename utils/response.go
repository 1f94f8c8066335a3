package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/careping/errcode"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

type errorMapping struct {
	status int
	code   int
}

var errorMappings = map[errcode.Code]errorMapping{
	errcode.Invalid:      {http.StatusBadRequest, 40000},
	errcode.Forbidden:    {http.StatusForbidden, 40300},
	errcode.TaskNotFound: {http.StatusNotFound, 40401},
	errcode.NotFound:     {http.StatusNotFound, 40402},
	errcode.Duplicate:    {http.StatusConflict, 40901},
	errcode.AlreadyBound: {http.StatusConflict, 40902},
	errcode.WrongState:   {http.StatusConflict, 40903},
	errcode.Cooldown:     {http.StatusConflict, 40904},
	errcode.TooEarly:     {http.StatusUnprocessableEntity, 42201},
	errcode.Expired:      {http.StatusUnprocessableEntity, 42202},
}

// Fail writes err in the response envelope. Coded errors keep their message and reason
// code; anything else is logged and reported as a bare 500.
func Fail(ctx *gin.Context, err error) {
	code, ok := errcode.CodeOf(err)
	if m, known := errorMappings[code]; ok && known {
		Respond(ctx, m.status, m.code, err.Error(), gin.H{"reason": code})
		return
	}
	_ = ctx.Error(err)
	Error(ctx, http.StatusInternalServerError, 50000, "internal error")
}
