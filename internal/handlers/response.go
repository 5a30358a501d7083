package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/kernelpilot-backend/internal/platform/apierr"
)

// StatusResponse is the response envelope of the original client contract:
// a machine-readable status, a short message, and a details field carrying
// either the result or the underlying diagnostic.
type StatusResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
	Code    string      `json:"code,omitempty"`
}

func RespondOK(c *gin.Context, details interface{}) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:  "success",
		Message: "",
		Details: details,
	})
}

// RespondError maps every core failure onto a 500 envelope. No error is
// swallowed: the details field always carries the diagnostic, and the code
// field distinguishes failure kinds (AlreadyExists vs execution failure,
// publish timeout vs publish failure).
func RespondError(c *gin.Context, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.JSON(http.StatusInternalServerError, StatusResponse{
		Status:  "error",
		Message: message,
		Details: details,
		Code:    apierr.CodeOf(err),
	})
}
