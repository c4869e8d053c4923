package server

import (
	"net/http"
	"strconv"

	apperrors "quotaflow-go/internal/errors"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string, details any) {
	payload := gin.H{"error": message}
	if details != nil {
		payload["details"] = details
	}
	c.JSON(status, payload)
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondError(c, http.StatusBadRequest, "invalid json", err.Error())
		return false
	}
	return true
}

func setNoCacheHeaders(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}

// respondAPIError renders err in the Gemini envelope, or the OpenAI one when
// the caller asks for ?error_format=openai.
func respondAPIError(c *gin.Context, err error) {
	apiErr := apperrors.ToAPIError(err)
	if apiErr.HTTPStatus == http.StatusTooManyRequests || apiErr.HTTPStatus == http.StatusServiceUnavailable {
		if ra := apiErr.SuggestedRetryAfter(); ra > 0 {
			c.Header("Retry-After", strconv.Itoa(ra))
		}
	}
	body, mErr := apiErr.Render(apperrors.ParseErrorFormat(c.Query("error_format")))
	if mErr != nil {
		respondError(c, apiErr.HTTPStatus, apiErr.Message, nil)
		return
	}
	c.Data(apiErr.HTTPStatus, "application/json; charset=utf-8", body)
}
