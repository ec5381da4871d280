package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/lemon-backend/internal/dto"
	"github.com/ignatzorin/lemon-backend/internal/logger"
	"github.com/ignatzorin/lemon-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, если ответ ещё не отправлен.
// Внутренние ошибки маскируются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, body := ErrorBody(err)
		if status >= http.StatusInternalServerError {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		c.JSON(status, body)
	}
}

// ErrorBody переводит ошибку в HTTP статус и тело ответа.
// Ошибки без AppError в цепочке становятся INTERNAL_ERROR.
func ErrorBody(err error) (int, dto.ErrorResponse) {
	appErr, ok := apperror.As(err)
	if !ok {
		return http.StatusInternalServerError, dto.ErrorResponse{
			Error: "внутренняя ошибка сервера",
			Code:  string(apperror.ErrCodeInternal),
		}
	}

	status := appErr.HTTPStatus
	message := appErr.Message
	if status >= http.StatusInternalServerError && appErr.Code != apperror.ErrCodeProvider {
		message = "внутренняя ошибка сервера"
	}

	return status, dto.ErrorResponse{
		Error:  message,
		Code:   string(appErr.Code),
		Fields: appErr.Fields,
	}
}

func abortWithError(c *gin.Context, err error) {
	status, body := ErrorBody(err)
	c.AbortWithStatusJSON(status, body)
}
