package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/biblioteca-api/internal/middleware"
	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

func operatorFromContext(c *gin.Context) *models.CurrentOperator {
	operator, ok := middleware.CurrentOperator(c)
	if !ok {
		return nil
	}
	return operator
}

func invalidPayload(err error) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrInvalidParameter.Code, http.StatusBadRequest, "invalid payload")
}
