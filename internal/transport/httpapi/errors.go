package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

// errInvalidRequest: тело или параметры запроса не разбираются.
var errInvalidRequest = &domain.Error{
	Kind:    domain.KindValidation,
	Code:    "INVALID_REQUEST",
	Message: "invalid request",
}

type errorBody struct {
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeError переводит ошибку сервиса в HTTP-ответ. Бизнес-ошибки отдаются
// с собственным статусом, остальное: 500 без подробностей.
func (h *handler) writeError(c *gin.Context, err error) {
	if derr, ok := domain.AsError(err); ok {
		c.AbortWithStatusJSON(derr.Status(), errorBody{
			Code:    derr.Code,
			Kind:    string(derr.Kind),
			Message: derr.Message,
		})
		return
	}

	h.requestLogger(c).WithError(err).Error("request failed with internal error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Code: "INTERNAL"})
}

func (h *handler) badRequest(c *gin.Context, err error) {
	invalid := errInvalidRequest.Withf("invalid request: %v", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
		Code:    invalid.Code,
		Kind:    string(invalid.Kind),
		Message: invalid.Message,
	})
}

// pathID разбирает числовой параметр пути.
func (h *handler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, fmt.Errorf("%s must be a positive integer", name))
		return 0, false
	}
	return id, true
}

// page разбирает pageNumber и pageSize; отсутствующие значения нормализует domain.NewPage.
func (h *handler) page(c *gin.Context) (domain.Page, bool) {
	var query struct {
		PageNumber int `form:"pageNumber"`
		PageSize   int `form:"pageSize"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.badRequest(c, err)
		return domain.Page{}, false
	}
	return domain.NewPage(query.PageNumber, query.PageSize), true
}

// writeList отдаёт 204 для пустой страницы.
func writeList[T any](c *gin.Context, items []T) {
	if len(items) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, items)
}
