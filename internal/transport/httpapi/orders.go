package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

func (h *handler) composeOrder(c *gin.Context) {
	var sub domain.OrderSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	order, err := h.services.Orders.ComposeOrder(ctx, sub)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *handler) processBatch(c *gin.Context) {
	var batch []domain.OrderSubmission
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	created, err := h.services.Orders.ProcessBatch(ctx, batch)
	if err != nil {
		h.requestLogger(c).WithError(err).WithField("batch_size", len(batch)).Info("batch rejected")
		h.writeError(c, err)
		return
	}
	writeList(c, created)
}

func (h *handler) processBatchReport(c *gin.Context) {
	var batch []domain.OrderSubmission
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	report, err := h.services.Orders.ProcessBatchReport(ctx, batch)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.requestLogger(c).WithFields(log.Fields{
		"batch_size": len(batch),
		"succeeded":  report.SuccessCount,
		"failed":     report.FailureCount,
	}).Info("batch report built")
	c.JSON(http.StatusOK, report)
}

func (h *handler) getOrder(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	order, err := h.services.Orders.GetOrder(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handler) listOrders(c *gin.Context) {
	page, ok := h.page(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.services.Orders.ListOrders(ctx, page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeList(c, list)
}

func (h *handler) deleteOrder(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.services.Orders.DeleteOrder(ctx, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
