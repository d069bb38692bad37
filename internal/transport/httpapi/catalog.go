package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

func (h *handler) registerCustomer(c *gin.Context) {
	var sub domain.CustomerSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	customer, err := h.services.Customers.Register(ctx, sub)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *handler) getCustomer(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	customer, err := h.services.Customers.Get(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *handler) listCustomers(c *gin.Context) {
	page, ok := h.page(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.services.Customers.List(ctx, page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeList(c, list)
}

func (h *handler) updateCustomer(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var sub domain.CustomerSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	customer, err := h.services.Customers.Update(ctx, id, sub)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *handler) deleteCustomer(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.services.Customers.Delete(ctx, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) addAddress(c *gin.Context) {
	customerID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var sub domain.AddressSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	address, err := h.services.Customers.AddAddress(ctx, customerID, sub)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}

func (h *handler) removeAddress(c *gin.Context) {
	customerID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	addressID, ok := h.pathID(c, "addressId")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.services.Customers.RemoveAddress(ctx, customerID, addressID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) registerProduct(c *gin.Context) {
	var sub domain.ProductSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	product, err := h.services.Products.Register(ctx, sub)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *handler) registerProducts(c *gin.Context) {
	var batch []domain.ProductSubmission
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	products, err := h.services.Products.RegisterBatch(ctx, batch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if len(products) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, products)
}

func (h *handler) getProduct(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	product, err := h.services.Products.Get(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *handler) listProducts(c *gin.Context) {
	page, ok := h.page(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.services.Products.List(ctx, page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeList(c, list)
}

func (h *handler) updateProduct(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var sub domain.ProductSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	product, err := h.services.Products.Update(ctx, id, sub)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type renamePayload struct {
	Name string `json:"name" binding:"required"`
}

func (h *handler) renameProduct(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var p renamePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	product, err := h.services.Products.Rename(ctx, id, p.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *handler) deleteProduct(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.services.Products.Delete(ctx, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
