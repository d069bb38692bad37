package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
	"github.com/vladislavdragonenkov/customer-management/internal/service/orders"
)

const (
	// HeaderRequestID: заголовок с идентификатором запроса.
	HeaderRequestID = "X-Request-ID"

	requestIDKey   = "request_id"
	requestTimeout = 30 * time.Second
)

// OrderService: операции с заказами, доступные через HTTP.
type OrderService interface {
	ComposeOrder(ctx context.Context, sub domain.OrderSubmission) (domain.Order, error)
	ProcessBatch(ctx context.Context, batch []domain.OrderSubmission) ([]domain.Order, error)
	ProcessBatchReport(ctx context.Context, batch []domain.OrderSubmission) (orders.BatchReport, error)
	GetOrder(ctx context.Context, id int64) (domain.Order, error)
	ListOrders(ctx context.Context, page domain.Page) ([]domain.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// CustomerService: операции с клиентами и адресами.
type CustomerService interface {
	Register(ctx context.Context, sub domain.CustomerSubmission) (domain.Customer, error)
	Get(ctx context.Context, id int64) (domain.Customer, error)
	List(ctx context.Context, page domain.Page) ([]domain.Customer, error)
	Update(ctx context.Context, id int64, sub domain.CustomerSubmission) (domain.Customer, error)
	AddAddress(ctx context.Context, customerID int64, sub domain.AddressSubmission) (domain.Address, error)
	RemoveAddress(ctx context.Context, customerID, addressID int64) error
	Delete(ctx context.Context, id int64) error
}

// ProductService: операции с каталогом продуктов.
type ProductService interface {
	Register(ctx context.Context, sub domain.ProductSubmission) (domain.Product, error)
	RegisterBatch(ctx context.Context, batch []domain.ProductSubmission) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (domain.Product, error)
	List(ctx context.Context, page domain.Page) ([]domain.Product, error)
	Update(ctx context.Context, id int64, sub domain.ProductSubmission) (domain.Product, error)
	Rename(ctx context.Context, id int64, name string) (domain.Product, error)
	Delete(ctx context.Context, id int64) error
}

// Services собирает зависимости обработчиков.
type Services struct {
	Orders    OrderService
	Customers CustomerService
	Products  ProductService
}

type handler struct {
	services Services
	logger   *log.Entry
}

// NewRouter собирает gin-роутер с маршрутами /api/*.
func NewRouter(services Services, logger *log.Entry) *gin.Engine {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	h := &handler{services: services, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), h.accessLog())

	api := r.Group("/api")

	ordersGroup := api.Group("/orders")
	ordersGroup.POST("", h.composeOrder)
	ordersGroup.POST("/batch", h.processBatch)
	ordersGroup.POST("/batch/report", h.processBatchReport)
	ordersGroup.GET("", h.listOrders)
	ordersGroup.GET("/:id", h.getOrder)
	ordersGroup.DELETE("/:id", h.deleteOrder)

	customers := api.Group("/customers")
	customers.POST("", h.registerCustomer)
	customers.GET("", h.listCustomers)
	customers.GET("/:id", h.getCustomer)
	customers.PUT("/:id", h.updateCustomer)
	customers.DELETE("/:id", h.deleteCustomer)
	customers.POST("/:id/addresses", h.addAddress)
	customers.DELETE("/:id/addresses/:addressId", h.removeAddress)

	products := api.Group("/products")
	products.POST("", h.registerProduct)
	products.POST("/batch", h.registerProducts)
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)
	products.PUT("/:id", h.updateProduct)
	products.PATCH("/:id", h.renameProduct)
	products.DELETE("/:id", h.deleteProduct)

	return r
}

// requestID берёт X-Request-ID из запроса или генерирует uuid и возвращает его в ответе.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func (h *handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := h.logger.WithFields(log.Fields{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

// requestLogger возвращает логгер с request_id текущего запроса.
func (h *handler) requestLogger(c *gin.Context) *log.Entry {
	return h.logger.WithField("request_id", c.GetString(requestIDKey))
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}
