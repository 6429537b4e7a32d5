package handler

import (
	"net/http"

	"elixir/internal/middleware"
	"elixir/internal/model"
	"elixir/internal/service"
	"elixir/pkg/pagination"
	"elixir/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	pedidoService service.PedidoService
}

func NewOrderHandler(pedidoService service.PedidoService) *OrderHandler {
	return &OrderHandler{pedidoService: pedidoService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/mis-pedidos", middleware.RequireRole(rolesCualquier...), h.MisPedidos)

	pedidos := router.Group("/pedidos")
	{
		pedidos.POST("", middleware.RequireRole(model.RolCliente), h.Crear)
		pedidos.GET("/gestion", middleware.RequireRole(rolesStaff...), h.Gestion)
		pedidos.GET("/seguimiento/:codigo", h.Seguimiento)
		pedidos.GET("/:id", middleware.RequireRole(rolesCualquier...), h.Detalle)
		pedidos.POST("/:id/cancelar", middleware.RequireRole(model.RolCliente), h.Cancelar)
		pedidos.POST("/:id/marcar-pagado", middleware.RequireRole(rolesVentas...), h.MarcarPagado)
		pedidos.POST("/:id/estado", middleware.RequireRole(rolesStaff...), h.CambiarEstado)
	}
}

// Crear places an order from the cart
// @Summary      Create order
// @Description  Validates stock, applies promotions and coupon, and deducts stock in one transaction.
// @Tags         pedidos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CrearPedidoRequest  true  "Order"
// @Success      201      {object}  response.Response{data=service.PedidoCreado}
// @Failure      400      {object}  response.Response
// @Router       /api/pedidos [post]
func (h *OrderHandler) Crear(c *gin.Context) {
	var req service.CrearPedidoRequest
	if !bindJSON(c, &req) {
		return
	}

	pedido, err := h.pedidoService.Crear(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.SuccessMessage("Pedido creado exitosamente", pedido))
}

// MisPedidos lists the caller's orders. Vendedores and gerentes see every order.
// @Summary      My orders
// @Tags         pedidos
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default: 1)"
// @Param        limit  query     int  false  "Items per page (default: 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Failure      403    {object}  response.Response
// @Router       /api/mis-pedidos [get]
func (h *OrderHandler) MisPedidos(c *gin.Context) {
	p := pagination.Parse(c)
	pedidos, total, err := h.pedidoService.MisPedidos(c.Request.Context(), actorFrom(c), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(pedidos, total, p.Page, p.Limit)))
}

// Detalle returns an order to its owner or to staff
// @Summary      Order detail
// @Tags         pedidos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.Pedido}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/pedidos/{id} [get]
func (h *OrderHandler) Detalle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pedido, err := h.pedidoService.Detalle(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(pedido))
}

// Cancelar cancels a pending order of the caller and restores stock
// @Summary      Cancel own order
// @Tags         pedidos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.Pedido}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/pedidos/{id}/cancelar [post]
func (h *OrderHandler) Cancelar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pedido, err := h.pedidoService.Cancelar(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Pedido cancelado", pedido))
}

// MarcarPagado records the payment of a pending order
// @Summary      Mark order as paid
// @Tags         pedidos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.Pedido}
// @Failure      409  {object}  response.Response
// @Router       /api/pedidos/{id}/marcar-pagado [post]
func (h *OrderHandler) MarcarPagado(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pedido, err := h.pedidoService.MarcarPagado(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Pedido marcado como pagado", pedido))
}

// CambiarEstado moves an order through its lifecycle
// @Summary      Change order status
// @Tags         pedidos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Order ID"
// @Param        payload  body      service.CambiarEstadoRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=model.Pedido}
// @Failure      409      {object}  response.Response
// @Router       /api/pedidos/{id}/estado [post]
func (h *OrderHandler) CambiarEstado(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CambiarEstadoRequest
	if !bindJSON(c, &req) {
		return
	}

	pedido, err := h.pedidoService.CambiarEstado(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Estado actualizado", pedido))
}

// Gestion lists all orders for staff, optionally by status
// @Summary      Order management list
// @Tags         pedidos
// @Security     BearerAuth
// @Produce      json
// @Param        estado  query     string  false  "Status filter"
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Router       /api/pedidos/gestion [get]
func (h *OrderHandler) Gestion(c *gin.Context) {
	p := pagination.Parse(c)
	pedidos, total, err := h.pedidoService.Gestion(c.Request.Context(), c.Query("estado"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(pedidos, total, p.Page, p.Limit)))
}

// Seguimiento is the public tracking view of an order
// @Summary      Track order
// @Tags         pedidos
// @Produce      json
// @Param        codigo  path      string  true  "Tracking code (SEG-...)"
// @Success      200     {object}  response.Response{data=service.Seguimiento}
// @Failure      404     {object}  response.Response
// @Router       /api/pedidos/seguimiento/{codigo} [get]
func (h *OrderHandler) Seguimiento(c *gin.Context) {
	seg, err := h.pedidoService.Seguimiento(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(seg))
}
