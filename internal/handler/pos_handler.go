package handler

import (
	"net/http"

	"elixir/internal/middleware"
	"elixir/internal/service"
	"elixir/pkg/response"

	"github.com/gin-gonic/gin"
)

type POSHandler struct {
	posService service.POSService
}

func NewPOSHandler(posService service.POSService) *POSHandler {
	return &POSHandler{posService: posService}
}

func (h *POSHandler) RegisterRoutes(router *gin.RouterGroup) {
	pos := router.Group("/pos")
	{
		pos.GET("/buscar-producto", middleware.RequireRole(rolesStaff...), h.BuscarProducto)
		pos.POST("/ventas", middleware.RequireRole(rolesVentas...), h.Venta)
		pos.GET("/cierre-caja", middleware.RequireRole(rolesVentas...), h.CierreCaja)
	}
}

// BuscarProducto finds sellable products by exact SKU, then by name
// @Summary      POS product search
// @Tags         pos
// @Security     BearerAuth
// @Produce      json
// @Param        q    query     string  true  "SKU or name"
// @Success      200  {object}  response.Response{data=[]service.ProductoConPrecio}
// @Router       /api/pos/buscar-producto [get]
func (h *POSHandler) BuscarProducto(c *gin.Context) {
	productos, err := h.posService.BuscarProducto(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(productos))
}

// Venta records an in-store sale
// @Summary      POS sale
// @Tags         pos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.VentaPOSRequest  true  "Sale"
// @Success      201      {object}  response.Response{data=service.VentaPOS}
// @Failure      400      {object}  response.Response
// @Router       /api/pos/ventas [post]
func (h *POSHandler) Venta(c *gin.Context) {
	var req service.VentaPOSRequest
	if !bindJSON(c, &req) {
		return
	}

	venta, err := h.posService.Venta(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.SuccessMessage("Venta registrada", venta))
}

// CierreCaja summarizes the caller's sales of a day
// @Summary      Cash register close
// @Tags         pos
// @Security     BearerAuth
// @Produce      json
// @Param        fecha  query     string  false  "Day as YYYY-MM-DD (default: today)"
// @Success      200    {object}  response.Response{data=service.CierreCaja}
// @Router       /api/pos/cierre-caja [get]
func (h *POSHandler) CierreCaja(c *gin.Context) {
	cierre, err := h.posService.CierreCaja(c.Request.Context(), actorFrom(c), c.Query("fecha"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(cierre))
}
