package handler

import (
	"net/http"

	"elixir/internal/middleware"
	"elixir/internal/service"
	"elixir/pkg/pagination"
	"elixir/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DescuentoHandler manages coupons and product promotions.
type DescuentoHandler struct {
	descuentoService service.DescuentoService
}

func NewDescuentoHandler(descuentoService service.DescuentoService) *DescuentoHandler {
	return &DescuentoHandler{descuentoService: descuentoService}
}

func (h *DescuentoHandler) RegisterRoutes(router *gin.RouterGroup) {
	cupones := router.Group("/cupones")
	{
		cupones.POST("/validar", middleware.RequireRole(rolesCualquier...), h.ValidarCupon)
		cupones.GET("", middleware.RequireRole(rolesGerencia...), h.ListCupones)
		cupones.POST("", middleware.RequireRole(rolesGerencia...), h.CreateCupon)
		cupones.PUT("/:id", middleware.RequireRole(rolesGerencia...), h.UpdateCupon)
		cupones.DELETE("/:id", middleware.RequireRole(rolesGerencia...), h.DeleteCupon)
	}

	promociones := router.Group("/promociones", middleware.RequireRole(rolesGerencia...))
	{
		promociones.GET("", h.ListPromociones)
		promociones.POST("", h.CreatePromocion)
		promociones.PUT("/:id", h.UpdatePromocion)
		promociones.DELETE("/:id", h.DeletePromocion)
	}
}

// ListCupones
// @Summary      List coupons
// @Tags         descuentos
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default: 1)"
// @Param        limit  query     int  false  "Items per page (default: 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/cupones [get]
func (h *DescuentoHandler) ListCupones(c *gin.Context) {
	p := pagination.Parse(c)
	cupones, total, err := h.descuentoService.ListarCupones(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(cupones, total, p.Page, p.Limit)))
}

// CreateCupon creates a coupon. The code is stored uppercase.
// @Summary      Create coupon
// @Tags         descuentos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CuponRequest  true  "Coupon"
// @Success      201      {object}  response.Response{data=model.Cupon}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/cupones [post]
func (h *DescuentoHandler) CreateCupon(c *gin.Context) {
	var req service.CuponRequest
	if !bindJSON(c, &req) {
		return
	}
	cupon, err := h.descuentoService.CrearCupon(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(cupon))
}

// UpdateCupon
// @Summary      Update coupon
// @Tags         descuentos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Coupon ID"
// @Param        payload  body      service.CuponRequest  true  "Coupon"
// @Success      200      {object}  response.Response{data=model.Cupon}
// @Router       /api/cupones/{id} [put]
func (h *DescuentoHandler) UpdateCupon(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CuponRequest
	if !bindJSON(c, &req) {
		return
	}
	cupon, err := h.descuentoService.ActualizarCupon(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(cupon))
}

// DeleteCupon
// @Summary      Delete coupon
// @Tags         descuentos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Coupon ID"
// @Success      200  {object}  response.Response
// @Router       /api/cupones/{id} [delete]
func (h *DescuentoHandler) DeleteCupon(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.descuentoService.EliminarCupon(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Cupón eliminado", nil))
}

// ValidarCupon checks a coupon against a purchase amount
// @Summary      Validate coupon
// @Tags         descuentos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ValidarCuponRequest  true  "Code and amount"
// @Success      200      {object}  response.Response{data=service.ValidacionCupon}
// @Router       /api/cupones/validar [post]
func (h *DescuentoHandler) ValidarCupon(c *gin.Context) {
	var req service.ValidarCuponRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.descuentoService.ValidarCupon(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(res))
}

// ListPromociones lists promotions, optionally for one product
// @Summary      List promotions
// @Tags         descuentos
// @Security     BearerAuth
// @Produce      json
// @Param        producto_id  query     string  false  "Product ID"
// @Param        page         query     int     false  "Page number (default: 1)"
// @Param        limit        query     int     false  "Items per page (default: 20)"
// @Success      200          {object}  response.Response{data=response.Page}
// @Router       /api/promociones [get]
func (h *DescuentoHandler) ListPromociones(c *gin.Context) {
	var productoID *uuid.UUID
	if raw := c.Query("producto_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error("ID de producto inválido"))
			return
		}
		productoID = &id
	}

	p := pagination.Parse(c)
	promociones, total, err := h.descuentoService.ListarPromociones(c.Request.Context(), productoID, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(promociones, total, p.Page, p.Limit)))
}

// CreatePromocion
// @Summary      Create promotion
// @Tags         descuentos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PromocionRequest  true  "Promotion"
// @Success      201      {object}  response.Response{data=model.PromocionProducto}
// @Failure      400      {object}  response.Response
// @Router       /api/promociones [post]
func (h *DescuentoHandler) CreatePromocion(c *gin.Context) {
	var req service.PromocionRequest
	if !bindJSON(c, &req) {
		return
	}
	promo, err := h.descuentoService.CrearPromocion(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(promo))
}

// UpdatePromocion
// @Summary      Update promotion
// @Tags         descuentos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Promotion ID"
// @Param        payload  body      service.PromocionRequest  true  "Promotion"
// @Success      200      {object}  response.Response{data=model.PromocionProducto}
// @Router       /api/promociones/{id} [put]
func (h *DescuentoHandler) UpdatePromocion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.PromocionRequest
	if !bindJSON(c, &req) {
		return
	}
	promo, err := h.descuentoService.ActualizarPromocion(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(promo))
}

// DeletePromocion
// @Summary      Delete promotion
// @Tags         descuentos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Promotion ID"
// @Success      200  {object}  response.Response
// @Router       /api/promociones/{id} [delete]
func (h *DescuentoHandler) DeletePromocion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.descuentoService.EliminarPromocion(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Promoción eliminada", nil))
}
