package handler

import (
	"net/http"

	"elixir/internal/middleware"
	"elixir/internal/service"
	"elixir/pkg/pagination"
	"elixir/pkg/response"

	"github.com/gin-gonic/gin"
)

type PartnerHandler struct {
	proveedorService service.ProveedorService
}

func NewPartnerHandler(proveedorService service.ProveedorService) *PartnerHandler {
	return &PartnerHandler{proveedorService: proveedorService}
}

func (h *PartnerHandler) RegisterRoutes(router *gin.RouterGroup) {
	proveedores := router.Group("/proveedores", middleware.RequireRole(rolesGerencia...))
	{
		proveedores.GET("", h.ListProveedores)
		proveedores.POST("", h.CreateProveedor)
		proveedores.PUT("/:id", h.UpdateProveedor)
		proveedores.DELETE("/:id", h.DeleteProveedor)
	}
}

// ListProveedores returns paginated suppliers with optional search
// @Summary      List suppliers
// @Tags         proveedores
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        search  query     string  false  "Search by nombre, rut or email"
// @Success      200     {object}  response.Response{data=response.Page}
// @Router       /api/proveedores [get]
func (h *PartnerHandler) ListProveedores(c *gin.Context) {
	p := pagination.Parse(c)
	proveedores, total, err := h.proveedorService.Listar(c.Request.Context(), c.Query("search"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(proveedores, total, p.Page, p.Limit)))
}

// CreateProveedor creates a new supplier
// @Summary      Create supplier
// @Tags         proveedores
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ProveedorRequest  true  "Supplier payload"
// @Success      201      {object}  response.Response{data=model.Proveedor}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/proveedores [post]
func (h *PartnerHandler) CreateProveedor(c *gin.Context) {
	var req service.ProveedorRequest
	if !bindJSON(c, &req) {
		return
	}

	proveedor, err := h.proveedorService.Crear(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(proveedor))
}

// UpdateProveedor updates an existing supplier
// @Summary      Update supplier
// @Tags         proveedores
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Supplier ID"
// @Param        payload  body      service.ProveedorRequest  true  "Supplier payload"
// @Success      200      {object}  response.Response{data=model.Proveedor}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/proveedores/{id} [put]
func (h *PartnerHandler) UpdateProveedor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ProveedorRequest
	if !bindJSON(c, &req) {
		return
	}

	proveedor, err := h.proveedorService.Actualizar(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(proveedor))
}

// DeleteProveedor soft-deletes a supplier
// @Summary      Delete supplier
// @Tags         proveedores
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Supplier ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/proveedores/{id} [delete]
func (h *PartnerHandler) DeleteProveedor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.proveedorService.Eliminar(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Proveedor eliminado", nil))
}
