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

// InventoryHandler manages products, stock and categories.
type InventoryHandler struct {
	productoService service.ProductoService
}

func NewInventoryHandler(productoService service.ProductoService) *InventoryHandler {
	return &InventoryHandler{productoService: productoService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	productos := router.Group("/productos")
	{
		productos.POST("", middleware.RequireRole(rolesStaff...), h.CreateProducto)
		productos.GET("/stock-bajo", middleware.RequireRole(rolesStaff...), h.StockBajo)
		productos.PUT("/:id", middleware.RequireRole(model.RolVendedor, model.RolAdminSistema), h.UpdateProducto)
		productos.PATCH("/:id/stock", middleware.RequireRole(rolesStaff...), h.UpdateStock)
		productos.GET("/:id/movimientos", middleware.RequireRole(rolesStaff...), h.Movimientos)
		productos.DELETE("/:id", middleware.RequireRole(rolesGerencia...), h.DeleteProducto)
	}

	admin := router.Group("/admin/catalogo", middleware.RequireRole(model.RolAdminSistema))
	{
		admin.GET("", h.ListAdmin)
		admin.POST("", h.CreateProducto)
		admin.GET("/:id", h.GetProducto)
		admin.PUT("/:id", h.UpdateProducto)
		admin.DELETE("/:id", h.DeleteProducto)
	}

	categorias := router.Group("/categorias", middleware.RequireRole(rolesGerencia...))
	{
		categorias.POST("", h.CreateCategoria)
		categorias.PUT("/:id", h.UpdateCategoria)
	}
}

// CreateProducto creates a product and records its initial stock
// @Summary      Create product
// @Tags         productos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ProductoRequest  true  "Product"
// @Success      201      {object}  response.Response{data=model.Producto}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/productos [post]
func (h *InventoryHandler) CreateProducto(c *gin.Context) {
	var req service.ProductoRequest
	if !bindJSON(c, &req) {
		return
	}

	producto, err := h.productoService.Crear(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.SuccessMessage("Producto creado exitosamente", producto))
}

// UpdateProducto applies a partial product update
// @Summary      Update product
// @Tags         productos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Product ID"
// @Param        payload  body      service.ProductoRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.Producto}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/productos/{id} [put]
func (h *InventoryHandler) UpdateProducto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ProductoRequest
	if !bindJSON(c, &req) {
		return
	}

	producto, err := h.productoService.Actualizar(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Producto actualizado exitosamente", producto))
}

// UpdateStock sets the stock of a product. Vendedores get an approval request instead.
// @Summary      Update stock
// @Tags         productos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Product ID"
// @Param        payload  body      service.StockRequest  true  "New stock"
// @Success      200      {object}  response.Response{data=service.StockResult}
// @Success      202      {object}  response.Response{data=service.StockResult}
// @Failure      400      {object}  response.Response
// @Router       /api/productos/{id}/stock [patch]
func (h *InventoryHandler) UpdateStock(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.StockRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.productoService.ActualizarStock(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	if !res.Aplicado {
		c.JSON(http.StatusAccepted, response.SuccessMessage("Solicitud de ajuste enviada para autorización", res))
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Stock actualizado", res))
}

// DeleteProducto soft deletes a product
// @Summary      Delete product
// @Tags         productos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/productos/{id} [delete]
func (h *InventoryHandler) DeleteProducto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.productoService.Eliminar(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Producto eliminado exitosamente", nil))
}

// StockBajo lists active products at or below their minimum stock
// @Summary      Low stock products
// @Tags         productos
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Producto}
// @Router       /api/productos/stock-bajo [get]
func (h *InventoryHandler) StockBajo(c *gin.Context) {
	productos, err := h.productoService.StockBajo(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(productos))
}

// Movimientos returns the stock ledger of a product
// @Summary      Stock movements
// @Tags         productos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=[]model.MovimientoStock}
// @Router       /api/productos/{id}/movimientos [get]
func (h *InventoryHandler) Movimientos(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	movs, err := h.productoService.Movimientos(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(movs))
}

// ListAdmin lists every product, newest first
// @Summary      Admin catalog
// @Tags         productos
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Search by nombre or sku"
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Router       /api/admin/catalogo [get]
func (h *InventoryHandler) ListAdmin(c *gin.Context) {
	p := pagination.Parse(c)
	productos, total, err := h.productoService.ListarAdmin(c.Request.Context(), c.Query("search"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(productos, total, p.Page, p.Limit)))
}

// GetProducto returns one product, including inactive ones
// @Summary      Admin product detail
// @Tags         productos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=model.Producto}
// @Failure      404  {object}  response.Response
// @Router       /api/admin/catalogo/{id} [get]
func (h *InventoryHandler) GetProducto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	producto, err := h.productoService.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(producto))
}

// CreateCategoria
// @Summary      Create category
// @Tags         productos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CategoriaRequest  true  "Category"
// @Success      201      {object}  response.Response{data=model.Categoria}
// @Failure      409      {object}  response.Response
// @Router       /api/categorias [post]
func (h *InventoryHandler) CreateCategoria(c *gin.Context) {
	var req service.CategoriaRequest
	if !bindJSON(c, &req) {
		return
	}
	categoria, err := h.productoService.CrearCategoria(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(categoria))
}

// UpdateCategoria
// @Summary      Update category
// @Tags         productos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Category ID"
// @Param        payload  body      service.CategoriaRequest  true  "Category"
// @Success      200      {object}  response.Response{data=model.Categoria}
// @Router       /api/categorias/{id} [put]
func (h *InventoryHandler) UpdateCategoria(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CategoriaRequest
	if !bindJSON(c, &req) {
		return
	}
	categoria, err := h.productoService.ActualizarCategoria(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(categoria))
}
