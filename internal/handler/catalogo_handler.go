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

// CatalogoHandler serves the public storefront.
type CatalogoHandler struct {
	catalogoService service.CatalogoService
}

func NewCatalogoHandler(catalogoService service.CatalogoService) *CatalogoHandler {
	return &CatalogoHandler{catalogoService: catalogoService}
}

func (h *CatalogoHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/home", h.Home)
	router.GET("/catalogo", h.Catalogo)
	router.GET("/categorias", h.Categorias)
	router.GET("/productos/sugerencias", h.Sugerencias)
	router.GET("/productos/:id", middleware.OptionalAuth(), h.Detalle)
	router.GET("/recomendaciones", middleware.RequireRole(rolesCualquier...), h.Recomendaciones)

	sliders := router.Group("/sliders")
	{
		sliders.GET("", h.Sliders)
		sliders.POST("", middleware.RequireRole(model.RolVendedor, model.RolAdminSistema), h.GuardarSliders)
	}
}

// Home returns active categories and featured products
// @Summary      Home page data
// @Tags         catalogo
// @Produce      json
// @Success      200  {object}  response.Response{data=service.HomeResponse}
// @Router       /api/home [get]
func (h *CatalogoHandler) Home(c *gin.Context) {
	home, err := h.catalogoService.Home(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(home))
}

// Catalogo lists active products with their current price
// @Summary      Catalog
// @Tags         catalogo
// @Produce      json
// @Param        categoria  query     string  false  "Category name"
// @Param        q          query     string  false  "Search by nombre, sku or descripcion"
// @Param        page       query     int     false  "Page number (default: 1)"
// @Param        limit      query     int     false  "Items per page (default: 20)"
// @Success      200        {object}  response.Response{data=response.Page}
// @Router       /api/catalogo [get]
func (h *CatalogoHandler) Catalogo(c *gin.Context) {
	p := pagination.Parse(c)
	productos, total, err := h.catalogoService.Catalogo(c.Request.Context(), service.CatalogoFilter{
		Categoria: c.Query("categoria"),
		Q:         c.Query("q"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(productos, total, p.Page, p.Limit)))
}

// Detalle returns a product with related items and records the visit
// @Summary      Product detail
// @Tags         catalogo
// @Produce      json
// @Param        id      path      string  true   "Product ID"
// @Param        fuente  query     string  false  "Visit source"
// @Success      200     {object}  response.Response{data=service.ProductoDetalle}
// @Failure      404     {object}  response.Response
// @Router       /api/productos/{id} [get]
func (h *CatalogoHandler) Detalle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detalle, err := h.catalogoService.Detalle(c.Request.Context(), actorFrom(c), id, c.Query("fuente"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(detalle))
}

// Sugerencias autocompletes product names
// @Summary      Product name suggestions
// @Tags         catalogo
// @Produce      json
// @Param        q    query     string  true  "At least 2 characters"
// @Success      200  {object}  response.Response{data=[]string}
// @Router       /api/productos/sugerencias [get]
func (h *CatalogoHandler) Sugerencias(c *gin.Context) {
	nombres, err := h.catalogoService.Sugerencias(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(nombres))
}

// Categorias lists active categories
// @Summary      Categories
// @Tags         catalogo
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Categoria}
// @Router       /api/categorias [get]
func (h *CatalogoHandler) Categorias(c *gin.Context) {
	categorias, err := h.catalogoService.Categorias(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(categorias))
}

// Sliders returns the home carousel configuration
// @Summary      Sliders
// @Tags         catalogo
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.Slider}
// @Router       /api/sliders [get]
func (h *CatalogoHandler) Sliders(c *gin.Context) {
	sliders, err := h.catalogoService.Sliders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(sliders))
}

// GuardarSliders replaces the home carousel configuration
// @Summary      Save sliders
// @Tags         catalogo
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      []service.Slider  true  "Sliders"
// @Success      200      {object}  response.Response
// @Router       /api/sliders [post]
func (h *CatalogoHandler) GuardarSliders(c *gin.Context) {
	var sliders []service.Slider
	if !bindJSON(c, &sliders) {
		return
	}
	if err := h.catalogoService.GuardarSliders(c.Request.Context(), sliders); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Sliders actualizados", sliders))
}

// Recomendaciones suggests products based on the user's purchases
// @Summary      Recommendations
// @Tags         catalogo
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ProductoConPrecio}
// @Router       /api/recomendaciones [get]
func (h *CatalogoHandler) Recomendaciones(c *gin.Context) {
	productos, err := h.catalogoService.Recomendaciones(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(productos))
}
