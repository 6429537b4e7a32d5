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

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	ventasService     service.VentasService
}

func NewStatisticsHandler(statisticsService service.StatisticsService, ventasService service.VentasService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, ventasService: ventasService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	dashboard := router.Group("/dashboard")
	{
		dashboard.GET("/gerente", middleware.RequireRole(rolesGerencia...), h.DashboardGerente)
		dashboard.GET("/admin", middleware.RequireRole(model.RolAdminSistema), h.DashboardAdmin)
	}

	ventas := router.Group("/ventas", middleware.RequireRole(rolesGerencia...))
	{
		ventas.GET("/totales", h.VentasTotales)
		ventas.GET("/filtradas", h.Filtradas)
		ventas.GET("/analiticas", h.Analiticas)
		ventas.GET("/exportar", h.Exportar)
	}
}

// DashboardGerente returns the manager KPIs
// @Summary      Manager dashboard
// @Tags         estadisticas
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.DashboardGerente}
// @Router       /api/dashboard/gerente [get]
func (h *StatisticsHandler) DashboardGerente(c *gin.Context) {
	d, err := h.statisticsService.DashboardGerente(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(d))
}

// DashboardAdmin returns the system administrator overview
// @Summary      Admin dashboard
// @Tags         estadisticas
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.DashboardAdmin}
// @Router       /api/dashboard/admin [get]
func (h *StatisticsHandler) DashboardAdmin(c *gin.Context) {
	d, err := h.statisticsService.DashboardAdmin(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(d))
}

// VentasTotales returns the sum and count of non-cancelled orders
// @Summary      Sales totals
// @Tags         estadisticas
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.VentasTotales}
// @Router       /api/ventas/totales [get]
func (h *StatisticsHandler) VentasTotales(c *gin.Context) {
	v, err := h.statisticsService.VentasTotales(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(v))
}

// Filtradas lists orders by date range, status, payment method and seller
// @Summary      Filtered sales
// @Tags         estadisticas
// @Security     BearerAuth
// @Produce      json
// @Param        desde        query     string  false  "From date YYYY-MM-DD"
// @Param        hasta        query     string  false  "To date YYYY-MM-DD (inclusive)"
// @Param        estado       query     string  false  "Status"
// @Param        metodo_pago  query     string  false  "Payment method"
// @Param        vendedor_id  query     string  false  "Seller ID"
// @Param        page         query     int     false  "Page number (default: 1)"
// @Param        limit        query     int     false  "Items per page (default: 20)"
// @Success      200          {object}  response.Response{data=response.Page}
// @Router       /api/ventas/filtradas [get]
func (h *StatisticsHandler) Filtradas(c *gin.Context) {
	p := pagination.Parse(c)
	pedidos, total, err := h.ventasService.Filtradas(c.Request.Context(), service.VentasFilter{
		Desde:      c.Query("desde"),
		Hasta:      c.Query("hasta"),
		Estado:     c.Query("estado"),
		MetodoPago: c.Query("metodo_pago"),
		VendedorID: c.Query("vendedor_id"),
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(pedidos, total, p.Page, p.Limit)))
}

func analiticaFilter(c *gin.Context) service.AnaliticaFilter {
	return service.AnaliticaFilter{
		Periodo: c.Query("periodo"),
		Desde:   c.Query("desde"),
		Hasta:   c.Query("hasta"),
	}
}

// Analiticas returns the sales analysis for a period
// @Summary      Sales analytics
// @Tags         estadisticas
// @Security     BearerAuth
// @Produce      json
// @Param        periodo  query     string  false  "diario, semanal, mensual or anual"
// @Param        desde    query     string  false  "From date YYYY-MM-DD"
// @Param        hasta    query     string  false  "To date YYYY-MM-DD (inclusive)"
// @Success      200      {object}  response.Response{data=model.AnalisisVentas}
// @Failure      400      {object}  response.Response
// @Router       /api/ventas/analiticas [get]
func (h *StatisticsHandler) Analiticas(c *gin.Context) {
	a, err := h.ventasService.Analiticas(c.Request.Context(), analiticaFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(a))
}

// Exportar renders the sales analysis as a PDF download
// @Summary      Export sales analytics
// @Tags         estadisticas
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        periodo  query     string  false  "diario, semanal, mensual or anual"
// @Param        desde    query     string  false  "From date YYYY-MM-DD"
// @Param        hasta    query     string  false  "To date YYYY-MM-DD (inclusive)"
// @Success      200      {file}    file
// @Router       /api/ventas/exportar [get]
func (h *StatisticsHandler) Exportar(c *gin.Context) {
	pdf, nombre, err := h.ventasService.ExportarPDF(c.Request.Context(), actorFrom(c), analiticaFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+nombre+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
