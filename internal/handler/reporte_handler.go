package handler

import (
	"net/http"
	"path/filepath"

	"elixir/internal/middleware"
	"elixir/internal/model"
	"elixir/internal/service"
	"elixir/pkg/pagination"
	"elixir/pkg/response"

	"github.com/gin-gonic/gin"
)

// ReporteHandler manages financial reports and their PDF files.
type ReporteHandler struct {
	reporteService service.ReporteService
}

func NewReporteHandler(reporteService service.ReporteService) *ReporteHandler {
	return &ReporteHandler{reporteService: reporteService}
}

func (h *ReporteHandler) RegisterRoutes(router *gin.RouterGroup) {
	reportes := router.Group("/reportes")
	reportes.Use(middleware.RequirePermission(model.PermReportesManage))
	{
		reportes.POST("", h.Crear)
		reportes.GET("", h.Listar)
		reportes.GET("/:id", h.Obtener)
		reportes.GET("/:id/pdf", h.DescargarPDF)
		reportes.DELETE("/:id", h.Eliminar)
	}
}

// Crear generates a report, renders its PDF and optionally mails it
// @Summary      Create financial report
// @Tags         reportes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ReporteRequest  true  "Report"
// @Success      201      {object}  response.Response{data=model.ReporteFinanciero}
// @Failure      400      {object}  response.Response
// @Router       /api/reportes [post]
func (h *ReporteHandler) Crear(c *gin.Context) {
	var req service.ReporteRequest
	if !bindJSON(c, &req) {
		return
	}
	reporte, err := h.reporteService.Crear(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.SuccessMessage("Reporte "+reporte.Estado, reporte))
}

// Listar
// @Summary      List financial reports
// @Tags         reportes
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default: 1)"
// @Param        limit  query     int  false  "Items per page (default: 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/reportes [get]
func (h *ReporteHandler) Listar(c *gin.Context) {
	p := pagination.Parse(c)
	reportes, total, err := h.reporteService.Listar(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(reportes, total, p.Page, p.Limit)))
}

// Obtener
// @Summary      Financial report detail
// @Tags         reportes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  response.Response{data=model.ReporteFinanciero}
// @Failure      404  {object}  response.Response
// @Router       /api/reportes/{id} [get]
func (h *ReporteHandler) Obtener(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reporte, err := h.reporteService.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(reporte))
}

// DescargarPDF streams the generated PDF
// @Summary      Download report PDF
// @Tags         reportes
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        id   path      string  true  "Report ID"
// @Success      200  {file}    file
// @Failure      404  {object}  response.Response
// @Router       /api/reportes/{id}/pdf [get]
func (h *ReporteHandler) DescargarPDF(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	path, err := h.reporteService.ArchivoPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// Eliminar deletes the report and its file
// @Summary      Delete financial report
// @Tags         reportes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  response.Response
// @Router       /api/reportes/{id} [delete]
func (h *ReporteHandler) Eliminar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.reporteService.Eliminar(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Reporte eliminado", nil))
}
