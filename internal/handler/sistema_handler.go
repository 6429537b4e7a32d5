package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"elixir/internal/middleware"
	"elixir/internal/model"
	"elixir/internal/repository"
	"elixir/internal/service"
	"elixir/pkg/pagination"
	"elixir/pkg/response"

	"github.com/gin-gonic/gin"
)

type SistemaHandler struct {
	sistemaService service.SistemaService
}

func NewSistemaHandler(sistemaService service.SistemaService) *SistemaHandler {
	return &SistemaHandler{sistemaService: sistemaService}
}

func (h *SistemaHandler) RegisterRoutes(router *gin.RouterGroup) {
	sistema := router.Group("/sistema")
	{
		sistema.GET("/logs", middleware.RequirePermission(model.PermSistemaRead), h.Logs)
		sistema.GET("/estadisticas", middleware.RequirePermission(model.PermSistemaRead), h.Estadisticas)
		sistema.GET("/backup", middleware.RequirePermission(model.PermSistemaBackup), h.Backup)
	}
}

// Logs lists persisted system events
// @Summary      System logs
// @Tags         sistema
// @Security     BearerAuth
// @Produce      json
// @Param        nivel      query     string  false  "DEBUG, INFO, WARNING, ERROR or CRITICAL"
// @Param        categoria  query     string  false  "Category"
// @Param        page       query     int     false  "Page number (default: 1)"
// @Param        limit      query     int     false  "Items per page (default: 20)"
// @Success      200        {object}  response.Response{data=response.Page}
// @Router       /api/sistema/logs [get]
func (h *SistemaHandler) Logs(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.sistemaService.ListLogs(c.Request.Context(), repository.LogFilter{
		Nivel:     strings.ToUpper(c.Query("nivel")),
		Categoria: c.Query("categoria"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(logs, total, p.Page, p.Limit)))
}

// Estadisticas reports log volume, entity counts and component health
// @Summary      System status
// @Tags         sistema
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.EstadisticasSistema}
// @Router       /api/sistema/estadisticas [get]
func (h *SistemaHandler) Estadisticas(c *gin.Context) {
	stats, err := h.sistemaService.Estadisticas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(stats))
}

// Backup downloads a JSON snapshot of the catalog data
// @Summary      Catalog backup
// @Tags         sistema
// @Security     BearerAuth
// @Produce      application/json
// @Success      200  {file}  file
// @Router       /api/sistema/backup [get]
func (h *SistemaHandler) Backup(c *gin.Context) {
	snap, err := h.sistemaService.Backup(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		respondError(c, err)
		return
	}
	nombre := "backup_" + snap.GeneradoEn.Format("20060102_150405") + ".json"
	c.Header("Content-Disposition", `attachment; filename="`+nombre+`"`)
	c.Data(http.StatusOK, "application/json", raw)
}
