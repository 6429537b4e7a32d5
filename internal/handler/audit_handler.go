package handler

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"elixir/internal/middleware"
	"elixir/internal/model"
	"elixir/internal/repository"
	"elixir/internal/service"
	"elixir/pkg/pagination"
	"elixir/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuditHandler struct {
	auditService service.AuditService
	loc          *time.Location
}

func NewAuditHandler(auditService service.AuditService, loc *time.Location) *AuditHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AuditHandler{auditService: auditService, loc: loc}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/auditoria")
	group.Use(middleware.RequirePermission(model.PermAuditoriaRead))
	{
		group.GET("/logs", h.GetAuditLogs)
		group.GET("/logs/:id", h.GetAuditLog)
		group.GET("/estadisticas", h.Estadisticas)
		group.GET("/exportar", h.Exportar)
	}
}

// auditFilter reads the query filters. hasta is an inclusive local date.
func (h *AuditHandler) auditFilter(c *gin.Context) (repository.AuditFilter, bool) {
	var f repository.AuditFilter
	if raw := c.Query("usuario_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error("usuario_id inválido"))
			return f, false
		}
		f.UsuarioID = &id
	}
	f.TipoAccion = strings.ToUpper(c.Query("tipo_accion"))
	f.Modelo = c.Query("modelo")

	for _, p := range []struct {
		key    string
		dest   **time.Time
		offset int
	}{{"desde", &f.Desde, 0}, {"hasta", &f.Hasta, 1}} {
		raw := c.Query(p.key)
		if raw == "" {
			continue
		}
		t, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error("Fecha '"+p.key+"' inválida, use el formato AAAA-MM-DD"))
			return f, false
		}
		t = t.AddDate(0, 0, p.offset)
		*p.dest = &t
	}
	return f, true
}

// GetAuditLogs returns audit entries, newest first
// @Summary      Audit logs
// @Tags         auditoria
// @Security     BearerAuth
// @Produce      json
// @Param        usuario_id   query     string  false  "User ID"
// @Param        tipo_accion  query     string  false  "CREATE, UPDATE, DELETE, LOGIN, ..."
// @Param        modelo       query     string  false  "Entity name"
// @Param        desde        query     string  false  "From date YYYY-MM-DD"
// @Param        hasta        query     string  false  "To date YYYY-MM-DD (inclusive)"
// @Param        page         query     int     false  "Page number (default: 1)"
// @Param        limit        query     int     false  "Items per page (default: 20)"
// @Success      200          {object}  response.Response{data=response.Page}
// @Router       /api/auditoria/logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	f, ok := h.auditFilter(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	f.Page, f.Limit = p.Page, p.Limit

	logs, total, err := h.auditService.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(logs, total, p.Page, p.Limit)))
}

// GetAuditLog returns one entry and whether its integrity hash still matches
// @Summary      Audit log detail
// @Tags         auditoria
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Audit log ID"
// @Success      200  {object}  response.Response{data=service.AuditLogDetail}
// @Failure      404  {object}  response.Response
// @Router       /api/auditoria/logs/{id} [get]
func (h *AuditHandler) GetAuditLog(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detail, err := h.auditService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(detail))
}

// Estadisticas
// @Summary      Audit statistics
// @Tags         auditoria
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.AuditStats}
// @Router       /api/auditoria/estadisticas [get]
func (h *AuditHandler) Estadisticas(c *gin.Context) {
	stats, err := h.auditService.Estadisticas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(stats))
}

// Exportar downloads the filtered audit trail as CSV
// @Summary      Export audit logs
// @Tags         auditoria
// @Security     BearerAuth
// @Produce      text/csv
// @Param        usuario_id   query     string  false  "User ID"
// @Param        tipo_accion  query     string  false  "Action"
// @Param        modelo       query     string  false  "Entity name"
// @Param        desde        query     string  false  "From date YYYY-MM-DD"
// @Param        hasta        query     string  false  "To date YYYY-MM-DD (inclusive)"
// @Success      200          {file}    file
// @Router       /api/auditoria/exportar [get]
func (h *AuditHandler) Exportar(c *gin.Context) {
	f, ok := h.auditFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.auditService.ExportCSV(c.Request.Context(), actorFrom(c), f, &buf); err != nil {
		respondError(c, err)
		return
	}

	nombre := "auditoria_" + time.Now().In(h.loc).Format("20060102_150405") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+nombre+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
