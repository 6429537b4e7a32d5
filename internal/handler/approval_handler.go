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

type ApprovalHandler struct {
	autorizacionService service.AutorizacionService
}

func NewApprovalHandler(autorizacionService service.AutorizacionService) *ApprovalHandler {
	return &ApprovalHandler{autorizacionService: autorizacionService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	autorizaciones := router.Group("/autorizaciones", middleware.RequireRole(rolesStaff...))
	{
		autorizaciones.POST("", middleware.RequireRole(model.RolVendedor), h.Solicitar)
		autorizaciones.GET("", h.List)
		autorizaciones.GET("/notificaciones", h.Notificaciones)
		autorizaciones.POST("/:id/gestionar", middleware.RequireRole(rolesGerencia...), h.Gestionar)
	}
}

// Solicitar asks a manager to approve a sensitive change
// @Summary      Create approval request
// @Tags         autorizaciones
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SolicitudRequest  true  "Request"
// @Success      201      {object}  response.Response{data=model.SolicitudAutorizacion}
// @Failure      400      {object}  response.Response
// @Router       /api/autorizaciones [post]
func (h *ApprovalHandler) Solicitar(c *gin.Context) {
	var req service.SolicitudRequest
	if !bindJSON(c, &req) {
		return
	}
	solicitud, err := h.autorizacionService.Solicitar(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.SuccessMessage("Solicitud enviada", solicitud))
}

// List returns approval requests. Vendedores only see their own.
// @Summary      List approval requests
// @Tags         autorizaciones
// @Security     BearerAuth
// @Produce      json
// @Param        estado  query     string  false  "pendiente, aprobada or rechazada"
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Router       /api/autorizaciones [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	solicitudes, total, err := h.autorizacionService.List(c.Request.Context(), actorFrom(c), c.Query("estado"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(solicitudes, total, p.Page, p.Limit)))
}

// Gestionar approves or rejects a pending request
// @Summary      Approve or reject
// @Tags         autorizaciones
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.GestionarRequest  true  "Decision"
// @Success      200      {object}  response.Response{data=model.SolicitudAutorizacion}
// @Failure      400      {object}  response.Response
// @Router       /api/autorizaciones/{id}/gestionar [post]
func (h *ApprovalHandler) Gestionar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.GestionarRequest
	if !bindJSON(c, &req) {
		return
	}
	solicitud, err := h.autorizacionService.Gestionar(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Solicitud "+solicitud.Estado, solicitud))
}

// Notificaciones returns the pending queue for managers, or unseen resolutions for vendedores
// @Summary      Approval notifications
// @Tags         autorizaciones
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.Notificaciones}
// @Router       /api/autorizaciones/notificaciones [get]
func (h *ApprovalHandler) Notificaciones(c *gin.Context) {
	notif, err := h.autorizacionService.Notificaciones(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(notif))
}
