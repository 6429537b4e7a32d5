package handler

import (
	"net/http"

	"elixir/internal/middleware"
	"elixir/internal/model"
	"elixir/internal/repository"
	"elixir/internal/service"
	"elixir/pkg/pagination"
	"elixir/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReclamoHandler struct {
	reclamoService service.ReclamoService
}

func NewReclamoHandler(reclamoService service.ReclamoService) *ReclamoHandler {
	return &ReclamoHandler{reclamoService: reclamoService}
}

func (h *ReclamoHandler) RegisterRoutes(router *gin.RouterGroup) {
	reclamos := router.Group("/reclamos", middleware.RequireRole(rolesCualquier...))
	{
		reclamos.POST("", middleware.RequireRole(model.RolCliente), h.Crear)
		reclamos.GET("", h.Listar)
		reclamos.GET("/:id", h.Detalle)
		reclamos.PUT("/:id", middleware.RequireRole(rolesStaff...), h.Actualizar)
		reclamos.GET("/:id/comentarios", h.Comentarios)
		reclamos.POST("/:id/comentarios", h.Comentar)
		reclamos.POST("/:id/satisfaccion", middleware.RequireRole(model.RolCliente), h.Calificar)
	}
}

// Crear opens a complaint
// @Summary      Create complaint
// @Tags         reclamos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CrearReclamoRequest  true  "Complaint"
// @Success      201      {object}  response.Response{data=model.Reclamo}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/reclamos [post]
func (h *ReclamoHandler) Crear(c *gin.Context) {
	var req service.CrearReclamoRequest
	if !bindJSON(c, &req) {
		return
	}
	reclamo, err := h.reclamoService.Crear(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.SuccessMessage("Reclamo creado exitosamente", reclamo))
}

// Listar returns complaints. Clients only see their own.
// @Summary      List complaints
// @Tags         reclamos
// @Security     BearerAuth
// @Produce      json
// @Param        estado     query     string  false  "Status filter"
// @Param        prioridad  query     string  false  "Priority filter"
// @Param        tipo       query     string  false  "Type filter"
// @Param        page       query     int     false  "Page number (default: 1)"
// @Param        limit      query     int     false  "Items per page (default: 20)"
// @Success      200        {object}  response.Response{data=response.Page}
// @Router       /api/reclamos [get]
func (h *ReclamoHandler) Listar(c *gin.Context) {
	p := pagination.Parse(c)
	reclamos, total, err := h.reclamoService.Listar(c.Request.Context(), actorFrom(c), repository.ReclamoFilter{
		Estado:    c.Query("estado"),
		Prioridad: c.Query("prioridad"),
		Tipo:      c.Query("tipo"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(reclamos, total, p.Page, p.Limit)))
}

// Detalle
// @Summary      Complaint detail
// @Tags         reclamos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Complaint ID"
// @Success      200  {object}  response.Response{data=service.ReclamoDetalle}
// @Failure      404  {object}  response.Response
// @Router       /api/reclamos/{id} [get]
func (h *ReclamoHandler) Detalle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detalle, err := h.reclamoService.Detalle(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(detalle))
}

// Actualizar changes status, priority, assignee or resolution
// @Summary      Update complaint
// @Tags         reclamos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Complaint ID"
// @Param        payload  body      service.ActualizarReclamoRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.ReclamoDetalle}
// @Failure      400      {object}  response.Response
// @Router       /api/reclamos/{id} [put]
func (h *ReclamoHandler) Actualizar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ActualizarReclamoRequest
	if !bindJSON(c, &req) {
		return
	}
	detalle, err := h.reclamoService.Actualizar(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Reclamo actualizado", detalle))
}

// Comentarios lists the visible comments of a complaint
// @Summary      Complaint comments
// @Tags         reclamos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Complaint ID"
// @Success      200  {object}  response.Response{data=[]model.ComentarioReclamo}
// @Router       /api/reclamos/{id}/comentarios [get]
func (h *ReclamoHandler) Comentarios(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	comentarios, err := h.reclamoService.Comentarios(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(comentarios))
}

// Comentar adds a comment to a complaint
// @Summary      Comment on complaint
// @Tags         reclamos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Complaint ID"
// @Param        payload  body      service.ComentarioRequest  true  "Comment"
// @Success      201      {object}  response.Response{data=model.ComentarioReclamo}
// @Failure      403      {object}  response.Response
// @Router       /api/reclamos/{id}/comentarios [post]
func (h *ReclamoHandler) Comentar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ComentarioRequest
	if !bindJSON(c, &req) {
		return
	}
	comentario, err := h.reclamoService.Comentar(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(comentario))
}

// Calificar records the client's satisfaction score
// @Summary      Rate complaint resolution
// @Tags         reclamos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Complaint ID"
// @Param        payload  body      service.SatisfaccionRequest  true  "Score 1..5"
// @Success      200      {object}  response.Response{data=service.ReclamoDetalle}
// @Failure      400      {object}  response.Response
// @Router       /api/reclamos/{id}/satisfaccion [post]
func (h *ReclamoHandler) Calificar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.SatisfaccionRequest
	if !bindJSON(c, &req) {
		return
	}
	detalle, err := h.reclamoService.Calificar(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Gracias por su evaluación", detalle))
}
