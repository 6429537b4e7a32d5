package handler

import (
	"net/http"

	"elixir/internal/middleware"
	"elixir/internal/service"
	"elixir/pkg/response"

	"github.com/gin-gonic/gin"
)

type DireccionHandler struct {
	direccionService service.DireccionService
}

func NewDireccionHandler(direccionService service.DireccionService) *DireccionHandler {
	return &DireccionHandler{direccionService: direccionService}
}

func (h *DireccionHandler) RegisterRoutes(router *gin.RouterGroup) {
	direcciones := router.Group("/direcciones", middleware.RequireRole(rolesCualquier...))
	{
		direcciones.GET("", h.Listar)
		direcciones.POST("", h.Crear)
		direcciones.PUT("/:id", h.Actualizar)
		direcciones.DELETE("/:id", h.Eliminar)
		direcciones.POST("/:id/principal", h.MarcarPrincipal)
	}
}

// Listar returns the caller's shipping addresses, principal first
// @Summary      List addresses
// @Tags         direcciones
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.DireccionResponse}
// @Router       /api/direcciones [get]
func (h *DireccionHandler) Listar(c *gin.Context) {
	direcciones, err := h.direccionService.Listar(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(direcciones))
}

// Crear
// @Summary      Create address
// @Tags         direcciones
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.DireccionRequest  true  "Address"
// @Success      201      {object}  response.Response{data=service.DireccionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/direcciones [post]
func (h *DireccionHandler) Crear(c *gin.Context) {
	var req service.DireccionRequest
	if !bindJSON(c, &req) {
		return
	}
	direccion, err := h.direccionService.Crear(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(direccion))
}

// Actualizar
// @Summary      Update address
// @Tags         direcciones
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Address ID"
// @Param        payload  body      service.DireccionRequest  true  "Address"
// @Success      200      {object}  response.Response{data=service.DireccionResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/direcciones/{id} [put]
func (h *DireccionHandler) Actualizar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.DireccionRequest
	if !bindJSON(c, &req) {
		return
	}
	direccion, err := h.direccionService.Actualizar(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(direccion))
}

// Eliminar
// @Summary      Delete address
// @Tags         direcciones
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Address ID"
// @Success      200  {object}  response.Response
// @Router       /api/direcciones/{id} [delete]
func (h *DireccionHandler) Eliminar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.direccionService.Eliminar(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Dirección eliminada", nil))
}

// MarcarPrincipal makes an address the default one
// @Summary      Set principal address
// @Tags         direcciones
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Address ID"
// @Success      200  {object}  response.Response{data=service.DireccionResponse}
// @Router       /api/direcciones/{id}/principal [post]
func (h *DireccionHandler) MarcarPrincipal(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	direccion, err := h.direccionService.MarcarPrincipal(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(direccion))
}
