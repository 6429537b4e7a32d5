package handler

import (
	"net/http"
	"time"

	"elixir/internal/middleware"
	"elixir/internal/model"
	"elixir/internal/service"
	"elixir/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	impuestoService service.ImpuestoService
	loc             *time.Location
}

func NewTaxHandler(impuestoService service.ImpuestoService, loc *time.Location) *TaxHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TaxHandler{impuestoService: impuestoService, loc: loc}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	tax := router.Group("/impuestos")
	{
		tax.GET("/vigente", middleware.RequireRole(rolesStaff...), h.Vigente)
		tax.GET("", middleware.RequireRole(model.RolAdminSistema), h.GetTasas)
		tax.POST("", middleware.RequireRole(model.RolAdminSistema), h.CreateTasa)
		tax.PUT("/:id", middleware.RequireRole(model.RolAdminSistema), h.UpdateTasa)
		tax.DELETE("/:id", middleware.RequireRole(model.RolAdminSistema), h.DeleteTasa)
	}
}

// GetTasas returns all tax rates ordered by vigente_desde DESC
// @Summary      List tax rates
// @Tags         impuestos
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.TasaImpuesto}
// @Router       /api/impuestos [get]
func (h *TaxHandler) GetTasas(c *gin.Context) {
	tasas, err := h.impuestoService.Listar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(tasas))
}

// CreateTasa
// @Summary      Create tax rate
// @Tags         impuestos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TasaRequest  true  "Tax rate"
// @Success      201      {object}  response.Response{data=model.TasaImpuesto}
// @Failure      400      {object}  response.Response
// @Router       /api/impuestos [post]
func (h *TaxHandler) CreateTasa(c *gin.Context) {
	var req service.TasaRequest
	if !bindJSON(c, &req) {
		return
	}
	tasa, err := h.impuestoService.Crear(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(tasa))
}

// UpdateTasa
// @Summary      Update tax rate
// @Tags         impuestos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Tax rate ID"
// @Param        payload  body      service.TasaRequest  true  "Tax rate"
// @Success      200      {object}  response.Response{data=model.TasaImpuesto}
// @Router       /api/impuestos/{id} [put]
func (h *TaxHandler) UpdateTasa(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.TasaRequest
	if !bindJSON(c, &req) {
		return
	}
	tasa, err := h.impuestoService.Actualizar(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(tasa))
}

// DeleteTasa
// @Summary      Delete tax rate
// @Tags         impuestos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Tax rate ID"
// @Success      200  {object}  response.Response
// @Router       /api/impuestos/{id} [delete]
func (h *TaxHandler) DeleteTasa(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.impuestoService.Eliminar(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Tasa eliminada", nil))
}

// Vigente returns the rate in force at a date (default: now)
// @Summary      Active tax rate
// @Tags         impuestos
// @Security     BearerAuth
// @Produce      json
// @Param        fecha  query     string  false  "Date YYYY-MM-DD"
// @Success      200    {object}  response.Response{data=service.TasaActiva}
// @Router       /api/impuestos/vigente [get]
func (h *TaxHandler) Vigente(c *gin.Context) {
	at := time.Now()
	if raw := c.Query("fecha"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error("Fecha inválida, use el formato AAAA-MM-DD"))
			return
		}
		at = t
	}
	tasa, err := h.impuestoService.Vigente(c.Request.Context(), at)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(tasa))
}
