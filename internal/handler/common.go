package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"elixir/internal/apperror"
	"elixir/internal/middleware"
	"elixir/internal/model"
	"elixir/internal/service"
	"elixir/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Role sets shared by several route groups.
var (
	rolesStaff     = []string{model.RolVendedor, model.RolGerente, model.RolAdminSistema}
	rolesGerencia  = []string{model.RolGerente, model.RolAdminSistema}
	rolesVentas    = []string{model.RolVendedor, model.RolGerente}
	rolesCualquier = []string{model.RolCliente, model.RolVendedor, model.RolGerente, model.RolAdminSistema}
)

const msgErrorInterno = "Error interno del servidor"

// RegisterValidators teaches gin's validator to read decimal.Decimal values,
// so numeric tags like gt=0 work on money fields.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// respondError maps an application error to its status and envelope.
func respondError(c *gin.Context, err error) {
	msg := apperror.Message(err)
	if msg == "" {
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, response.Error(msgErrorInterno))
		return
	}
	c.JSON(apperror.Status(err), response.Error(msg))
}

// bindJSON decodes the body and answers 400 with the validator message on failure.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(bindingMessage(err)))
		return false
	}
	return true
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, "Campo '"+fe.Field()+"' inválido ("+fe.Tag()+")")
		}
		return strings.Join(parts, "; ")
	}
	return "Datos de entrada inválidos: " + err.Error()
}

// paramID parses the :name path parameter as a UUID.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("ID inválido"))
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom builds the audit identity from the authenticated request.
// Anonymous requests yield an actor with a nil ID.
func actorFrom(c *gin.Context) service.Actor {
	id, _ := middleware.CurrentUserID(c)
	return service.Actor{
		ID:        id,
		Rol:       middleware.CurrentRol(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
