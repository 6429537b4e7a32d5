package handler

import (
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

type UserHandler struct {
	authService    service.AuthService
	usuarioService service.UsuarioService
	loginLimiter   gin.HandlerFunc
}

// NewUserHandler sets up the auth, profile and client endpoints.
// loginLimiter may be nil to disable rate limiting on login.
func NewUserHandler(authService service.AuthService, usuarioService service.UsuarioService, loginLimiter gin.HandlerFunc) *UserHandler {
	return &UserHandler{authService: authService, usuarioService: usuarioService, loginLimiter: loginLimiter}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/registro", h.Registro)
		if h.loginLimiter != nil {
			auth.POST("/login", h.loginLimiter, h.Login)
		} else {
			auth.POST("/login", h.Login)
		}
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", middleware.OptionalAuth(), h.Logout)
		auth.GET("/me", middleware.RequireRole(rolesCualquier...), h.Me)
	}

	perfil := router.Group("/mi-perfil", middleware.RequireRole(rolesCualquier...))
	{
		perfil.GET("", h.MiPerfil)
		perfil.PUT("", h.ActualizarPerfil)
	}

	clientes := router.Group("/clientes")
	{
		clientes.GET("", middleware.RequireRole(rolesStaff...), h.ListarClientes)
		clientes.GET("/buscar", middleware.RequireRole(rolesStaff...), h.BuscarClientes)
		clientes.GET("/:id", middleware.RequireRole(rolesStaff...), h.DetalleCliente)
		clientes.PUT("/:id/rol", middleware.RequireRole(model.RolAdminSistema), h.CambiarRol)
	}
}

// Registro creates a cliente account
// @Summary      Register
// @Description  Creates a cliente account. The user must be at least 18 years old.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegistroRequest  true  "Registration payload"
// @Success      201      {object}  response.Response{data=model.Usuario}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/auth/registro [post]
func (h *UserHandler) Registro(c *gin.Context) {
	var req service.RegistroRequest
	if !bindJSON(c, &req) {
		return
	}

	usuario, err := h.authService.Registrar(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessMessage("Usuario registrado exitosamente", usuario))
}

// Login authenticates by email and password and returns a token pair
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      401      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	tokens := h.authService.TokenConfig()
	middleware.SetTokenCookies(c, res.AccessToken, res.RefreshToken, tokens.AccessTTL, tokens.RefreshTTL)

	c.JSON(http.StatusOK, response.Success(res))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshTokenFrom reads the refresh token from the body or the cookie.
func refreshTokenFrom(c *gin.Context) string {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	if token := strings.TrimSpace(req.RefreshToken); token != "" {
		return token
	}
	token, _ := c.Cookie("refresh_token")
	return token
}

// Refresh exchanges a valid refresh token for a new token pair
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      refreshRequest  false  "Refresh token (or refresh_token cookie)"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/auth/refresh [post]
func (h *UserHandler) Refresh(c *gin.Context) {
	token := refreshTokenFrom(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, response.Error("Refresh token requerido"))
		return
	}

	res, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}

	tokens := h.authService.TokenConfig()
	middleware.SetTokenCookies(c, res.AccessToken, res.RefreshToken, tokens.AccessTTL, tokens.RefreshTTL)

	c.JSON(http.StatusOK, response.Success(res))
}

// Logout revokes the refresh token and clears the auth cookies
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), refreshTokenFrom(c), actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	middleware.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.SuccessMessage("Sesión cerrada", nil))
}

// Me returns the authenticated user with role and permission codes
// @Summary      Current user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/auth/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	me, err := h.authService.Me(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(me))
}

// MiPerfil returns the profile with purchase totals
// @Summary      Get own profile
// @Tags         usuarios
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.PerfilResponse}
// @Router       /api/mi-perfil [get]
func (h *UserHandler) MiPerfil(c *gin.Context) {
	perfil, err := h.usuarioService.Perfil(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(perfil))
}

// ActualizarPerfil applies a partial profile update
// @Summary      Update own profile
// @Tags         usuarios
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ActualizarPerfilRequest  true  "Profile fields"
// @Success      200      {object}  response.Response{data=service.PerfilResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/mi-perfil [put]
func (h *UserHandler) ActualizarPerfil(c *gin.Context) {
	var req service.ActualizarPerfilRequest
	if !bindJSON(c, &req) {
		return
	}

	perfil, err := h.usuarioService.ActualizarPerfil(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Perfil actualizado", perfil))
}

// ListarClientes returns users paginated, optionally filtered by role
// @Summary      List clients
// @Tags         usuarios
// @Security     BearerAuth
// @Produce      json
// @Param        rol    query     string  false  "Role filter"
// @Param        page   query     int     false  "Page number (default: 1)"
// @Param        limit  query     int     false  "Items per page (default: 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/clientes [get]
func (h *UserHandler) ListarClientes(c *gin.Context) {
	p := pagination.Parse(c)
	usuarios, total, err := h.usuarioService.ListarClientes(c.Request.Context(), repository.UsuarioFilter{
		Rol:   c.Query("rol"),
		Page:  p.Page,
		Limit: p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(response.Paginated(usuarios, total, p.Page, p.Limit)))
}

// BuscarClientes matches email, nombre or apellido
// @Summary      Search clients
// @Tags         usuarios
// @Security     BearerAuth
// @Produce      json
// @Param        q    query     string  true  "Search text"
// @Success      200  {object}  response.Response{data=[]model.Usuario}
// @Router       /api/clientes/buscar [get]
func (h *UserHandler) BuscarClientes(c *gin.Context) {
	usuarios, err := h.usuarioService.BuscarClientes(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(usuarios))
}

// DetalleCliente returns a user with totals and the latest orders
// @Summary      Client detail
// @Tags         usuarios
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.ClienteDetalle}
// @Failure      404  {object}  response.Response
// @Router       /api/clientes/{id} [get]
func (h *UserHandler) DetalleCliente(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detalle, err := h.usuarioService.DetalleCliente(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(detalle))
}

// CambiarRol changes the role of a user
// @Summary      Change role
// @Tags         usuarios
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.CambiarRolRequest  true  "New role"
// @Success      200      {object}  response.Response{data=model.Usuario}
// @Failure      400      {object}  response.Response
// @Router       /api/clientes/{id}/rol [put]
func (h *UserHandler) CambiarRol(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CambiarRolRequest
	if !bindJSON(c, &req) {
		return
	}

	usuario, err := h.usuarioService.CambiarRol(c.Request.Context(), actorFrom(c), id, req.Rol)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Rol actualizado", usuario))
}
