package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const edadMinima = 18

type RegistroRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Username        string `json:"username"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
	Nombre          string `json:"nombre"`
	Apellido        string `json:"apellido"`
	FechaNacimiento string `json:"fecha_nacimiento" binding:"required"` // YYYY-MM-DD
	Telefono        string `json:"telefono"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UsuarioResumen struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Nombre          string     `json:"nombre"`
	Rol             string     `json:"rol"`
	FechaNacimiento *time.Time `json:"fecha_nacimiento"`
}

type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Usuario      UsuarioResumen `json:"usuario"`
}

type MeResponse struct {
	Usuario  *model.Usuario `json:"usuario"`
	Rol      string         `json:"rol"`
	EsStaff  bool           `json:"es_staff"`
	Permisos []string       `json:"permisos"`
}

// TokenConfig controls token signing and lifetimes.
type TokenConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AuthService interface {
	Registrar(ctx context.Context, req RegistroRequest, meta Actor) (*model.Usuario, error)
	Login(ctx context.Context, req LoginRequest, meta Actor) (*LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResponse, error)
	Logout(ctx context.Context, refreshToken string, actor Actor) error
	Me(ctx context.Context, actor Actor) (*MeResponse, error)
	TokenConfig() TokenConfig
}

type authService struct {
	usuarios repository.UsuarioRepository
	roles    repository.RoleRepository
	tx       repository.TransactionManager
	auditor  Auditor
	syslog   SystemLogger
	email    EmailService
	tokens   TokenConfig
	now      func() time.Time
}

func NewAuthService(
	usuarios repository.UsuarioRepository,
	roles repository.RoleRepository,
	tx repository.TransactionManager,
	auditor Auditor,
	syslog SystemLogger,
	email EmailService,
	tokens TokenConfig,
) AuthService {
	return &authService{
		usuarios: usuarios,
		roles:    roles,
		tx:       tx,
		auditor:  auditor,
		syslog:   syslog,
		email:    email,
		tokens:   tokens,
		now:      time.Now,
	}
}

func (s *authService) TokenConfig() TokenConfig { return s.tokens }

func (s *authService) Registrar(ctx context.Context, req RegistroRequest, meta Actor) (*model.Usuario, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if req.Password != req.PasswordConfirm {
		return nil, apperror.Validation("Las contraseñas no coinciden")
	}
	if len(req.Password) < 8 {
		return nil, apperror.Validation("La contraseña debe tener al menos 8 caracteres")
	}
	nacimiento, err := time.Parse("2006-01-02", strings.TrimSpace(req.FechaNacimiento))
	if err != nil {
		return nil, apperror.Validation("Fecha de nacimiento inválida, use el formato AAAA-MM-DD")
	}

	u := &model.Usuario{
		Email:           email,
		Username:        strings.TrimSpace(req.Username),
		Nombre:          strings.TrimSpace(req.Nombre),
		Apellido:        strings.TrimSpace(req.Apellido),
		Rol:             model.RolCliente,
		FechaNacimiento: &nacimiento,
		Telefono:        req.Telefono,
		Activo:          true,
	}
	if u.Username == "" {
		u.Username = email
	}
	if u.Edad(s.now()) < edadMinima {
		return nil, apperror.Validation("Debes ser mayor de 18 años para registrarte")
	}

	if _, err := s.usuarios.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("Ya existe una cuenta con este correo")
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u.Password = string(hash)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.usuarios.Create(txCtx, u); err != nil {
			return err
		}
		meta.ID = u.ID
		return s.auditor.Record(txCtx, meta, AuditEntry{
			Accion:      model.AccionCrear,
			Modelo:      "Usuario",
			IDObjeto:    u.ID.String(),
			Descripcion: "Registro de cliente " + u.Email,
			Despues:     map[string]string{"email": u.Email, "rol": u.Rol},
		})
	})
	if err != nil {
		return nil, err
	}

	s.email.Bienvenida(ctx, u)
	return u, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest, meta Actor) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.usuarios.GetByEmail(ctx, email)
	if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}
	if err != nil || !u.Activo || bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)) != nil {
		s.syslog.Registrar(ctx, EventoSistema{
			Nivel:     model.NivelWarning,
			Categoria: model.CategoriaSeguridad,
			Mensaje:   "Intento de inicio de sesión fallido para " + email,
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			Modulo:    "auth",
			Funcion:   "login",
		})
		return nil, apperror.Unauthorized("Credenciales inválidas")
	}

	var out *LoginResponse
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.usuarios.TouchUltimoAcceso(txCtx, u.ID, s.now().UTC()); err != nil {
			return err
		}
		var issueErr error
		if out, issueErr = s.issueTokens(txCtx, u); issueErr != nil {
			return issueErr
		}
		meta.ID, meta.Rol = u.ID, u.Rol
		return s.auditor.Record(txCtx, meta, AuditEntry{
			Accion:      model.AccionLogin,
			Modelo:      "Usuario",
			IDObjeto:    u.ID.String(),
			Descripcion: "Inicio de sesión de " + u.Email,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	if refreshToken == "" {
		return nil, apperror.Unauthorized("Refresh token requerido")
	}
	stored, err := s.usuarios.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.Unauthorized("Refresh token inválido")
		}
		return nil, err
	}
	if s.now().After(stored.ExpiresAt) || !stored.Usuario.Activo {
		_ = s.usuarios.DeleteRefreshToken(ctx, refreshToken)
		return nil, apperror.Unauthorized("Refresh token expirado")
	}

	var out *LoginResponse
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// rotate: the presented token is single use
		if err := s.usuarios.DeleteRefreshToken(txCtx, refreshToken); err != nil {
			return err
		}
		var issueErr error
		out, issueErr = s.issueTokens(txCtx, &stored.Usuario)
		return issueErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string, actor Actor) error {
	if refreshToken != "" {
		if err := s.usuarios.DeleteRefreshToken(ctx, refreshToken); err != nil && !repository.IsNotFound(err) {
			return err
		}
	}
	if actor.ID == uuid.Nil {
		return nil
	}
	return s.auditor.Record(ctx, actor, AuditEntry{
		Accion:   model.AccionLogout,
		Modelo:   "Usuario",
		IDObjeto: actor.ID.String(),
	})
}

func (s *authService) Me(ctx context.Context, actor Actor) (*MeResponse, error) {
	u, err := s.usuarios.GetByID(ctx, actor.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("Usuario no encontrado")
		}
		return nil, err
	}
	perms, err := s.roles.GetPermissionsByRoleName(ctx, u.Rol)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []string{}
	}
	return &MeResponse{Usuario: u, Rol: u.Rol, EsStaff: model.EsStaff(u.Rol), Permisos: perms}, nil
}

func (s *authService) issueTokens(ctx context.Context, u *model.Usuario) (*LoginResponse, error) {
	access, err := SignAccessToken(s.tokens, u.ID, u.Rol, s.now())
	if err != nil {
		return nil, err
	}
	refresh := &model.RefreshToken{
		UsuarioID: u.ID,
		Token:     strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		ExpiresAt: s.now().Add(s.tokens.RefreshTTL).UTC(),
	}
	if err := s.usuarios.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		Usuario: UsuarioResumen{
			ID:              u.ID,
			Email:           u.Email,
			Nombre:          u.NombreCompleto(),
			Rol:             u.Rol,
			FechaNacimiento: u.FechaNacimiento,
		},
	}, nil
}

// SignAccessToken issues an HS256 access token with sub and role claims.
func SignAccessToken(cfg TokenConfig, userID uuid.UUID, rol string, now time.Time) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"role": rol,
		"typ":  "access",
		"iat":  now.Unix(),
		"exp":  now.Add(cfg.AccessTTL).Unix(),
	})
	signed, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
