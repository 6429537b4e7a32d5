package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/infra"
	"elixir/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Actor identifies who performs an operation, for authorization and audit.
type Actor struct {
	ID        uuid.UUID
	Rol       string
	IP        string
	UserAgent string
}

func (a Actor) Es(roles ...string) bool {
	for _, r := range roles {
		if a.Rol == r {
			return true
		}
	}
	return false
}

func (a Actor) EsStaff() bool { return model.EsStaff(a.Rol) }

func (a Actor) usuarioID() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

// EmailSender hands a rendered mail to the delivery pipeline.
type EmailSender interface {
	Send(ctx context.Context, mail infra.Mail) error
}

// Notifier pushes realtime events to connected staff.
type Notifier interface {
	Publish(event string, data interface{}, roles ...string)
	PublishToUser(usuarioID uuid.UUID, event string, data interface{})
}

// DLQReporter exposes the number of emails that exhausted their retries.
type DLQReporter interface {
	DLQLength(ctx context.Context) (int64, error)
}

// Websocket events
const (
	EventNuevoPedido       = "nuevo_pedido"
	EventPedidoActualizado = "pedido_actualizado"
	EventStockBajo         = "stock_bajo"
	EventNuevaSolicitud    = "nueva_solicitud"
	EventSolicitudResuelta = "solicitud_resuelta"
	EventRolActualizado    = "rol_actualizado"
)

type noopNotifier struct{}

func (noopNotifier) Publish(string, interface{}, ...string) {}

func (noopNotifier) PublishToUser(uuid.UUID, string, interface{}) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

func parseID(raw, entidad string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.Validation("ID de " + entidad + " inválido")
	}
	return id, nil
}

func parseOptionalID(raw, entidad string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(raw, entidad)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseFecha reads a YYYY-MM-DD date as local midnight.
func parseFecha(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, apperror.Validation("Fecha inválida, use el formato AAAA-MM-DD")
	}
	return t, nil
}

func inicioDelDia(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func pageOrDefault(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit
}
