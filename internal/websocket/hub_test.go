package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"elixir/internal/middleware"
	"elixir/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func token(t *testing.T, role string) string {
	return tokenFor(t, uuid.New(), role)
}

func tokenFor(t *testing.T, sub uuid.UUID, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(middleware.GetJWTSecret())
	require.NoError(t, err)
	return s
}

func TestHubDeliversEventsByRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	middleware.SetJWTSecret("hub-secret")

	hub := NewHub()
	go hub.Run()

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token="

	_, resp, err := websocket.DefaultDialer.Dial(base+token(t, model.RolCliente), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)

	gerente, _, err := websocket.DefaultDialer.Dial(base+token(t, model.RolGerente), nil)
	require.NoError(t, err)
	defer gerente.Close()
	vendedor, _, err := websocket.DefaultDialer.Dial(base+token(t, model.RolVendedor), nil)
	require.NoError(t, err)
	defer vendedor.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Publish("solicitud_creada", map[string]string{"tipo": "ajuste_stock"}, model.RolGerente)
	hub.Publish("stock_actualizado", map[string]int{"stock": 3})

	var evt Event
	_ = gerente.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := gerente.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &evt))
	assert.Equal(t, "solicitud_creada", evt.Event)

	// the vendedor only sees the broadcast to everyone
	_ = vendedor.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err = vendedor.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &evt))
	assert.Equal(t, "stock_actualizado", evt.Event)
}

func TestHubPublishToUserReachesOnlyThatUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	middleware.SetJWTSecret("hub-secret")

	hub := NewHub()
	go hub.Run()

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token="
	afectado := uuid.New()

	target, _, err := websocket.DefaultDialer.Dial(base+tokenFor(t, afectado, model.RolVendedor), nil)
	require.NoError(t, err)
	defer target.Close()
	otro, _, err := websocket.DefaultDialer.Dial(base+token(t, model.RolVendedor), nil)
	require.NoError(t, err)
	defer otro.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.PublishToUser(afectado, "rol_actualizado", map[string]string{"rol_nuevo": model.RolGerente})
	hub.Publish("stock_actualizado", map[string]int{"stock": 3})

	var evt Event
	_ = target.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := target.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &evt))
	assert.Equal(t, "rol_actualizado", evt.Event)

	_ = otro.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err = otro.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &evt))
	assert.Equal(t, "stock_actualizado", evt.Event)
}
