package service

import (
	"context"
	"testing"
	"time"

	"elixir/internal/apperror"
	"elixir/internal/model"
	"elixir/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) descuentoService() DescuentoService {
	return NewDescuentoService(e.cupones, e.promociones, e.productos, e.tx, e.audit)
}

func cuponPorcentaje(codigo string, pct string) CuponRequest {
	p := dec(pct)
	return CuponRequest{
		Codigo:              codigo,
		TipoDescuento:       model.DescuentoPorcentaje,
		DescuentoPorcentaje: &p,
		FechaInicio:         time.Now().Add(-time.Hour),
		FechaFin:            time.Now().Add(24 * time.Hour),
		UsosMaximos:         10,
	}
}

func TestPromocionPorcentajeHasta90(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	p := testutil.CreateProducto(t, e.db, "PROMO-1", "10000", 5, nil)
	svc := e.descuentoService()

	req := PromocionRequest{
		ProductoID:          p.ID.String(),
		Nombre:              "Liquidación",
		DescuentoPorcentaje: dec("90"),
		FechaInicio:         time.Now().Add(-time.Hour),
		FechaFin:            time.Now().Add(24 * time.Hour),
	}
	promo, err := svc.CrearPromocion(ctx, e.actor(gerente), req)
	require.NoError(t, err)
	assert.True(t, dec("90").Equal(promo.DescuentoPorcentaje))

	req.DescuentoPorcentaje = dec("90.01")
	_, err = svc.CrearPromocion(ctx, e.actor(gerente), req)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.ActualizarPromocion(ctx, e.actor(gerente), promo.ID, req)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	req.DescuentoPorcentaje = decimal.Zero
	_, err = svc.CrearPromocion(ctx, e.actor(gerente), req)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestCuponValidaciones(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	svc := e.descuentoService()
	actor := e.actor(gerente)

	tests := []struct {
		name string
		req  func() CuponRequest
	}{
		{"porcentaje sobre 100", func() CuponRequest { return cuponPorcentaje("MAS100", "100.5") }},
		{"porcentaje cero", func() CuponRequest { return cuponPorcentaje("CERO", "0") }},
		{"fin igual a inicio", func() CuponRequest {
			r := cuponPorcentaje("FECHAS", "10")
			r.FechaFin = r.FechaInicio
			return r
		}},
		{"fin antes de inicio", func() CuponRequest {
			r := cuponPorcentaje("FECHAS2", "10")
			r.FechaFin = r.FechaInicio.Add(-time.Hour)
			return r
		}},
		{"monto sin valor", func() CuponRequest {
			r := cuponPorcentaje("MONTO", "10")
			r.TipoDescuento, r.DescuentoPorcentaje = model.DescuentoMonto, nil
			return r
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CrearCupon(ctx, actor, tt.req())
			assert.True(t, apperror.Is(err, apperror.KindValidation))
		})
	}

	c, err := svc.CrearCupon(ctx, actor, cuponPorcentaje("verano", "100"))
	require.NoError(t, err)
	assert.Equal(t, "VERANO", c.Codigo)

	_, err = svc.CrearCupon(ctx, actor, cuponPorcentaje(" Verano ", "15"))
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Equal(t, int64(1), e.countAudit(t, model.AccionCrear, "Cupon"))
}

func TestActualizarCuponNoBajaDeUsosActuales(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	svc := e.descuentoService()

	c, err := svc.CrearCupon(ctx, e.actor(gerente), cuponPorcentaje("USOS", "10"))
	require.NoError(t, err)
	require.NoError(t, e.db.Model(&model.Cupon{}).Where("id = ?", c.ID).Update("usos_actuales", 5).Error)

	req := cuponPorcentaje("USOS", "10")
	req.UsosMaximos = 3
	_, err = svc.ActualizarCupon(ctx, e.actor(gerente), c.ID, req)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	req.UsosMaximos = 5
	updated, err := svc.ActualizarCupon(ctx, e.actor(gerente), c.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.UsosMaximos)
}

func TestValidarCuponNoLoConsume(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	gerente := testutil.CreateUsuario(t, e.db, "gerente@test.cl", model.RolGerente)
	svc := e.descuentoService()

	req := cuponPorcentaje("DIEZ", "10")
	minimo := dec("20000")
	req.MontoMinimo = &minimo
	_, err := svc.CrearCupon(ctx, e.actor(gerente), req)
	require.NoError(t, err)

	res, err := svc.ValidarCupon(ctx, ValidarCuponRequest{Codigo: "diez", Monto: dec("30000")})
	require.NoError(t, err)
	assert.True(t, res.Valido)
	assert.True(t, dec("3000").Equal(res.Descuento))
	assert.True(t, dec("27000").Equal(res.TotalConDescuento))

	res, err = svc.ValidarCupon(ctx, ValidarCuponRequest{Codigo: "DIEZ", Monto: dec("10000")})
	require.NoError(t, err)
	assert.False(t, res.Valido)

	res, err = svc.ValidarCupon(ctx, ValidarCuponRequest{Codigo: "NOEXISTE", Monto: dec("10000")})
	require.NoError(t, err)
	assert.False(t, res.Valido)

	stored, err := e.cupones.FindByCodigo(ctx, "DIEZ")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UsosActuales)
}
