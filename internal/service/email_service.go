package service

import (
	"bytes"
	"context"
	"html/template"
	"strings"

	"elixir/internal/infra"
	"elixir/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Mail types
const (
	MailBienvenida         = "bienvenida"
	MailConfirmacionPedido = "confirmacion_pedido"
	MailPagoConfirmado     = "pago_confirmado"
	MailCambioEstado       = "cambio_estado"
	MailReclamoResuelto    = "reclamo_resuelto"
	MailReporte            = "reporte"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#333;max-width:600px;margin:auto">
<h2 style="color:#7b1e3a">Elixir</h2>
{{template "content" .}}
<hr><p style="font-size:12px;color:#888">Este correo fue enviado automáticamente, por favor no responda.</p>
</body></html>{{end}}`

var mailTemplates = map[string]string{
	MailBienvenida: `{{define "content"}}<p>Hola {{.Nombre}},</p>
<p>¡Bienvenido a Elixir! Tu cuenta fue creada con el correo <b>{{.Email}}</b>.</p>
<p>Ya puedes explorar nuestro catálogo en <a href="{{.URL}}">{{.URL}}</a>.</p>{{end}}`,

	MailConfirmacionPedido: `{{define "content"}}<p>Hola {{.Nombre}},</p>
<p>Recibimos tu pedido <b>{{.Numero}}</b>.</p>
<table cellpadding="4" style="border-collapse:collapse">
<tr><th align="left">Producto</th><th>Cantidad</th><th align="right">Subtotal</th></tr>
{{range .Items}}<tr><td>{{.Nombre}}</td><td align="center">{{.Cantidad}}</td><td align="right">${{.Subtotal}}</td></tr>{{end}}
</table>
<p>Descuento: ${{.Descuento}}<br>Envío: ${{.Envio}}<br><b>Total: ${{.Total}}</b></p>
<p>Código de seguimiento: <b>{{.Codigo}}</b><br>
Sigue tu pedido en <a href="{{.URL}}">{{.URL}}</a></p>{{end}}`,

	MailPagoConfirmado: `{{define "content"}}<p>Hola {{.Nombre}},</p>
<p>Confirmamos el pago de tu pedido <b>{{.Numero}}</b> por <b>${{.Total}}</b>.</p>
<p>Te avisaremos cuando sea despachado. Seguimiento: <a href="{{.URL}}">{{.Codigo}}</a></p>{{end}}`,

	MailCambioEstado: `{{define "content"}}<p>Hola {{.Nombre}},</p>
<p>Tu pedido <b>{{.Numero}}</b> cambió de estado: {{.Anterior}} &rarr; <b>{{.Estado}}</b>.</p>
{{if .Entrega}}<p>Fecha estimada de entrega: {{.Entrega}}</p>{{end}}
<p>Seguimiento: <a href="{{.URL}}">{{.Codigo}}</a></p>{{end}}`,

	MailReclamoResuelto: `{{define "content"}}<p>Hola {{.Nombre}},</p>
<p>Tu reclamo <b>{{.Titulo}}</b> fue resuelto.</p>
<p><b>Resolución:</b> {{.Resolucion}}</p>
<p>Nos ayudaría mucho que calificaras la atención recibida.</p>{{end}}`,

	MailReporte: `{{define "content"}}<p>Se adjunta el reporte <b>{{.Nombre}}</b> correspondiente al período {{.Desde}} - {{.Hasta}}.</p>{{end}}`,
}

var parsedTemplates = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(mailTemplates))
	for name, body := range mailTemplates {
		t := template.Must(template.New(name).Parse(layout))
		out[name] = template.Must(t.Parse(body))
	}
	return out
}()

func renderMail(tipo string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := parsedTemplates[tipo].ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// EmailService composes transactional mail. Delivery failures are logged,
// never returned, except for report mail whose state depends on it.
type EmailService interface {
	Bienvenida(ctx context.Context, u *model.Usuario)
	ConfirmacionPedido(ctx context.Context, p *model.Pedido)
	PagoConfirmado(ctx context.Context, p *model.Pedido)
	CambioEstado(ctx context.Context, p *model.Pedido, anterior string)
	ReclamoResuelto(ctx context.Context, r *model.Reclamo, cliente *model.Usuario)
	ReporteAdjunto(ctx context.Context, r *model.ReporteFinanciero, path string) error
}

type emailService struct {
	sender      EmailSender
	syslog      SystemLogger
	frontendURL string
}

func NewEmailService(sender EmailSender, syslog SystemLogger, frontendURL string) EmailService {
	return &emailService{sender: sender, syslog: syslog, frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (s *emailService) seguimientoURL(p *model.Pedido) string {
	return s.frontendURL + "/seguimiento/" + p.CodigoSeguimiento()
}

func (s *emailService) send(ctx context.Context, tipo, subject string, to []string, data interface{}, attachments ...string) error {
	html, err := renderMail(tipo, data)
	if err == nil {
		err = s.sender.Send(ctx, infra.Mail{To: to, Subject: subject, HTML: html, Attachments: attachments, Tipo: tipo})
	}
	if err != nil {
		log.Error().Err(err).Str("tipo", tipo).Strs("to", to).Msg("email could not be queued")
		if s.syslog != nil {
			s.syslog.Registrar(ctx, EventoSistema{
				Nivel:     model.NivelError,
				Categoria: model.CategoriaEmail,
				Mensaje:   "No se pudo enviar el correo " + tipo + ": " + err.Error(),
				Extra:     map[string]interface{}{"destinatarios": to},
				Modulo:    "email",
				Funcion:   tipo,
			})
		}
	}
	return err
}

func (s *emailService) Bienvenida(ctx context.Context, u *model.Usuario) {
	_ = s.send(ctx, MailBienvenida, "Bienvenido a Elixir", []string{u.Email}, map[string]string{
		"Nombre": u.NombreCompleto(),
		"Email":  u.Email,
		"URL":    s.frontendURL,
	})
}

type mailItem struct {
	Nombre   string
	Cantidad int
	Subtotal string
}

func (s *emailService) ConfirmacionPedido(ctx context.Context, p *model.Pedido) {
	if p.Cliente == nil {
		return
	}
	items := make([]mailItem, 0, len(p.Detalles))
	for _, d := range p.Detalles {
		nombre := d.ProductoID.String()
		if d.Producto != nil {
			nombre = d.Producto.Nombre
		}
		items = append(items, mailItem{Nombre: nombre, Cantidad: d.Cantidad, Subtotal: pesos(d.Subtotal)})
	}
	_ = s.send(ctx, MailConfirmacionPedido, "Confirmación de pedido "+p.NumeroPedido, []string{p.Cliente.Email}, map[string]interface{}{
		"Nombre":    p.Cliente.NombreCompleto(),
		"Numero":    p.NumeroPedido,
		"Items":     items,
		"Descuento": pesos(p.Descuento),
		"Envio":     pesos(p.CostoEnvio),
		"Total":     pesos(p.Total),
		"Codigo":    p.CodigoSeguimiento(),
		"URL":       s.seguimientoURL(p),
	})
}

func (s *emailService) PagoConfirmado(ctx context.Context, p *model.Pedido) {
	if p.Cliente == nil {
		return
	}
	_ = s.send(ctx, MailPagoConfirmado, "Pago confirmado - "+p.NumeroPedido, []string{p.Cliente.Email}, map[string]string{
		"Nombre": p.Cliente.NombreCompleto(),
		"Numero": p.NumeroPedido,
		"Total":  pesos(p.Total),
		"Codigo": p.CodigoSeguimiento(),
		"URL":    s.seguimientoURL(p),
	})
}

func (s *emailService) CambioEstado(ctx context.Context, p *model.Pedido, anterior string) {
	if p.Cliente == nil {
		return
	}
	entrega := ""
	if p.FechaEntregaEstimada != nil {
		entrega = p.FechaEntregaEstimada.Format("02/01/2006")
	}
	_ = s.send(ctx, MailCambioEstado, "Actualización de tu pedido "+p.NumeroPedido, []string{p.Cliente.Email}, map[string]string{
		"Nombre":   p.Cliente.NombreCompleto(),
		"Numero":   p.NumeroPedido,
		"Anterior": anterior,
		"Estado":   p.Estado,
		"Entrega":  entrega,
		"Codigo":   p.CodigoSeguimiento(),
		"URL":      s.seguimientoURL(p),
	})
}

func (s *emailService) ReclamoResuelto(ctx context.Context, r *model.Reclamo, cliente *model.Usuario) {
	if cliente == nil {
		return
	}
	_ = s.send(ctx, MailReclamoResuelto, "Tu reclamo fue resuelto", []string{cliente.Email}, map[string]string{
		"Nombre":     cliente.NombreCompleto(),
		"Titulo":     r.Titulo,
		"Resolucion": r.Resolucion,
	})
}

func (s *emailService) ReporteAdjunto(ctx context.Context, r *model.ReporteFinanciero, path string) error {
	return s.send(ctx, MailReporte, "Reporte financiero: "+r.Nombre, r.Destinatarios(), map[string]string{
		"Nombre": r.Nombre,
		"Desde":  r.FechaInicio.Format("02/01/2006"),
		"Hasta":  r.FechaFin.Format("02/01/2006"),
	}, path)
}

func pesos(v decimal.Decimal) string {
	return v.StringFixed(0)
}
