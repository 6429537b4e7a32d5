// Command manage runs one-off administrative tasks against the configured database.
package main

import (
	"fmt"
	"os"

	"elixir/internal/config"
	"elixir/internal/database"
	"elixir/internal/logger"
	"elixir/internal/model"
	"elixir/internal/repository"
	"elixir/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type app struct {
	usuarios  service.UsuarioService
	productos service.ProductoService
}

func connect(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.LogLevel, cfg.IsProduction())

	db, err := database.NewConnection(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.Seed(cmd.Context(), db); err != nil {
		return nil, fmt.Errorf("database seed failed: %w", err)
	}
	return newApp(db, cfg), nil
}

func newApp(db *gorm.DB, cfg *config.Config) *app {
	tx := repository.NewTransactionManager(db)
	audit := service.NewAuditService(repository.NewAuditRepository(db), cfg.Location())
	productos := repository.NewProductoRepository(db)
	movimientos := repository.NewMovimientoRepository(db)
	autorizaciones := service.NewAutorizacionService(repository.NewSolicitudRepository(db), productos, movimientos, tx, audit, nil)

	productoSvc := service.NewProductoService(productos, repository.NewCategoriaRepository(db), repository.NewProveedorRepository(db),
		movimientos, tx, audit, nil, autorizaciones)

	return &app{
		usuarios:  service.NewUsuarioService(repository.NewUsuarioRepository(db), repository.NewPedidoRepository(db), tx, audit, nil),
		productos: productoSvc,
	}
}

func staffCommand(use, short, rol string) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := connect(cmd)
			if err != nil {
				return err
			}
			u, created, err := a.usuarios.CrearOPromover(cmd.Context(), email, password, rol)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Usuario %s creado con rol %s\n", u.Email, u.Rol)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Usuario %s actualizado a rol %s\n", u.Email, u.Rol)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&password, "password", "", "user password (min 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "manage",
		Short:         "Elixir administrative tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		staffCommand("create-admin", "Create or promote a system administrator", model.RolAdminSistema),
		staffCommand("create-manager", "Create or promote a store manager", model.RolGerente),
		staffCommand("create-seller", "Create or promote a seller", model.RolVendedor),
		&cobra.Command{
			Use:   "seed-products",
			Short: "Load the demo catalog",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := connect(cmd)
				if err != nil {
					return err
				}
				n, err := a.productos.SeedDemo(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d productos creados\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "fix-images",
			Short: "Assign the placeholder image to products without one",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := connect(cmd)
				if err != nil {
					return err
				}
				n, err := a.productos.FixImages(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d productos actualizados\n", n)
				return nil
			},
		},
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
