// Package main is the linkly command line.
//
//	@title			Linkly URL Shortener API
//	@version		1.0
//	@description	URL shortener with a cache-aside redirect path
//	@BasePath		/
//	@schemes		http https
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	_ "github.com/priyaranjankumar/linkly/docs"
	appfx "github.com/priyaranjankumar/linkly/internal/fx"
)

var rootCmd = &cobra.Command{
	Use:          "linkly",
	Short:        "URL shortener with a cache-aside redirect path",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the configured SQL store",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	app := fx.New(appfx.HTTPServerModules, fx.WithLogger(slogEventLogger))
	if err := app.Err(); err != nil {
		return err
	}

	app.Run()
	return nil
}

func runMigrate(_ *cobra.Command, _ []string) error {
	return fx.New(appfx.MigrateModules, fx.WithLogger(slogEventLogger)).Err()
}

func slogEventLogger(logger *slog.Logger) fxevent.Logger {
	return &fxevent.SlogLogger{Logger: logger}
}
