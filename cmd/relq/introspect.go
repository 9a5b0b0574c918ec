package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/relq/internal/cli"
	"github.com/pthm/relq/internal/document"
	"github.com/pthm/relq/pkg/introspect"
)

var (
	introspectDB     string
	introspectDriver string
	introspectSchema string
	introspectOut    string
)

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Write a schema document from a database",
	Long: `Read tables, primary keys and foreign keys from a live database and write
them as a schema document. Associations are left for you to declare.`,
	Example: `  # Print the schema of a SQLite database
  relq introspect --driver sqlite --db library.db

  # Write the schema of a PostgreSQL schema to a file
  relq introspect --db postgres://localhost/library --pg-schema app --out relq/schema.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		driver := resolveString(introspectDriver, cfg.Database.Driver)

		db, err := openDB(cmd.Context(), driver, introspectDB)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		in, ok := introspect.For(driver, db, introspect.WithLogger(logger), introspect.WithSchema(introspectSchema))
		if !ok {
			return cli.ConfigError(fmt.Sprintf("introspection is not supported for driver %q", driver), nil)
		}
		tables, err := in.Tables(cmd.Context())
		if err != nil {
			return cli.DBConnectError("introspecting database", err)
		}

		out, err := document.Marshal(document.FromTables(tables))
		if err != nil {
			return cli.GeneralError("encoding schema", err)
		}

		if introspectOut == "" {
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}
		if err := os.WriteFile(introspectOut, out, 0o644); err != nil {
			return cli.GeneralError("writing schema", err)
		}
		logger.WithField("path", introspectOut).Infof("wrote %d tables", len(tables))
		return nil
	},
}

func init() {
	f := introspectCmd.Flags()
	f.StringVar(&introspectDB, "db", "", "database URL")
	f.StringVar(&introspectDriver, "driver", "", "database driver: pgx, postgres or sqlite")
	f.StringVar(&introspectSchema, "pg-schema", "", "PostgreSQL schema (default: current_schema())")
	f.StringVarP(&introspectOut, "out", "o", "", "output file (default: stdout)")
}
