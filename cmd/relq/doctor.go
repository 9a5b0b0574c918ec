package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/relq/internal/cli"
	"github.com/pthm/relq/internal/doctor"
	"github.com/pthm/relq/pkg/introspect"
)

var (
	doctorDB      string
	doctorDriver  string
	doctorSchema  string
	doctorQueries string
	doctorVerbose bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long: `Run health checks on a relq project: the schema and query documents, query
compilation, and drift between the schema document and the database.`,
	Example: `  # Run health checks
  relq doctor --db postgres://localhost/library

  # Run with verbose output
  relq doctor --verbose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath := resolveString(doctorSchema, cfg.Schema)
		queriesPath := resolveString(doctorQueries, cfg.Queries)
		driver := resolveString(doctorDriver, cfg.Database.Driver)
		verboseFlag := resolveBool(doctorVerbose, cfg.Doctor.Verbose)

		var in introspect.Introspector
		if _, err := resolveDSN(doctorDB); err == nil {
			db, err := openDB(cmd.Context(), driver, doctorDB)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			var ok bool
			if in, ok = introspect.For(driver, db, introspect.WithLogger(logger)); !ok {
				return cli.ConfigError(fmt.Sprintf("introspection is not supported for driver %q", driver), nil)
			}
		}

		out := cmd.OutOrStdout()
		if !quiet {
			fmt.Fprintln(out, "relq doctor - Health Check")
		}

		report, err := doctor.New(schemaPath, queriesPath, in).Run(cmd.Context())
		if err != nil {
			return cli.GeneralError("running doctor", err)
		}
		report.Print(out, verboseFlag)

		if report.HasErrors() {
			return cli.GeneralError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	f := doctorCmd.Flags()
	f.StringVar(&doctorDB, "db", "", "database URL")
	f.StringVar(&doctorDriver, "driver", "", "database driver: pgx, postgres or sqlite")
	f.StringVar(&doctorSchema, "schema", "", "path to schema document")
	f.StringVar(&doctorQueries, "queries", "", "path to query document")
	f.BoolVar(&doctorVerbose, "verbose", false, "show detailed output")
}
