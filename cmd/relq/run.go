package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/pthm/relq"
	"github.com/pthm/relq/internal/cli"
	"github.com/pthm/relq/internal/document"
)

var (
	runDB      string
	runDriver  string
	runSchema  string
	runQueries string
	runName    string
	runLimit   int
	runCount   bool
	runKey     map[string]string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a query",
	Long:  `Compile one query and execute it against the configured database.`,
	Example: `  # Run a query
  relq run --name prolific --db postgres://localhost/library

  # Run an instance query for one origin row
  relq run --name readerBooks --key library_id=3

  # Only count the rows
  relq run --name prolific --count`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runName == "" {
			return cli.QueryError("--name is required", nil)
		}
		schemaPath := resolveString(runSchema, cfg.Schema)
		queriesPath := resolveString(runQueries, cfg.Queries)
		driver := resolveString(runDriver, cfg.Database.Driver)
		limit := resolveInt(runLimit, cfg.Run.Limit)

		reg, err := loadRegistry(schemaPath)
		if err != nil {
			return err
		}
		queries, err := loadQueries(queriesPath, runName)
		if err != nil {
			return err
		}
		q := queries[0]
		if len(runKey) > 0 {
			if q.Instance == nil {
				return cli.QueryError(fmt.Sprintf("query %q is not an instance query", q.Name), nil)
			}
			inst := *q.Instance
			inst.Key = document.ParseKey(runKey)
			q.Instance = &inst
		}
		if limit > 0 && q.Limit == 0 {
			q.Limit = limit
		}

		stmt, err := compileQuery(reg, q)
		if err != nil {
			return err
		}

		dialect, err := relq.DialectFor(driver)
		if err != nil {
			return cli.ConfigError("database driver", err)
		}
		db, err := openDB(cmd.Context(), driver, runDB)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		runner := relq.NewRunner(db, relq.WithDialect(dialect), relq.WithLogger(logger))

		if runCount {
			n, err := runner.Count(cmd.Context(), stmt)
			if err != nil {
				return cli.QueryError("counting", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		}

		rows, err := runner.Query(cmd.Context(), stmt)
		if err != nil {
			return cli.QueryError("running", err)
		}
		logger.WithFields(logrus.Fields{"query": q.Name, "rows": len(rows)}).Info("query complete")
		return printRows(cmd.OutOrStdout(), rows)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runDB, "db", "", "database URL")
	f.StringVar(&runDriver, "driver", "", "database driver: pgx, postgres or sqlite")
	f.StringVar(&runSchema, "schema", "", "path to schema document")
	f.StringVar(&runQueries, "queries", "", "path to query document")
	f.StringVar(&runName, "name", "", "query to run")
	f.IntVar(&runLimit, "limit", 0, "limit rows of queries without their own limit")
	f.BoolVar(&runCount, "count", false, "print the row count only")
	f.StringToStringVar(&runKey, "key", nil, "instance key values (column=value)")
}

// printRows writes rows as an aligned table. Columns come from the first
// row; every row of a statement shares them.
func printRows(w io.Writer, rows []relq.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rows[0].Columns, "\t"))
	for _, r := range rows {
		cells := make([]string, len(r.Values))
		for i, v := range r.Values {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = cast.ToString(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
