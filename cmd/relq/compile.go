package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/relq/internal/cli"
	"github.com/pthm/relq/internal/document"
	"github.com/pthm/relq/pkg/compiler"
	"github.com/pthm/relq/schema"
)

var (
	compileSchema      string
	compileQueries     string
	compileName        string
	compileShowArgs    bool
	compileParallelism int
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Print the SQL of queries",
	Long: `Compile the queries of a query document and print their SQL.

Queries are compiled concurrently against one shared schema; output keeps
document order.`,
	Example: `  # Compile every query
  relq compile --schema relq/schema.yaml --queries relq/queries.yaml

  # Compile one query and show its arguments
  relq compile --name prolific --show-args`,
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath := resolveString(compileSchema, cfg.Schema)
		queriesPath := resolveString(compileQueries, cfg.Queries)
		showArgs := resolveBool(compileShowArgs, cfg.Compile.ShowArgs)
		parallelism := resolveInt(compileParallelism, cfg.Compile.Parallelism, 1)

		reg, err := loadRegistry(schemaPath)
		if err != nil {
			return err
		}
		queries, err := loadQueries(queriesPath, compileName)
		if err != nil {
			return err
		}

		stmts, err := compileAll(cmd.Context(), reg, queries, parallelism)
		if err != nil {
			return err
		}
		printStatements(cmd.OutOrStdout(), queries, stmts, showArgs)
		return nil
	},
}

func init() {
	f := compileCmd.Flags()
	f.StringVar(&compileSchema, "schema", "", "path to schema document")
	f.StringVar(&compileQueries, "queries", "", "path to query document")
	f.StringVar(&compileName, "name", "", "compile only the named query")
	f.BoolVar(&compileShowArgs, "show-args", false, "print bound arguments")
	f.IntVar(&compileParallelism, "parallelism", 0, "number of queries compiled concurrently")
}

// loadQueries reads a query document, keeping only name when set.
func loadQueries(path, name string) ([]document.Query, error) {
	doc, err := document.LoadQueries(path)
	if err != nil {
		return nil, cli.QueryError("loading queries", err)
	}
	if name == "" {
		return doc.Queries, nil
	}
	q, ok := doc.Find(name)
	if !ok {
		return nil, cli.QueryError(fmt.Sprintf("query %q not found in %s", name, path), nil)
	}
	return []document.Query{q}, nil
}

// compileAll compiles queries concurrently. The registry is read-only and
// each plan is owned by one goroutine.
func compileAll(ctx context.Context, reg *schema.Registry, queries []document.Query, parallelism int) ([]compiler.Statement, error) {
	stmts := make([]compiler.Statement, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, q := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stmt, err := compileQuery(reg, q)
			if err != nil {
				return err
			}
			stmts[i] = stmt
			logger.WithFields(logrus.Fields{"query": q.Name, "args": len(stmt.Args)}).Debug("compiled")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stmts, nil
}

func compileQuery(reg *schema.Registry, q document.Query) (compiler.Statement, error) {
	p, err := q.Compile(reg)
	if err != nil {
		return compiler.Statement{}, cli.QueryError("compiling", err)
	}
	stmt, err := p.Build()
	if err != nil {
		return compiler.Statement{}, cli.QueryError(fmt.Sprintf("building %q", q.Name), err)
	}
	return stmt, nil
}

func printStatements(w io.Writer, queries []document.Query, stmts []compiler.Statement, showArgs bool) {
	for i, stmt := range stmts {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "-- %s\n%s;\n", queries[i].Name, stmt.SQL)
		if showArgs && len(stmt.Args) > 0 {
			fmt.Fprintf(w, "-- args: %v\n", stmt.Args)
		}
	}
}
