// Package doctor provides health checks for a relq project.
//
// The doctor command checks that the schema and query documents are valid,
// that every query compiles, and that the tables the schema declares match
// the live database.
//
// Example usage:
//
//	in, _ := introspect.For("pgx", db)
//	d := doctor.New("relq/schema.yaml", "relq/queries.yaml", in)
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/pthm/relq/internal/document"
	"github.com/pthm/relq/pkg/introspect"
	"github.com/pthm/relq/schema"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical issue that will cause failures.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Schema Document", "Database").
	Category string

	// Name is a short identifier for the check.
	Name string

	// Status is the check outcome.
	Status Status

	// Message is a human-readable description of the result.
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	// Summary counts.
	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	// Group checks by category
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

const (
	categorySchema   = "Schema Document"
	categoryQueries  = "Query Document"
	categoryDatabase = "Database"
)

// Doctor performs health checks on a relq project.
type Doctor struct {
	schemaPath  string
	queriesPath string
	in          introspect.Introspector

	// Populated during Run
	doc *document.Schema
	reg *schema.Registry
}

// New creates a Doctor. Database checks are skipped when in is nil.
func New(schemaPath, queriesPath string, in introspect.Introspector) *Doctor {
	return &Doctor{schemaPath: schemaPath, queriesPath: queriesPath, in: in}
}

// Run executes all health checks and returns a report. Errors are returned
// only when a check cannot run; failed checks are part of the report.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	d.checkSchema(report)
	d.checkQueries(report)
	if err := d.checkDatabase(ctx, report); err != nil {
		return nil, fmt.Errorf("checking database: %w", err)
	}
	return report, nil
}

func (d *Doctor) checkSchema(report *Report) {
	if _, err := os.Stat(d.schemaPath); err != nil {
		report.AddCheck(CheckResult{
			Category: categorySchema,
			Name:     "exists",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Schema document not found at %s", d.schemaPath),
			FixHint:  "Run 'relq introspect --out " + d.schemaPath + "' to create one from your database",
		})
		return
	}

	doc, err := document.LoadSchema(d.schemaPath)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: categorySchema,
			Name:     "valid",
			Status:   StatusFail,
			Message:  "Schema document cannot be parsed",
			Details:  err.Error(),
		})
		return
	}
	d.doc = doc

	reg, err := doc.Registry()
	if err == nil {
		err = reg.Validate()
	}
	if err != nil {
		report.AddCheck(CheckResult{
			Category: categorySchema,
			Name:     "valid",
			Status:   StatusFail,
			Message:  "Schema declares invalid tables or associations",
			Details:  err.Error(),
			FixHint:  "Run 'relq validate' to see detailed errors",
		})
		return
	}
	d.reg = reg

	report.AddCheck(CheckResult{
		Category: categorySchema,
		Name:     "valid",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Schema is valid (%d tables, %d associations)", len(doc.Tables), len(doc.Associations)),
	})
}

func (d *Doctor) checkQueries(report *Report) {
	if _, err := os.Stat(d.queriesPath); err != nil {
		report.AddCheck(CheckResult{
			Category: categoryQueries,
			Name:     "exists",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("Query document not found at %s", d.queriesPath),
		})
		return
	}

	queries, err := document.LoadQueries(d.queriesPath)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: categoryQueries,
			Name:     "valid",
			Status:   StatusFail,
			Message:  "Query document cannot be parsed",
			Details:  err.Error(),
		})
		return
	}
	if d.reg == nil {
		report.AddCheck(CheckResult{
			Category: categoryQueries,
			Name:     "compile",
			Status:   StatusWarn,
			Message:  "Queries not compiled: the schema is invalid",
		})
		return
	}

	var failed []string
	for _, q := range queries.Queries {
		p, err := q.Compile(d.reg)
		if err == nil {
			_, err = p.Build()
		}
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", q.Name, err))
		}
	}
	if len(failed) > 0 {
		report.AddCheck(CheckResult{
			Category: categoryQueries,
			Name:     "compile",
			Status:   StatusFail,
			Message:  fmt.Sprintf("%d of %d queries do not compile", len(failed), len(queries.Queries)),
			Details:  strings.Join(failed, "\n"),
			FixHint:  "Run 'relq compile --name <query>' to see the error",
		})
		return
	}
	report.AddCheck(CheckResult{
		Category: categoryQueries,
		Name:     "compile",
		Status:   StatusPass,
		Message:  fmt.Sprintf("All %d queries compile", len(queries.Queries)),
	})
}

// checkDatabase compares the tables of the schema document with the live
// database.
func (d *Doctor) checkDatabase(ctx context.Context, report *Report) error {
	if d.in == nil {
		report.AddCheck(CheckResult{
			Category: categoryDatabase,
			Name:     "configured",
			Status:   StatusWarn,
			Message:  "No database configured, skipping drift checks",
			FixHint:  "Set database in relq.yaml or pass --db",
		})
		return nil
	}
	if d.doc == nil {
		return nil
	}

	live, err := d.in.Tables(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]schema.Table, len(live))
	for _, t := range live {
		byName[strings.ToLower(t.Name)] = t
	}

	drift := 0
	for _, want := range d.doc.Tables {
		got, ok := byName[strings.ToLower(want.Name)]
		if !ok {
			drift++
			report.AddCheck(CheckResult{
				Category: categoryDatabase,
				Name:     "table",
				Status:   StatusFail,
				Message:  fmt.Sprintf("Table %s not found in database", want.Name),
				FixHint:  "Create the table or remove it from the schema document",
			})
			continue
		}
		for _, check := range compareTable(want, got) {
			drift++
			report.AddCheck(check)
		}
	}

	if drift == 0 {
		report.AddCheck(CheckResult{
			Category: categoryDatabase,
			Name:     "tables",
			Status:   StatusPass,
			Message:  fmt.Sprintf("All %d tables match the database", len(d.doc.Tables)),
			Details:  fmt.Sprintf("%d tables in database", len(live)),
		})
	}
	return nil
}

// compareTable returns the differences between a declared table and its
// live counterpart.
func compareTable(want, got schema.Table) []CheckResult {
	var out []CheckResult

	var missing []string
	for _, c := range want.Columns {
		if !slices.ContainsFunc(got.Columns, func(g string) bool { return strings.EqualFold(g, c) }) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		out = append(out, CheckResult{
			Category: categoryDatabase,
			Name:     "columns",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Table %s is missing columns: %s", want.Name, strings.Join(missing, ", ")),
		})
	}

	if !want.Keyless && !sameColumns(want.PrimaryKey, got.PrimaryKey) {
		out = append(out, CheckResult{
			Category: categoryDatabase,
			Name:     "primary_key",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("Primary key of %s differs from the database", want.Name),
			Details:  fmt.Sprintf("declared (%s), database (%s)", strings.Join(want.PrimaryKey, ", "), strings.Join(got.PrimaryKey, ", ")),
		})
	}

	for _, fk := range want.ForeignKeys {
		found := slices.ContainsFunc(got.ForeignKeys, func(g schema.ForeignKey) bool {
			return strings.EqualFold(g.Table, fk.Table) && sameColumns(g.Columns, fk.Columns)
		})
		if !found {
			out = append(out, CheckResult{
				Category: categoryDatabase,
				Name:     "foreign_key",
				Status:   StatusWarn,
				Message:  fmt.Sprintf("Foreign key %s(%s) -> %s is not declared in the database", want.Name, strings.Join(fk.Columns, ", "), fk.Table),
				Details:  "Associations still compile; the database does not enforce the reference",
			})
		}
	}
	return out
}

func sameColumns(a, b []string) bool {
	return slices.EqualFunc(a, b, strings.EqualFold)
}
