package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pthm/relq/internal/cli"
	"github.com/pthm/relq/internal/document"
	"github.com/pthm/relq/schema"
)

var validateSchema string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a schema document",
	Long:  `Validate a schema document: tables, foreign keys and every declared association.`,
	Example: `  # Validate a specific schema file
  relq validate --schema relq/schema.yaml

  # Validate using config file settings
  relq validate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Resolve schema path: flag > config > default
		schemaPath := resolveString(validateSchema, cfg.Schema)

		reg, err := loadRegistry(schemaPath)
		if err != nil {
			return err
		}

		if !quiet {
			out := cmd.OutOrStdout()
			tables := reg.Tables()
			fmt.Fprintf(out, "Schema is valid. Found %d tables:\n", len(tables))
			for _, t := range tables {
				assocs := reg.Associations(t.Name)
				fmt.Fprintf(out, "  - %s (%d associations)\n", t.Name, len(assocs))
				for _, a := range assocs {
					fmt.Fprintf(out, "      %s\n", a)
				}
			}
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "path to schema document")
}

// loadRegistry reads and validates a schema document.
func loadRegistry(path string) (*schema.Registry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, cli.SchemaParseError(fmt.Sprintf("schema not found: %s", path), nil)
	}

	doc, err := document.LoadSchema(path)
	if err != nil {
		return nil, cli.SchemaParseError("parsing schema", err)
	}
	reg, err := doc.Registry()
	if err != nil {
		return nil, cli.SchemaParseError("building schema", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, cli.SchemaParseError("validating schema", err)
	}

	logger.WithFields(logrus.Fields{
		"path":         path,
		"tables":       len(doc.Tables),
		"associations": len(doc.Associations),
	}).Debug("loaded schema")
	return reg, nil
}
