// Package main provides the relq CLI.
//
// The CLI supports:
//   - validate: Check a schema document and its associations
//   - compile: Print the SQL of the queries in a query document
//   - run: Execute one query against a database
//   - introspect: Write a schema document from a live database
//   - doctor: Check documents, queries and schema drift
//   - config show: Print the effective configuration
//
// Usage:
//
//	relq [flags] <command>
//
// Commands that need a database (run, introspect) read the connection from
// --db or the database section of relq.yaml. validate and compile only work
// with files.
package main

func main() {
	Execute()
}
