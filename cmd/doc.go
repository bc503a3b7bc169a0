// Package cmd implements the command-line interface for todoagent.
//
// This package provides the following commands:
//   - serve: Start the HTTP API and MCP server (or an MCP stdio server)
//   - migrate: Apply the embedded database schema
//   - purge: Permanently remove soft-deleted rows
//   - generate-docs: Generate markdown documentation for the agent tools
//   - version: Display version information
//
// Flags take precedence over environment variables, which in turn may be
// seeded from a .env file.
package cmd
