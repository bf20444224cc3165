// Command schema-generator writes the JSON Schema of traffisense.yml so
// editors can validate and complete configuration files.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/traffisense/core/config"
	"github.com/traffisense/core/logging"
)

func main() {
	out := flag.String("o", filepath.Join("schema", "definitions", "traffisense.schema.json"), "Output file")
	flag.Parse()

	log := logging.NewLogger("schema-generator")

	data, err := config.GenerateSchema()
	if err != nil {
		log.WithError(err).Fatal("Failed to generate schema")
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.WithError(err).Fatal("Failed to create schema directory")
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.WithError(err).WithField("path", *out).Fatal("Failed to write schema")
	}
	log.WithField("path", *out).Info("Schema written")
}
