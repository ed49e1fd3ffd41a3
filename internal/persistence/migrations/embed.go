// Package migrations embeds the goose SQL migration set into the binary so
// persistence.RunMigrations never depends on a filesystem layout at
// runtime, the same embed-and-point-goose-at-it idiom the teacher uses for
// its own migration set.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
