// Package migrations embeds the DDL for the external time-series tables.
// The production store is a given resource; these are applied only by
// integration tests and local environments.
package migrations

import "embed"

// ClickhouseFS embeds all ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
