package migrations

import "embed"

// PostgresFS holds the snapshot-table migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the swap-archive migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
