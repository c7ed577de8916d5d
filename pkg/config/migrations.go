package config

import "github.com/chrissnell/remoterover/pkg/migrate"

// schemaMigrations is the configuration schema history. New schema changes
// append a new version; existing entries never change once released.
var schemaMigrations = []migrate.Migration{
	{
		Version: 1,
		Name:    "initial rover config schema",
		Up: `
CREATE TABLE IF NOT EXISTS configs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS devices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	config_id INTEGER NOT NULL REFERENCES configs(id),
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	serial_device TEXT,
	baud INTEGER,
	poll_interval TEXT,
	sample_timeout TEXT,
	sim_min_cm REAL,
	sim_max_cm REAL
);

CREATE TABLE IF NOT EXISTS bands (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	config_id INTEGER NOT NULL REFERENCES configs(id),
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	material TEXT NOT NULL,
	lower_h REAL NOT NULL,
	lower_s REAL NOT NULL,
	lower_v REAL NOT NULL,
	upper_h REAL NOT NULL,
	upper_s REAL NOT NULL,
	upper_v REAL NOT NULL,
	min_confidence REAL
);

CREATE TABLE IF NOT EXISTS mining_configs (
	config_id INTEGER NOT NULL REFERENCES configs(id),
	detection_distance_cm REAL
);

CREATE TABLE IF NOT EXISTS eventlog_configs (
	config_id INTEGER NOT NULL REFERENCES configs(id),
	path TEXT
);

CREATE TABLE IF NOT EXISTS storage_configs (
	config_id INTEGER NOT NULL REFERENCES configs(id),
	backend_type TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	timescale_connection_string TEXT
);

CREATE TABLE IF NOT EXISTS controllers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	config_id INTEGER NOT NULL REFERENCES configs(id),
	type TEXT NOT NULL,
	rest_cert TEXT,
	rest_key TEXT,
	rest_port INTEGER,
	rest_listen_addr TEXT,
	rest_cors_origin TEXT,
	rest_ws_client_buffer INTEGER,
	rest_ws_send_timeout TEXT
);
`,
		Down: `
DROP TABLE IF EXISTS controllers;
DROP TABLE IF EXISTS storage_configs;
DROP TABLE IF EXISTS eventlog_configs;
DROP TABLE IF EXISTS mining_configs;
DROP TABLE IF EXISTS bands;
DROP TABLE IF EXISTS devices;
DROP TABLE IF EXISTS configs;
`,
	},
}

// SchemaMigrations returns a copy of the configuration schema history for
// tooling that migrates outside the daemon.
func SchemaMigrations() []migrate.Migration {
	return append([]migrate.Migration(nil), schemaMigrations...)
}
