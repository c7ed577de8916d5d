package timescaledb

const createTableSQL = `
CREATE TABLE IF NOT EXISTS rover_events (
    time timestamp WITH TIME ZONE NOT NULL,
    distance_cm float8 NULL,
    material_detected boolean NOT NULL DEFAULT false,
    material_type text NULL,
    confidence float8 NULL,
    action text NOT NULL,
    within_range boolean NULL
);
CREATE INDEX IF NOT EXISTS rover_events_action_idx ON rover_events (action, time DESC);
`

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

const createHypertableSQL = `SELECT create_hypertable('rover_events', 'time', if_not_exists => true);`
