package config

import (
	"database/sql"
	"fmt"

	"github.com/chrissnell/remoterover/pkg/migrate"
	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// CreateTables migrates the configuration schema to the current version.
// Used by config-convert when building a fresh database and safe to call on
// an existing one.
func (s *SQLiteProvider) CreateTables() error {
	migrator := migrate.New(s.db, "schema_migrations", schemaMigrations)
	if err := migrator.MigrateUp(); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	devices, err := s.GetDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to load devices: %w", err)
	}
	config.Devices = devices

	bands, err := s.GetBands()
	if err != nil {
		return nil, fmt.Errorf("failed to load bands: %w", err)
	}
	config.Bands = bands

	mining, err := s.GetMining()
	if err != nil {
		return nil, fmt.Errorf("failed to load mining config: %w", err)
	}
	config.Mining = *mining

	eventLog, err := s.GetEventLog()
	if err != nil {
		return nil, fmt.Errorf("failed to load event log config: %w", err)
	}
	config.EventLog = *eventLog

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	controllers, err := s.GetControllers()
	if err != nil {
		return nil, fmt.Errorf("failed to load controllers: %w", err)
	}
	config.Controllers = controllers

	applyDefaults(config)
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", s.dbPath, err)
	}

	return config, nil
}

// GetDevices returns device configurations from the database
func (s *SQLiteProvider) GetDevices() ([]DeviceData, error) {
	query := `
		SELECT name, type, serial_device, baud, poll_interval, sample_timeout,
		       sim_min_cm, sim_max_cm
		FROM devices
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
		ORDER BY name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []DeviceData
	for rows.Next() {
		var device DeviceData
		var serialDevice, pollInterval, sampleTimeout sql.NullString
		var baud sql.NullInt64
		var simMin, simMax sql.NullFloat64

		err := rows.Scan(
			&device.Name, &device.Type, &serialDevice, &baud,
			&pollInterval, &sampleTimeout, &simMin, &simMax,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}

		if serialDevice.Valid {
			device.SerialDevice = serialDevice.String
		}
		if baud.Valid {
			device.Baud = int(baud.Int64)
		}
		if pollInterval.Valid {
			device.PollInterval = pollInterval.String
		}
		if sampleTimeout.Valid {
			device.SampleTimeout = sampleTimeout.String
		}
		if simMin.Valid {
			device.SimMinCM = simMin.Float64
		}
		if simMax.Valid {
			device.SimMaxCM = simMax.Float64
		}

		devices = append(devices, device)
	}

	return devices, rows.Err()
}

// GetBands returns the material bands in declaration order. Position is
// semantic: ties during classification resolve to the lowest position.
func (s *SQLiteProvider) GetBands() ([]BandData, error) {
	query := `
		SELECT name, material, lower_h, lower_s, lower_v,
		       upper_h, upper_s, upper_v, min_confidence
		FROM bands
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
		ORDER BY position
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query bands: %w", err)
	}
	defer rows.Close()

	var bands []BandData
	for rows.Next() {
		var band BandData
		var minConfidence sql.NullFloat64

		err := rows.Scan(
			&band.Name, &band.Material,
			&band.Lower.H, &band.Lower.S, &band.Lower.V,
			&band.Upper.H, &band.Upper.S, &band.Upper.V,
			&minConfidence,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan band row: %w", err)
		}

		if minConfidence.Valid {
			band.MinConfidence = minConfidence.Float64
		}

		bands = append(bands, band)
	}

	return bands, rows.Err()
}

// GetMining returns the extraction decision parameters
func (s *SQLiteProvider) GetMining() (*MiningData, error) {
	query := `
		SELECT detection_distance_cm
		FROM mining_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	mining := &MiningData{}
	var distance sql.NullFloat64
	err := s.db.QueryRow(query).Scan(&distance)
	switch {
	case err == sql.ErrNoRows:
		return mining, nil
	case err != nil:
		return nil, fmt.Errorf("failed to query mining config: %w", err)
	}

	if distance.Valid {
		mining.DetectionDistanceCM = distance.Float64
	}
	return mining, nil
}

// GetEventLog returns the event log configuration
func (s *SQLiteProvider) GetEventLog() (*EventLogData, error) {
	query := `
		SELECT path
		FROM eventlog_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	eventLog := &EventLogData{}
	var path sql.NullString
	err := s.db.QueryRow(query).Scan(&path)
	switch {
	case err == sql.ErrNoRows:
		return eventLog, nil
	case err != nil:
		return nil, fmt.Errorf("failed to query event log config: %w", err)
	}

	if path.Valid {
		eventLog.Path = path.String
	}
	return eventLog, nil
}

// GetStorageConfig returns storage configuration from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	query := `
		SELECT backend_type, timescale_connection_string
		FROM storage_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default') AND enabled = 1
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage configs: %w", err)
	}
	defer rows.Close()

	storage := &StorageData{}
	for rows.Next() {
		var backendType string
		var timescaleConn sql.NullString

		if err := rows.Scan(&backendType, &timescaleConn); err != nil {
			return nil, fmt.Errorf("failed to scan storage row: %w", err)
		}

		switch backendType {
		case "timescaledb":
			if timescaleConn.Valid {
				storage.TimescaleDB = &TimescaleDBData{
					ConnectionString: timescaleConn.String,
				}
			}
		}
	}

	return storage, rows.Err()
}

// GetControllers returns controller configurations from the database
func (s *SQLiteProvider) GetControllers() ([]ControllerData, error) {
	query := `
		SELECT type, rest_cert, rest_key, rest_port, rest_listen_addr,
		       rest_cors_origin, rest_ws_client_buffer, rest_ws_send_timeout
		FROM controllers
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query controllers: %w", err)
	}
	defer rows.Close()

	var controllers []ControllerData
	for rows.Next() {
		var controller ControllerData
		var cert, key, listenAddr, corsOrigin, sendTimeout sql.NullString
		var port, clientBuffer sql.NullInt64

		err := rows.Scan(
			&controller.Type, &cert, &key, &port, &listenAddr,
			&corsOrigin, &clientBuffer, &sendTimeout,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan controller row: %w", err)
		}

		if controller.Type == "restserver" {
			rest := &RESTServerData{}
			if cert.Valid {
				rest.Cert = cert.String
			}
			if key.Valid {
				rest.Key = key.String
			}
			if port.Valid {
				rest.Port = int(port.Int64)
			}
			if listenAddr.Valid {
				rest.ListenAddr = listenAddr.String
			}
			if corsOrigin.Valid {
				rest.CORSOrigin = corsOrigin.String
			}
			if clientBuffer.Valid {
				rest.WSClientBuffer = int(clientBuffer.Int64)
			}
			if sendTimeout.Valid {
				rest.WSSendTimeout = sendTimeout.String
			}
			controller.RESTServer = rest
		}

		controllers = append(controllers, controller)
	}

	return controllers, rows.Err()
}

// SaveConfig writes a complete configuration into the database under the
// 'default' config name. Existing rows for that config are replaced.
func (s *SQLiteProvider) SaveConfig(config *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO configs (name) VALUES ('default')`); err != nil {
		return fmt.Errorf("failed to create default config: %w", err)
	}

	var configID int64
	if err := tx.QueryRow(`SELECT id FROM configs WHERE name = 'default'`).Scan(&configID); err != nil {
		return fmt.Errorf("failed to resolve config id: %w", err)
	}

	for _, table := range []string{"devices", "bands", "mining_configs", "eventlog_configs", "storage_configs", "controllers"} {
		if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE config_id = ?`, table), configID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, d := range config.Devices {
		_, err := tx.Exec(`
			INSERT INTO devices (config_id, name, type, serial_device, baud,
			                     poll_interval, sample_timeout, sim_min_cm, sim_max_cm)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			configID, d.Name, d.Type, d.SerialDevice, d.Baud,
			d.PollInterval, d.SampleTimeout, d.SimMinCM, d.SimMaxCM)
		if err != nil {
			return fmt.Errorf("failed to insert device %q: %w", d.Name, err)
		}
	}

	for i, b := range config.Bands {
		_, err := tx.Exec(`
			INSERT INTO bands (config_id, position, name, material,
			                   lower_h, lower_s, lower_v, upper_h, upper_s, upper_v,
			                   min_confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			configID, i, b.Name, b.Material,
			b.Lower.H, b.Lower.S, b.Lower.V, b.Upper.H, b.Upper.S, b.Upper.V,
			b.MinConfidence)
		if err != nil {
			return fmt.Errorf("failed to insert band %q: %w", b.Name, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO mining_configs (config_id, detection_distance_cm) VALUES (?, ?)`,
		configID, config.Mining.DetectionDistanceCM); err != nil {
		return fmt.Errorf("failed to insert mining config: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO eventlog_configs (config_id, path) VALUES (?, ?)`,
		configID, config.EventLog.Path); err != nil {
		return fmt.Errorf("failed to insert event log config: %w", err)
	}

	if config.Storage.TimescaleDB != nil {
		_, err := tx.Exec(`
			INSERT INTO storage_configs (config_id, backend_type, enabled, timescale_connection_string)
			VALUES (?, 'timescaledb', 1, ?)`,
			configID, config.Storage.TimescaleDB.ConnectionString)
		if err != nil {
			return fmt.Errorf("failed to insert storage config: %w", err)
		}
	}

	for _, c := range config.Controllers {
		if c.RESTServer == nil {
			continue
		}
		// The YAML surface accepts "rest" as shorthand; the database stores
		// the canonical type.
		controllerType := c.Type
		if controllerType == "rest" {
			controllerType = "restserver"
		}
		_, err := tx.Exec(`
			INSERT INTO controllers (config_id, type, rest_cert, rest_key, rest_port,
			                         rest_listen_addr, rest_cors_origin,
			                         rest_ws_client_buffer, rest_ws_send_timeout)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			configID, controllerType, c.RESTServer.Cert, c.RESTServer.Key, c.RESTServer.Port,
			c.RESTServer.ListenAddr, c.RESTServer.CORSOrigin,
			c.RESTServer.WSClientBuffer, c.RESTServer.WSSendTimeout)
		if err != nil {
			return fmt.Errorf("failed to insert controller: %w", err)
		}
	}

	return tx.Commit()
}

// IsReadOnly returns false since SQLite configurations can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
