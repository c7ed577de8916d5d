package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func newTestSQLiteProvider(t *testing.T) *SQLiteProvider {
	t.Helper()
	provider, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("failed to open provider: %v", err)
	}
	t.Cleanup(func() { provider.Close() })
	if err := provider.CreateTables(); err != nil {
		t.Fatalf("failed to create tables: %v", err)
	}
	return provider
}

func sampleConfig() *ConfigData {
	return &ConfigData{
		Devices: []DeviceData{
			{Name: "front", Type: "maxsonar", SerialDevice: "/dev/ttyUSB0", Baud: 57600, PollInterval: "500ms", SampleTimeout: "250ms"},
			{Name: "sim", Type: "simulated", PollInterval: "2s", SampleTimeout: "1s", SimMinCM: 5, SimMaxCM: 50},
		},
		Bands:    DefaultBands(),
		Mining:   MiningData{DetectionDistanceCM: 12},
		EventLog: EventLogData{Path: "/var/lib/rover/events.jsonl"},
		Storage:  StorageData{TimescaleDB: &TimescaleDBData{ConnectionString: "postgres://rover@db:5432/rover"}},
		Controllers: []ControllerData{
			{Type: "rest", RESTServer: &RESTServerData{Port: 9090, ListenAddr: "127.0.0.1", WSClientBuffer: 16, WSSendTimeout: "2s"}},
		},
	}
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	provider := newTestSQLiteProvider(t)

	if err := provider.SaveConfig(sampleConfig()); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(loaded.Devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(loaded.Devices))
	}
	front := loaded.Devices[0]
	if front.Name != "front" || front.SerialDevice != "/dev/ttyUSB0" || front.Baud != 57600 {
		t.Errorf("unexpected front device: %+v", front)
	}
	if front.PollInterval != "500ms" || front.SampleTimeout != "250ms" {
		t.Errorf("front device timings did not survive: %+v", front)
	}

	if len(loaded.Bands) != 3 {
		t.Fatalf("expected 3 bands, got %d", len(loaded.Bands))
	}
	if loaded.Bands[0].Name != "red_band" || loaded.Bands[0].Material != "palladium" {
		t.Errorf("unexpected first band: %+v", loaded.Bands[0])
	}
	if loaded.Bands[0].Lower.S != 120 || loaded.Bands[0].Upper.H != 10 {
		t.Errorf("band bounds did not survive: %+v", loaded.Bands[0])
	}

	if loaded.Mining.DetectionDistanceCM != 12 {
		t.Errorf("expected detection distance 12, got %v", loaded.Mining.DetectionDistanceCM)
	}
	if loaded.EventLog.Path != "/var/lib/rover/events.jsonl" {
		t.Errorf("unexpected event log path %q", loaded.EventLog.Path)
	}
	if loaded.Storage.TimescaleDB == nil || loaded.Storage.TimescaleDB.ConnectionString != "postgres://rover@db:5432/rover" {
		t.Errorf("storage config did not survive: %+v", loaded.Storage.TimescaleDB)
	}

	if len(loaded.Controllers) != 1 {
		t.Fatalf("expected 1 controller, got %d", len(loaded.Controllers))
	}
	ctrl := loaded.Controllers[0]
	if ctrl.Type != "restserver" {
		t.Errorf("expected the canonical controller type, got %q", ctrl.Type)
	}
	if ctrl.RESTServer == nil || ctrl.RESTServer.Port != 9090 || ctrl.RESTServer.WSClientBuffer != 16 {
		t.Errorf("rest settings did not survive: %+v", ctrl.RESTServer)
	}
}

func TestSQLiteProviderBandOrderIsDeclarationOrder(t *testing.T) {
	provider := newTestSQLiteProvider(t)

	cfg := sampleConfig()
	// Names chosen so alphabetical order would flip them.
	cfg.Bands = []BandData{
		{Name: "z_band", Material: "zinc", Upper: HSVData{H: 10, S: 255, V: 255}, MinConfidence: 5},
		{Name: "a_band", Material: "aluminum", Upper: HSVData{H: 20, S: 255, V: 255}, MinConfidence: 5},
	}
	if err := provider.SaveConfig(cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	bands, err := provider.GetBands()
	if err != nil {
		t.Fatalf("failed to load bands: %v", err)
	}
	if len(bands) != 2 {
		t.Fatalf("expected 2 bands, got %d", len(bands))
	}
	if bands[0].Name != "z_band" || bands[1].Name != "a_band" {
		t.Errorf("bands must come back in declaration order, got [%s %s]", bands[0].Name, bands[1].Name)
	}
}

func TestSQLiteProviderSaveReplacesExisting(t *testing.T) {
	provider := newTestSQLiteProvider(t)

	if err := provider.SaveConfig(sampleConfig()); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	replacement := sampleConfig()
	replacement.Devices = []DeviceData{
		{Name: "rear", Type: "simulated", PollInterval: "2s", SampleTimeout: "1s", SimMinCM: 5, SimMaxCM: 50},
	}
	if err := provider.SaveConfig(replacement); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	devices, err := provider.GetDevices()
	if err != nil {
		t.Fatalf("failed to load devices: %v", err)
	}
	if len(devices) != 1 || devices[0].Name != "rear" {
		t.Errorf("expected only the replacement device, got %+v", devices)
	}
}

func TestSQLiteProviderCreateTablesIdempotent(t *testing.T) {
	provider := newTestSQLiteProvider(t)
	if err := provider.CreateTables(); err != nil {
		t.Errorf("second CreateTables must be a no-op, got %v", err)
	}
}

func TestSQLiteProviderEmptyDatabase(t *testing.T) {
	provider := newTestSQLiteProvider(t)

	_, err := provider.LoadConfig()
	if err == nil {
		t.Fatal("expected a validation error from an empty database")
	}
	if !strings.Contains(err.Error(), "no devices configured") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSQLiteProviderIsWritable(t *testing.T) {
	provider := newTestSQLiteProvider(t)
	if provider.IsReadOnly() {
		t.Error("SQLite providers accept writes")
	}
}
