package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const fullConfigYAML = `
devices:
  - name: front
    type: maxsonar
    serialdevice: /dev/ttyUSB0
    baud: 57600
    poll-interval: 500ms
    sample-timeout: 250ms
  - name: sim
    type: simulated
    sim-min-cm: 3
    sim-max-cm: 30

bands:
  - name: gold_band
    material: gold
    lower:
      h: 20
      s: 100
      v: 100
    upper:
      h: 30
      s: 255
      v: 255
    min-confidence: 10

mining:
  detection-distance-cm: 12.5

eventlog:
  path: /var/lib/rover/events.jsonl

storage:
  timescaledb:
    connection-string: postgres://rover@db:5432/rover

controllers:
  - type: rest
    rest:
      port: 9090
      listen-addr: 127.0.0.1
      cors-origin: http://dash.local
      ws-client-buffer: 16
      ws-send-timeout: 5s
`

func TestYAMLProviderLoadsFullConfig(t *testing.T) {
	provider := NewYAMLProvider(writeConfigFile(t, fullConfigYAML))
	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(cfg.Devices))
	}
	front := cfg.Devices[0]
	if front.Name != "front" || front.Type != "maxsonar" || front.SerialDevice != "/dev/ttyUSB0" {
		t.Errorf("unexpected front device: %+v", front)
	}
	if front.Baud != 57600 || front.PollInterval != "500ms" || front.SampleTimeout != "250ms" {
		t.Errorf("front device settings did not parse: %+v", front)
	}
	sim := cfg.Devices[1]
	if sim.Type != "simulated" || sim.SimMinCM != 3 || sim.SimMaxCM != 30 {
		t.Errorf("unexpected sim device: %+v", sim)
	}

	if len(cfg.Bands) != 1 {
		t.Fatalf("expected 1 band, got %d", len(cfg.Bands))
	}
	band := cfg.Bands[0]
	if band.Name != "gold_band" || band.Material != "gold" {
		t.Errorf("unexpected band: %+v", band)
	}
	if band.Lower.H != 20 || band.Upper.S != 255 || band.MinConfidence != 10 {
		t.Errorf("band bounds did not parse: %+v", band)
	}

	if cfg.Mining.DetectionDistanceCM != 12.5 {
		t.Errorf("expected detection distance 12.5, got %v", cfg.Mining.DetectionDistanceCM)
	}
	if cfg.EventLog.Path != "/var/lib/rover/events.jsonl" {
		t.Errorf("unexpected event log path %q", cfg.EventLog.Path)
	}
	if cfg.Storage.TimescaleDB == nil || cfg.Storage.TimescaleDB.ConnectionString != "postgres://rover@db:5432/rover" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage.TimescaleDB)
	}

	if len(cfg.Controllers) != 1 {
		t.Fatalf("expected 1 controller, got %d", len(cfg.Controllers))
	}
	rest := cfg.Controllers[0].RESTServer
	if rest == nil {
		t.Fatal("expected a rest section")
	}
	if rest.Port != 9090 || rest.ListenAddr != "127.0.0.1" || rest.CORSOrigin != "http://dash.local" {
		t.Errorf("unexpected rest config: %+v", rest)
	}
	if rest.WSClientBuffer != 16 || rest.WSSendTimeout != "5s" {
		t.Errorf("websocket settings did not parse: %+v", rest)
	}
}

func TestYAMLProviderAppliesDefaults(t *testing.T) {
	provider := NewYAMLProvider(writeConfigFile(t, `
devices:
  - name: lone

controllers:
  - type: rest
    rest: {}
`))
	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	device := cfg.Devices[0]
	if device.Type != "simulated" {
		t.Errorf("expected default type simulated, got %q", device.Type)
	}
	if device.Baud != DefaultBaud || device.PollInterval != DefaultPollInterval || device.SampleTimeout != DefaultSampleTimeout {
		t.Errorf("device defaults not applied: %+v", device)
	}
	if device.SimMinCM != DefaultSimMinCM || device.SimMaxCM != DefaultSimMaxCM {
		t.Errorf("simulated range defaults not applied: %+v", device)
	}

	if len(cfg.Bands) != 3 {
		t.Fatalf("expected the 3 shipped bands, got %d", len(cfg.Bands))
	}
	for _, b := range cfg.Bands {
		if b.MinConfidence != DefaultMinConfidence {
			t.Errorf("band %q: expected min confidence %v, got %v", b.Name, DefaultMinConfidence, b.MinConfidence)
		}
	}

	if cfg.Mining.DetectionDistanceCM != DefaultDetectionDistanceCM {
		t.Errorf("expected default detection distance, got %v", cfg.Mining.DetectionDistanceCM)
	}
	if cfg.EventLog.Path != DefaultEventLogPath {
		t.Errorf("expected default event log path, got %q", cfg.EventLog.Path)
	}

	rest := cfg.Controllers[0].RESTServer
	if rest.WSClientBuffer != DefaultWSClientBuffer || rest.WSSendTimeout != DefaultWSSendTimeout {
		t.Errorf("websocket defaults not applied: %+v", rest)
	}
}

func TestYAMLProviderValidation(t *testing.T) {
	tests := []struct {
		name          string
		yaml          string
		expectedError string
	}{
		{
			"no devices",
			`bands: []`,
			"no devices configured",
		},
		{
			"duplicate device names",
			"devices:\n  - name: front\n  - name: front\n",
			"duplicate device name",
		},
		{
			"maxsonar without serial device",
			"devices:\n  - name: front\n    type: maxsonar\n",
			"requires serial_device",
		},
		{
			"unknown device type",
			"devices:\n  - name: front\n    type: lidar\n",
			"unknown type",
		},
		{
			"bad poll interval",
			"devices:\n  - name: front\n    poll-interval: often\n",
			"bad poll_interval",
		},
		{
			"inverted simulated range",
			"devices:\n  - name: front\n    sim-min-cm: 50\n    sim-max-cm: 5\n",
			"sim_min_cm exceeds sim_max_cm",
		},
		{
			"duplicate band names",
			"devices:\n  - name: front\nbands:\n" +
				"  - name: b\n    material: x\n    upper: {h: 10, s: 255, v: 255}\n" +
				"  - name: b\n    material: y\n    upper: {h: 10, s: 255, v: 255}\n",
			"duplicate band name",
		},
		{
			"inverted band bounds",
			"devices:\n  - name: front\nbands:\n" +
				"  - name: b\n    material: x\n    lower: {h: 0, s: 200, v: 0}\n    upper: {h: 10, s: 100, v: 255}\n",
			"lower S/V bound exceeds upper",
		},
		{
			"negative detection distance",
			"devices:\n  - name: front\nmining:\n  detection-distance-cm: -1\n",
			"must be non-negative",
		},
		{
			"unknown controller type",
			"devices:\n  - name: front\ncontrollers:\n  - type: grpc\n",
			"unknown controller type",
		},
		{
			"controller without rest section",
			"devices:\n  - name: front\ncontrollers:\n  - type: rest\n",
			"missing rest section",
		},
		{
			"bad websocket send timeout",
			"devices:\n  - name: front\ncontrollers:\n  - type: rest\n    rest:\n      ws-send-timeout: whenever\n",
			"bad ws_send_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewYAMLProvider(writeConfigFile(t, tt.yaml))
			_, err := provider.LoadConfig()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.expectedError) {
				t.Errorf("expected error containing %q, got %q", tt.expectedError, err.Error())
			}
		})
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	provider := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := provider.LoadConfig(); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestYAMLProviderUnparseableFile(t *testing.T) {
	provider := NewYAMLProvider(writeConfigFile(t, "devices: [unclosed"))
	if _, err := provider.LoadConfig(); err == nil {
		t.Error("expected a parse error")
	}
}

func TestYAMLProviderSectionGetters(t *testing.T) {
	provider := NewYAMLProvider(writeConfigFile(t, fullConfigYAML))

	// The getters lazy-load without an explicit LoadConfig call.
	devices, err := provider.GetDevices()
	if err != nil {
		t.Fatalf("GetDevices failed: %v", err)
	}
	if len(devices) != 2 {
		t.Errorf("expected 2 devices, got %d", len(devices))
	}

	mining, err := provider.GetMining()
	if err != nil {
		t.Fatalf("GetMining failed: %v", err)
	}
	if mining.DetectionDistanceCM != 12.5 {
		t.Errorf("expected detection distance 12.5, got %v", mining.DetectionDistanceCM)
	}

	if !provider.IsReadOnly() {
		t.Error("YAML providers are read-only")
	}
	if err := provider.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
