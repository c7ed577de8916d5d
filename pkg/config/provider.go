package config

import (
	"fmt"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetDevices() ([]DeviceData, error)
	GetBands() ([]BandData, error)
	GetMining() (*MiningData, error)
	GetEventLog() (*EventLogData, error)
	GetStorageConfig() (*StorageData, error)
	GetControllers() ([]ControllerData, error)

	// Configuration management (for SQLite-specific operations)
	IsReadOnly() bool
	Close() error
}

// Defaults applied by providers when a field is absent from the source.
const (
	DefaultBaud                = 9600
	DefaultPollInterval        = "2s"
	DefaultSampleTimeout       = "1s"
	DefaultDetectionDistanceCM = 15.0
	DefaultMinConfidence       = 5.0
	DefaultEventLogPath        = "rover_events.jsonl"
	DefaultWSClientBuffer      = 32
	DefaultWSSendTimeout       = "2s"
	DefaultSimMinCM            = 5.0
	DefaultSimMaxCM            = 50.0
)

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Devices     []DeviceData     `json:"devices"`
	Bands       []BandData       `json:"bands,omitempty"`
	Mining      MiningData       `json:"mining,omitempty"`
	EventLog    EventLogData     `json:"eventlog,omitempty"`
	Storage     StorageData      `json:"storage,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty"`
}

// DeviceData holds configuration for one distance probe. Type selects the
// implementation: "maxsonar" reads a MaxBotix HRXL over serial, "simulated"
// produces a random walk without hardware.
type DeviceData struct {
	Name          string  `json:"name"`
	Type          string  `json:"type,omitempty"`
	SerialDevice  string  `json:"serial_device,omitempty"`
	Baud          int     `json:"baud,omitempty"`
	PollInterval  string  `json:"poll_interval,omitempty"`
	SampleTimeout string  `json:"sample_timeout,omitempty"`
	SimMinCM      float64 `json:"sim_min_cm,omitempty"`
	SimMaxCM      float64 `json:"sim_max_cm,omitempty"`
}

// HSVData is one OpenCV-scaled HSV bound: H in [0,180], S and V in [0,255].
type HSVData struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// BandData holds one material color band. A band whose lower hue exceeds its
// upper hue wraps around the hue origin (red straddles 180/0).
type BandData struct {
	Name          string  `json:"name"`
	Material      string  `json:"material"`
	Lower         HSVData `json:"lower"`
	Upper         HSVData `json:"upper"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
}

// MiningData holds the extraction decision parameters.
type MiningData struct {
	DetectionDistanceCM float64 `json:"detection_distance_cm,omitempty"`
}

// EventLogData holds the append-only event log location.
type EventLogData struct {
	Path string `json:"path,omitempty"`
}

// StorageData holds the configuration for optional storage backends
type StorageData struct {
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// ControllerData holds the configuration for various controller backends
type ControllerData struct {
	Type       string          `json:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty"`
}

type RESTServerData struct {
	Cert           string `json:"cert,omitempty"`
	Key            string `json:"key,omitempty"`
	Port           int    `json:"port,omitempty"`
	ListenAddr     string `json:"listen_addr,omitempty"`
	CORSOrigin     string `json:"cors_origin,omitempty"`
	WSClientBuffer int    `json:"ws_client_buffer,omitempty"`
	WSSendTimeout  string `json:"ws_send_timeout,omitempty"`
}

// DefaultBands returns the calibrated band set the rover ships with. Bounds
// are OpenCV-scaled HSV from field calibration against sample ore.
func DefaultBands() []BandData {
	return []BandData{
		{
			Name:          "red_band",
			Material:      "palladium",
			Lower:         HSVData{H: 0, S: 120, V: 70},
			Upper:         HSVData{H: 10, S: 255, V: 255},
			MinConfidence: DefaultMinConfidence,
		},
		{
			Name:          "brown_band",
			Material:      "dirt",
			Lower:         HSVData{H: 10, S: 50, V: 20},
			Upper:         HSVData{H: 20, S: 255, V: 200},
			MinConfidence: DefaultMinConfidence,
		},
		{
			Name:          "green_band",
			Material:      "copper",
			Lower:         HSVData{H: 40, S: 40, V: 40},
			Upper:         HSVData{H: 80, S: 255, V: 255},
			MinConfidence: DefaultMinConfidence,
		},
	}
}

// applyDefaults fills absent fields in place. Providers call it after
// loading so consumers never re-derive defaults.
func applyDefaults(c *ConfigData) {
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Type == "" {
			d.Type = "simulated"
		}
		if d.Baud == 0 {
			d.Baud = DefaultBaud
		}
		if d.PollInterval == "" {
			d.PollInterval = DefaultPollInterval
		}
		if d.SampleTimeout == "" {
			d.SampleTimeout = DefaultSampleTimeout
		}
		if d.Type == "simulated" && d.SimMinCM == 0 && d.SimMaxCM == 0 {
			d.SimMinCM = DefaultSimMinCM
			d.SimMaxCM = DefaultSimMaxCM
		}
	}
	if len(c.Bands) == 0 {
		c.Bands = DefaultBands()
	}
	for i := range c.Bands {
		if c.Bands[i].MinConfidence == 0 {
			c.Bands[i].MinConfidence = DefaultMinConfidence
		}
	}
	if c.Mining.DetectionDistanceCM == 0 {
		c.Mining.DetectionDistanceCM = DefaultDetectionDistanceCM
	}
	if c.EventLog.Path == "" {
		c.EventLog.Path = DefaultEventLogPath
	}
	for i := range c.Controllers {
		rest := c.Controllers[i].RESTServer
		if rest == nil {
			continue
		}
		if rest.WSClientBuffer == 0 {
			rest.WSClientBuffer = DefaultWSClientBuffer
		}
		if rest.WSSendTimeout == "" {
			rest.WSSendTimeout = DefaultWSSendTimeout
		}
	}
}

// validate rejects configurations the daemon cannot run with.
func validate(c *ConfigData) error {
	if len(c.Devices) == 0 {
		return fmt.Errorf("no devices configured; at least one distance probe is required")
	}
	seenDevice := make(map[string]bool)
	for _, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("device with empty name")
		}
		if seenDevice[d.Name] {
			return fmt.Errorf("duplicate device name %q", d.Name)
		}
		seenDevice[d.Name] = true
		switch d.Type {
		case "maxsonar":
			if d.SerialDevice == "" {
				return fmt.Errorf("device %q: maxsonar requires serial_device", d.Name)
			}
		case "simulated":
			if d.SimMinCM > d.SimMaxCM {
				return fmt.Errorf("device %q: sim_min_cm exceeds sim_max_cm", d.Name)
			}
		default:
			return fmt.Errorf("device %q: unknown type %q", d.Name, d.Type)
		}
		if _, err := time.ParseDuration(d.PollInterval); err != nil {
			return fmt.Errorf("device %q: bad poll_interval: %v", d.Name, err)
		}
		if _, err := time.ParseDuration(d.SampleTimeout); err != nil {
			return fmt.Errorf("device %q: bad sample_timeout: %v", d.Name, err)
		}
	}
	seenBand := make(map[string]bool)
	for _, b := range c.Bands {
		if b.Name == "" {
			return fmt.Errorf("band with empty name")
		}
		if seenBand[b.Name] {
			return fmt.Errorf("duplicate band name %q", b.Name)
		}
		seenBand[b.Name] = true
		if b.Lower.S > b.Upper.S || b.Lower.V > b.Upper.V {
			return fmt.Errorf("band %q: lower S/V bound exceeds upper", b.Name)
		}
	}
	if c.Mining.DetectionDistanceCM < 0 {
		return fmt.Errorf("mining.detection_distance_cm must be non-negative")
	}
	for _, ctrl := range c.Controllers {
		if ctrl.Type != "restserver" && ctrl.Type != "rest" {
			return fmt.Errorf("unknown controller type %q", ctrl.Type)
		}
		if ctrl.RESTServer == nil {
			return fmt.Errorf("restserver controller missing rest section")
		}
		if _, err := time.ParseDuration(ctrl.RESTServer.WSSendTimeout); err != nil {
			return fmt.Errorf("restserver: bad ws_send_timeout: %v", err)
		}
	}
	return nil
}
