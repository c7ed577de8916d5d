package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary structs with YAML tags
	var yamlConfig struct {
		Devices     []DeviceYAML     `yaml:"devices"`
		Bands       []BandYAML       `yaml:"bands,omitempty"`
		Mining      MiningYAML       `yaml:"mining,omitempty"`
		EventLog    EventLogYAML     `yaml:"eventlog,omitempty"`
		Storage     StorageYAML      `yaml:"storage,omitempty"`
		Controllers []ControllerYAML `yaml:"controllers,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %v", y.filename, err)
	}

	// Convert to our internal format
	config := &ConfigData{
		Devices:     make([]DeviceData, len(yamlConfig.Devices)),
		Bands:       make([]BandData, len(yamlConfig.Bands)),
		Controllers: make([]ControllerData, len(yamlConfig.Controllers)),
	}

	for i, device := range yamlConfig.Devices {
		config.Devices[i] = DeviceData{
			Name:          device.Name,
			Type:          device.Type,
			SerialDevice:  device.SerialDevice,
			Baud:          device.Baud,
			PollInterval:  device.PollInterval,
			SampleTimeout: device.SampleTimeout,
			SimMinCM:      device.SimMinCM,
			SimMaxCM:      device.SimMaxCM,
		}
	}

	for i, band := range yamlConfig.Bands {
		config.Bands[i] = BandData{
			Name:          band.Name,
			Material:      band.Material,
			Lower:         HSVData{H: band.Lower.H, S: band.Lower.S, V: band.Lower.V},
			Upper:         HSVData{H: band.Upper.H, S: band.Upper.S, V: band.Upper.V},
			MinConfidence: band.MinConfidence,
		}
	}

	config.Mining = MiningData{
		DetectionDistanceCM: yamlConfig.Mining.DetectionDistanceCM,
	}
	config.EventLog = EventLogData{
		Path: yamlConfig.EventLog.Path,
	}

	config.Storage = StorageData{}
	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}

	for i, controller := range yamlConfig.Controllers {
		config.Controllers[i] = ControllerData{
			Type: controller.Type,
		}
		if controller.RESTServer != nil {
			config.Controllers[i].RESTServer = &RESTServerData{
				Cert:           controller.RESTServer.Cert,
				Key:            controller.RESTServer.Key,
				Port:           controller.RESTServer.Port,
				ListenAddr:     controller.RESTServer.ListenAddr,
				CORSOrigin:     controller.RESTServer.CORSOrigin,
				WSClientBuffer: controller.RESTServer.WSClientBuffer,
				WSSendTimeout:  controller.RESTServer.WSSendTimeout,
			}
		}
	}

	applyDefaults(config)
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

func (y *YAMLProvider) ensureLoaded() error {
	if y.config == nil {
		_, err := y.LoadConfig()
		return err
	}
	return nil
}

// GetDevices returns device configurations
func (y *YAMLProvider) GetDevices() ([]DeviceData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return y.config.Devices, nil
}

// GetBands returns the material band configurations
func (y *YAMLProvider) GetBands() ([]BandData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return y.config.Bands, nil
}

// GetMining returns the extraction decision parameters
func (y *YAMLProvider) GetMining() (*MiningData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return &y.config.Mining, nil
}

// GetEventLog returns the event log configuration
func (y *YAMLProvider) GetEventLog() (*EventLogData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return &y.config.EventLog, nil
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return &y.config.Storage, nil
}

// GetControllers returns controller configurations
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return y.config.Controllers, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with YAML tags for parsing the on-disk format
type DeviceYAML struct {
	Name          string  `yaml:"name"`
	Type          string  `yaml:"type,omitempty"`
	SerialDevice  string  `yaml:"serialdevice,omitempty"`
	Baud          int     `yaml:"baud,omitempty"`
	PollInterval  string  `yaml:"poll-interval,omitempty"`
	SampleTimeout string  `yaml:"sample-timeout,omitempty"`
	SimMinCM      float64 `yaml:"sim-min-cm,omitempty"`
	SimMaxCM      float64 `yaml:"sim-max-cm,omitempty"`
}

type HSVYAML struct {
	H float64 `yaml:"h"`
	S float64 `yaml:"s"`
	V float64 `yaml:"v"`
}

type BandYAML struct {
	Name          string  `yaml:"name"`
	Material      string  `yaml:"material"`
	Lower         HSVYAML `yaml:"lower"`
	Upper         HSVYAML `yaml:"upper"`
	MinConfidence float64 `yaml:"min-confidence,omitempty"`
}

type MiningYAML struct {
	DetectionDistanceCM float64 `yaml:"detection-distance-cm,omitempty"`
}

type EventLogYAML struct {
	Path string `yaml:"path,omitempty"`
}

type StorageYAML struct {
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type ControllerYAML struct {
	Type       string          `yaml:"type,omitempty"`
	RESTServer *RESTServerYAML `yaml:"rest,omitempty"`
}

type RESTServerYAML struct {
	Cert           string `yaml:"cert,omitempty"`
	Key            string `yaml:"key,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	ListenAddr     string `yaml:"listen-addr,omitempty"`
	CORSOrigin     string `yaml:"cors-origin,omitempty"`
	WSClientBuffer int    `yaml:"ws-client-buffer,omitempty"`
	WSSendTimeout  string `yaml:"ws-send-timeout,omitempty"`
}
