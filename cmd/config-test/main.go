package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/chrissnell/remoterover/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	// Load YAML configuration
	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	yamlConfig, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	// Load SQLite configuration
	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	// Compare configurations
	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	// Compare devices by name; SQLite returns them alphabetically while
	// YAML keeps file order.
	fmt.Printf("Devices - YAML: %d, SQLite: %d\n", len(yamlConfig.Devices), len(sqliteConfig.Devices))
	if len(yamlConfig.Devices) == len(sqliteConfig.Devices) {
		fmt.Println("✓ Device count matches")
		sqliteDevices := make(map[string]config.DeviceData)
		for _, d := range sqliteConfig.Devices {
			sqliteDevices[d.Name] = d
		}
		for _, yamlDevice := range yamlConfig.Devices {
			sqliteDevice, ok := sqliteDevices[yamlDevice.Name]
			if !ok {
				fmt.Printf("✗ Device %s missing from SQLite\n", yamlDevice.Name)
				continue
			}
			if compareDevices(yamlDevice, sqliteDevice) {
				fmt.Printf("✓ Device %s matches\n", yamlDevice.Name)
			} else {
				fmt.Printf("✗ Device %s differs\n", yamlDevice.Name)
				printDeviceDiff(yamlDevice, sqliteDevice)
			}
		}
	} else {
		fmt.Println("✗ Device count mismatch")
	}

	// Compare bands; position is semantic so order must match exactly
	fmt.Printf("\nBands - YAML: %d, SQLite: %d\n", len(yamlConfig.Bands), len(sqliteConfig.Bands))
	if len(yamlConfig.Bands) == len(sqliteConfig.Bands) {
		fmt.Println("✓ Band count matches")
		for i, yamlBand := range yamlConfig.Bands {
			sqliteBand := sqliteConfig.Bands[i]
			if compareBands(yamlBand, sqliteBand) {
				fmt.Printf("✓ Band %s matches\n", yamlBand.Name)
			} else {
				fmt.Printf("✗ Band %s differs (position %d)\n", yamlBand.Name, i)
			}
		}
	} else {
		fmt.Println("✗ Band count mismatch")
	}

	// Compare mining parameters
	fmt.Println("\nMining Configuration:")
	if yamlConfig.Mining.DetectionDistanceCM == sqliteConfig.Mining.DetectionDistanceCM {
		fmt.Printf("✓ Detection distance matches (%.1f cm)\n", yamlConfig.Mining.DetectionDistanceCM)
	} else {
		fmt.Printf("✗ Detection distance: YAML=%.1f, SQLite=%.1f\n",
			yamlConfig.Mining.DetectionDistanceCM, sqliteConfig.Mining.DetectionDistanceCM)
	}

	// Compare event log
	fmt.Println("\nEvent Log Configuration:")
	if yamlConfig.EventLog.Path == sqliteConfig.EventLog.Path {
		fmt.Printf("✓ Event log path matches (%s)\n", yamlConfig.EventLog.Path)
	} else {
		fmt.Printf("✗ Event log path: YAML='%s', SQLite='%s'\n",
			yamlConfig.EventLog.Path, sqliteConfig.EventLog.Path)
	}

	// Compare storage
	fmt.Println("\nStorage Configuration:")
	compareStorage(yamlConfig.Storage, sqliteConfig.Storage)

	// Compare controllers
	fmt.Printf("\nControllers - YAML: %d, SQLite: %d\n", len(yamlConfig.Controllers), len(sqliteConfig.Controllers))
	if len(yamlConfig.Controllers) == len(sqliteConfig.Controllers) {
		fmt.Println("✓ Controller count matches")
		for i, yamlController := range yamlConfig.Controllers {
			sqliteController := sqliteConfig.Controllers[i]
			if compareControllers(yamlController, sqliteController) {
				fmt.Printf("✓ Controller %s matches\n", canonicalType(yamlController.Type))
			} else {
				fmt.Printf("✗ Controller %s differs\n", canonicalType(yamlController.Type))
			}
		}
	} else {
		fmt.Println("✗ Controller count mismatch")
	}

	fmt.Println("\nTest completed!")
}

func compareDevices(yaml, sqlite config.DeviceData) bool {
	return yaml.Name == sqlite.Name &&
		yaml.Type == sqlite.Type &&
		yaml.SerialDevice == sqlite.SerialDevice &&
		yaml.Baud == sqlite.Baud &&
		yaml.PollInterval == sqlite.PollInterval &&
		yaml.SampleTimeout == sqlite.SampleTimeout &&
		abs(yaml.SimMinCM-sqlite.SimMinCM) < 0.000001 &&
		abs(yaml.SimMaxCM-sqlite.SimMaxCM) < 0.000001
}

func compareBands(yaml, sqlite config.BandData) bool {
	return yaml.Name == sqlite.Name &&
		yaml.Material == sqlite.Material &&
		compareHSV(yaml.Lower, sqlite.Lower) &&
		compareHSV(yaml.Upper, sqlite.Upper) &&
		abs(yaml.MinConfidence-sqlite.MinConfidence) < 0.000001
}

func compareHSV(yaml, sqlite config.HSVData) bool {
	tolerance := 0.000001
	return abs(yaml.H-sqlite.H) < tolerance &&
		abs(yaml.S-sqlite.S) < tolerance &&
		abs(yaml.V-sqlite.V) < tolerance
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func printDeviceDiff(yaml, sqlite config.DeviceData) {
	if yaml.Type != sqlite.Type {
		fmt.Printf("  Type: YAML='%s', SQLite='%s'\n", yaml.Type, sqlite.Type)
	}
	if yaml.SerialDevice != sqlite.SerialDevice {
		fmt.Printf("  SerialDevice: YAML='%s', SQLite='%s'\n", yaml.SerialDevice, sqlite.SerialDevice)
	}
	if yaml.Baud != sqlite.Baud {
		fmt.Printf("  Baud: YAML=%d, SQLite=%d\n", yaml.Baud, sqlite.Baud)
	}
	if yaml.PollInterval != sqlite.PollInterval {
		fmt.Printf("  PollInterval: YAML='%s', SQLite='%s'\n", yaml.PollInterval, sqlite.PollInterval)
	}
	if yaml.SampleTimeout != sqlite.SampleTimeout {
		fmt.Printf("  SampleTimeout: YAML='%s', SQLite='%s'\n", yaml.SampleTimeout, sqlite.SampleTimeout)
	}
}

func compareStorage(yaml, sqlite config.StorageData) {
	if (yaml.TimescaleDB == nil) != (sqlite.TimescaleDB == nil) {
		fmt.Println("✗ TimescaleDB configuration presence mismatch")
	} else if yaml.TimescaleDB != nil && sqlite.TimescaleDB != nil {
		if reflect.DeepEqual(*yaml.TimescaleDB, *sqlite.TimescaleDB) {
			fmt.Println("✓ TimescaleDB configuration matches")
		} else {
			fmt.Println("✗ TimescaleDB configuration differs")
		}
	} else {
		fmt.Println("✓ TimescaleDB: both nil")
	}
}

func compareControllers(yaml, sqlite config.ControllerData) bool {
	// The database stores the canonical type; the YAML may use shorthand.
	if canonicalType(yaml.Type) != canonicalType(sqlite.Type) {
		return false
	}

	if (yaml.RESTServer == nil) != (sqlite.RESTServer == nil) {
		return false
	}
	if yaml.RESTServer != nil && !reflect.DeepEqual(*yaml.RESTServer, *sqlite.RESTServer) {
		return false
	}

	return true
}

func canonicalType(t string) string {
	if t == "rest" {
		return "restserver"
	}
	return t
}
