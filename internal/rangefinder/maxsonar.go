package rangefinder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chrissnell/remoterover/internal/types"
	"github.com/chrissnell/remoterover/pkg/config"
	serial "github.com/tarm/goserial"
	"go.uber.org/zap"
)

const (
	// Readings outside this window are echo noise from the transducer and
	// are discarded before they reach a sampler.
	minValidCM = 2.0
	maxValidCM = 400.0

	serialRetryInterval = 10 * time.Second
)

// MaxSonarProbe reads a MaxBotix HRXL-series ultrasonic rangefinder over
// serial. The sensor free-runs, emitting "R####\r" millimeter frames several
// times a second; a background reader owns the port and keeps only the
// newest parsed value, so Sample never waits on hardware directly.
type MaxSonarProbe struct {
	ctx    context.Context
	wg     *sync.WaitGroup
	config config.DeviceData
	logger *zap.SugaredLogger

	detectionDistanceCM float64
	sampleTimeout       time.Duration

	rwc          io.ReadWriteCloser
	frames       chan float64
	connecting   bool
	connectingMu sync.RWMutex
	connected    bool
	connectedMu  sync.RWMutex
}

// NewMaxSonarProbe creates a probe for one serial rangefinder.
func NewMaxSonarProbe(ctx context.Context, wg *sync.WaitGroup, deviceConfig config.DeviceData, detectionDistanceCM float64, logger *zap.SugaredLogger) (*MaxSonarProbe, error) {
	if deviceConfig.SerialDevice == "" {
		return nil, fmt.Errorf("maxsonar probe [%s] must define a serial device", deviceConfig.Name)
	}

	sampleTimeout, err := time.ParseDuration(deviceConfig.SampleTimeout)
	if err != nil {
		return nil, fmt.Errorf("maxsonar probe [%s]: bad sample timeout: %w", deviceConfig.Name, err)
	}

	return &MaxSonarProbe{
		ctx:                 ctx,
		wg:                  wg,
		config:              deviceConfig,
		logger:              logger,
		detectionDistanceCM: detectionDistanceCM,
		sampleTimeout:       sampleTimeout,
		frames:              make(chan float64, 1),
	}, nil
}

func (p *MaxSonarProbe) ProbeName() string {
	return p.config.Name
}

// Start launches the serial reader goroutine. The initial connect happens
// inside the reader so a missing device delays readings, not startup.
func (p *MaxSonarProbe) Start() error {
	p.logger.Infof("starting maxsonar probe [%v] on %v", p.config.Name, p.config.SerialDevice)
	p.wg.Add(1)
	go p.readFrames()
	return nil
}

// Stop closes the serial port, which unblocks the reader goroutine.
func (p *MaxSonarProbe) Stop() {
	p.connectedMu.Lock()
	defer p.connectedMu.Unlock()
	if p.connected && p.rwc != nil {
		p.rwc.Close()
		p.connected = false
	}
}

// Sample waits up to the sample timeout for the next frame from the reader.
// Timeouts and cancellation produce a nil-distance reading; the sampling
// loop records those as failed ticks rather than fabricating a value.
func (p *MaxSonarProbe) Sample(ctx context.Context) types.DistanceReading {
	reading := types.DistanceReading{StationName: p.config.Name}

	select {
	case <-ctx.Done():
	case cm := <-p.frames:
		reading.DistanceCM = types.FloatPtr(cm)
		reading.WithinRange = cm <= p.detectionDistanceCM
	case <-time.After(p.sampleTimeout):
		p.logger.Debugf("maxsonar probe [%v]: no frame within %v", p.config.Name, p.sampleTimeout)
	}

	reading.Timestamp = time.Now()
	return reading
}

// readFrames owns the serial port: it connects, parses range frames, and
// republishes the newest value until the context is canceled.
func (p *MaxSonarProbe) readFrames() {
	defer p.wg.Done()

	p.connectToSerialDevice()
	if !p.isConnected() {
		// Cancellation arrived before the port ever opened.
		return
	}

	scanner := bufio.NewScanner(p.rwc)
	scanner.Split(scanCarriageReturn)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Info("cancellation request received, closing maxsonar reader")
			p.Stop()
			return
		default:
		}

		if !scanner.Scan() {
			if p.ctx.Err() != nil {
				return
			}
			p.logger.Errorf("maxsonar probe [%v]: read error: %v, reconnecting", p.config.Name, scanner.Err())
			p.Stop()
			p.connectToSerialDevice()
			if !p.isConnected() {
				return
			}
			scanner = bufio.NewScanner(p.rwc)
			scanner.Split(scanCarriageReturn)
			continue
		}

		cm, ok := parseMaxSonarFrame(scanner.Text())
		if !ok {
			continue
		}
		p.publish(cm)
	}
}

// publish replaces any waiting frame with the newest one. The reader is the
// only producer so the drain-then-send cannot race.
func (p *MaxSonarProbe) publish(cm float64) {
	select {
	case p.frames <- cm:
	default:
		select {
		case <-p.frames:
		default:
		}
		p.frames <- cm
	}
}

func (p *MaxSonarProbe) isConnected() bool {
	p.connectedMu.RLock()
	defer p.connectedMu.RUnlock()
	return p.connected
}

// connectToSerialDevice opens the serial port, retrying until it succeeds
// or the context is canceled.
func (p *MaxSonarProbe) connectToSerialDevice() {
	p.connectingMu.RLock()
	if p.connecting {
		p.connectingMu.RUnlock()
		p.logger.Info("skipping reconnect since a connection attempt is already in progress")
		return
	}
	p.connectingMu.RUnlock()

	p.connectingMu.Lock()
	p.connecting = true
	p.connectingMu.Unlock()

	defer func() {
		p.connectingMu.Lock()
		p.connecting = false
		p.connectingMu.Unlock()
	}()

	for {
		sc := &serial.Config{Name: p.config.SerialDevice, Baud: p.config.Baud}
		p.logger.Debugf("attempting to open serial port %s at %d baud", p.config.SerialDevice, p.config.Baud)
		rwc, err := serial.OpenPort(sc)
		if err == nil {
			p.connectedMu.Lock()
			p.rwc = rwc
			p.connected = true
			p.connectedMu.Unlock()
			p.logger.Infof("maxsonar probe [%v] connected to %v", p.config.Name, p.config.SerialDevice)
			return
		}

		p.logger.Errorf("failed to open serial port %s: %v", p.config.SerialDevice, err)
		p.logger.Errorf("sleeping %v and trying again", serialRetryInterval)

		select {
		case <-p.ctx.Done():
			p.logger.Info("cancellation request received during retry wait")
			return
		case <-time.After(serialRetryInterval):
		}
	}
}

// parseMaxSonarFrame extracts centimeters from one "R####" frame. The
// sensor reports millimeters; values outside the valid window are rejected.
func parseMaxSonarFrame(frame string) (float64, bool) {
	frame = strings.TrimSpace(frame)
	if len(frame) < 2 || frame[0] != 'R' {
		return 0, false
	}
	mm, err := strconv.Atoi(frame[1:])
	if err != nil {
		return 0, false
	}
	cm := float64(mm) / 10.0
	if cm < minValidCM || cm > maxValidCM {
		return 0, false
	}
	return cm, true
}

// scanCarriageReturn splits the serial stream on the sensor's \r frame
// terminator, tolerating a trailing \n from USB adapters.
func scanCarriageReturn(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\r' || b == '\n' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
