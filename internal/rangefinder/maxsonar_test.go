package rangefinder

import (
	"bufio"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/chrissnell/remoterover/pkg/config"
	"go.uber.org/zap"
)

func TestParseMaxSonarFrame(t *testing.T) {
	tests := []struct {
		name       string
		frame      string
		expectedCM float64
		expectedOK bool
	}{
		{"typical reading", "R0123", 12.3, true},
		{"long range", "R1500", 150.0, true},
		{"surrounding whitespace", "  R0123 ", 12.3, true},
		{"lower window boundary", "R0020", 2.0, true},
		{"upper window boundary", "R4000", 400.0, true},
		{"below window", "R0015", 0, false},
		{"above window", "R4001", 0, false},
		{"negative value", "R-100", 0, false},
		{"wrong prefix", "X0123", 0, false},
		{"non-numeric payload", "Rabc", 0, false},
		{"bare prefix", "R", 0, false},
		{"empty frame", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm, ok := parseMaxSonarFrame(tt.frame)
			if ok != tt.expectedOK {
				t.Fatalf("expected ok=%v, got %v", tt.expectedOK, ok)
			}
			if ok && cm != tt.expectedCM {
				t.Errorf("expected %.1f cm, got %.1f", tt.expectedCM, cm)
			}
		})
	}
}

func TestScanCarriageReturn(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("R0100\rR0200\r\nR0300"))
	scanner.Split(scanCarriageReturn)

	var tokens []string
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("unexpected scanner error: %v", err)
	}

	// The \n after a \r yields an empty token, which the frame parser
	// rejects.
	expected := []string{"R0100", "R0200", "", "R0300"}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i, token := range tokens {
		if token != expected[i] {
			t.Errorf("token %d: expected %q, got %q", i, expected[i], token)
		}
	}
}

func TestNewMaxSonarProbeValidation(t *testing.T) {
	tests := []struct {
		name   string
		device config.DeviceData
	}{
		{"missing serial device", config.DeviceData{Name: "front", Type: "maxsonar", SampleTimeout: "1s"}},
		{"bad sample timeout", config.DeviceData{Name: "front", Type: "maxsonar", SerialDevice: "/dev/ttyUSB0", SampleTimeout: "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMaxSonarProbe(context.Background(), &sync.WaitGroup{}, tt.device, 15, zap.NewNop().Sugar())
			if err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func newIdleMaxSonar(t *testing.T) *MaxSonarProbe {
	t.Helper()
	probe, err := NewMaxSonarProbe(context.Background(), &sync.WaitGroup{}, config.DeviceData{
		Name:          "front",
		Type:          "maxsonar",
		SerialDevice:  "/dev/ttyUSB0",
		Baud:          9600,
		SampleTimeout: "25ms",
	}, 15, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("failed to create probe: %v", err)
	}
	return probe
}

func TestMaxSonarSampleTimesOutWithoutFrames(t *testing.T) {
	probe := newIdleMaxSonar(t)

	reading := probe.Sample(context.Background())
	if reading.DistanceCM != nil {
		t.Errorf("expected nil distance on timeout, got %v", *reading.DistanceCM)
	}
	if reading.WithinRange {
		t.Error("a failed sample must not report within range")
	}
	if reading.StationName != "front" {
		t.Errorf("expected station front, got %q", reading.StationName)
	}
	if reading.Timestamp.IsZero() {
		t.Error("expected a timestamp on the failed reading")
	}
}

func TestMaxSonarSampleHonorsCancellation(t *testing.T) {
	probe := newIdleMaxSonar(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reading := probe.Sample(ctx)
	if reading.DistanceCM != nil {
		t.Errorf("expected nil distance on cancellation, got %v", *reading.DistanceCM)
	}
}

func TestMaxSonarPublishKeepsNewestFrame(t *testing.T) {
	probe := newIdleMaxSonar(t)

	probe.publish(10)
	probe.publish(20)

	reading := probe.Sample(context.Background())
	if reading.DistanceCM == nil || *reading.DistanceCM != 20 {
		t.Fatalf("expected the newest frame 20, got %v", reading.DistanceCM)
	}
	if reading.WithinRange {
		t.Error("20 cm exceeds the 15 cm threshold")
	}

	probe.publish(7)
	reading = probe.Sample(context.Background())
	if reading.DistanceCM == nil || *reading.DistanceCM != 7 {
		t.Fatalf("expected 7, got %v", reading.DistanceCM)
	}
	if !reading.WithinRange {
		t.Error("7 cm is inside the 15 cm threshold")
	}
}
