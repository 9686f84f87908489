package app

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestCircularBuffer(t *testing.T) {
	buf := newBuffer(2) // Small buffer for testing

	msg1 := []byte("hello")
	msg2 := []byte("world")
	if _, err := buf.Write(msg1); err != nil {
		t.Errorf("Write failed: %v", err)
	}
	if _, err := buf.Write(msg2); err != nil {
		t.Errorf("Write failed: %v", err)
	}

	expected := "helloworld"
	if string(buf.Bytes()) != expected {
		t.Errorf("Expected %s, got %s", expected, string(buf.Bytes()))
	}

	buf.Reset()
	if len(buf.Bytes()) != 0 {
		t.Errorf("Expected empty buffer after reset, got %d bytes", len(buf.Bytes()))
	}
}

func TestGetLogger(t *testing.T) {
	modules = map[string]string{
		"broadcast": "debug",
		"ssdp":      "warn",
	}

	logger := GetLogger("broadcast")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level for broadcast, got %s", logger.GetLevel().String())
	}

	logger = GetLogger("ssdp")
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Errorf("Expected warn level for ssdp, got %s", logger.GetLevel().String())
	}

	// unknown module falls back to the root logger level
	logger = GetLogger("nonexistent")
	if logger.GetLevel() != Logger.GetLevel() {
		t.Errorf("Expected root logger level, got %s", logger.GetLevel().String())
	}
}
