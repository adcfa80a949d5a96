//go:build !wasm

package serial

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyUSB0")
	if cfg.Device != "/dev/ttyUSB0" || cfg.Baud != DefaultBaud || cfg.ReadTimeout != 100 {
		t.Errorf("DefaultConfig = %+v", cfg)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("Open(nil) succeeded")
	}
	if _, err := Open(&Config{Device: "/dev/null", Baud: 0}); err == nil {
		t.Error("Open with zero baud succeeded")
	}
}
