package core_test

import (
	"errors"
	"reflect"
	"testing"

	"picmcal/core"

	"periph.io/x/conn/v3/gpio"
)

func TestRegistryNilHandlerKeepsPrevious(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	reg := m.Registry()
	var rec recorder

	if err := reg.Init(&core.HandlerConfig{Source: core.SourceSerialRx, Handler: rec.handler("first")}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	err := reg.Init(&core.HandlerConfig{Source: core.SourceSerialRx})
	if !errors.Is(err, core.ErrNilHandler) || !errors.Is(err, core.ErrNotOK) {
		t.Fatalf("Init(nil handler) err = %v, want ErrNilHandler", err)
	}

	h := reg.Handler(core.SourceSerialRx)
	if h == nil {
		t.Fatal("previous handler was cleared")
	}
	h()
	if rec.count("first") != 1 {
		t.Error("slot no longer holds the previous handler")
	}
	if !b.Enabled(core.PeriphSerialRx) {
		t.Error("rejected Init disarmed the peripheral")
	}
}

func TestRegistryInitArmsPeripheral(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	b.Raise(core.PeriphADC)

	if err := m.Registry().Init(&core.HandlerConfig{Source: core.SourceADC, Handler: func() {}}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !b.Enabled(core.PeriphADC) {
		t.Error("Init should enable the peripheral interrupt")
	}
	if b.Flag(core.PeriphADC) {
		t.Error("Init should clear a stale flag")
	}
}

func TestRegistryDeInit(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	reg := m.Registry()

	cfg := &core.HandlerConfig{Source: core.SourceSerialTx, Handler: func() {}}
	if err := reg.Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := reg.DeInit(cfg); err != nil {
		t.Fatalf("DeInit: %v", err)
	}
	if reg.Registered(core.SourceSerialTx) {
		t.Error("slot not empty after DeInit")
	}
	if b.Enabled(core.PeriphSerialTx) {
		t.Error("peripheral still enabled after DeInit")
	}

	// DeInit of an empty slot is still OK.
	if err := reg.DeInit(&core.HandlerConfig{Source: core.SourceADC}); err != nil {
		t.Errorf("DeInit of empty slot: %v", err)
	}
	if err := reg.DeInit(nil); !errors.Is(err, core.ErrNilConfig) {
		t.Errorf("DeInit(nil) err = %v, want ErrNilConfig", err)
	}
}

func TestRegistryRejects(t *testing.T) {
	f := core.DefaultFeatures()
	f.Peripherals = core.AllPeripherals.Without(core.PeriphADC)
	m, _ := newMCU(t, f)
	reg := m.Registry()
	h := func() {}

	tests := []struct {
		name  string
		cfg   *core.HandlerConfig
		cause error
	}{
		{"nil config", nil, core.ErrNilConfig},
		{"bad source", &core.HandlerConfig{Source: core.SourceLimit, Handler: h}, nil},
		{"bad priority", &core.HandlerConfig{Source: core.SourceSerialRx, Handler: h, Priority: core.PriorityLimit}, nil},
		{"feature disabled", &core.HandlerConfig{Source: core.SourceADC, Handler: h}, core.ErrFeatureDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Init(tt.cfg)
			if !errors.Is(err, core.ErrNotOK) {
				t.Fatalf("err = %v, want ErrNotOK", err)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("err = %v, want %v", err, tt.cause)
			}
		})
	}
}

func TestRegistryPriority(t *testing.T) {
	f := core.DefaultFeatures()
	f.Priority = true
	m, b := newMCU(t, f)
	reg := m.Registry()

	cfg := &core.HandlerConfig{Source: core.SourceADC, Handler: func() {}, Priority: core.PriorityHigh}
	if err := reg.Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if reg.Priority(core.PeriphADC) != core.PriorityHigh || b.Priority(core.PeriphADC) != core.PriorityHigh {
		t.Error("ADC should be in the high tier")
	}
	if err := reg.DeInit(cfg); err != nil {
		t.Fatalf("DeInit: %v", err)
	}
	if reg.Priority(core.PeriphADC) != core.PriorityLow || b.Priority(core.PeriphADC) != core.PriorityLow {
		t.Error("DeInit should reset the tier to low")
	}
}

func TestRegistryPriorityIgnoredWithoutFeature(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	reg := m.Registry()

	cfg := &core.HandlerConfig{Source: core.SourceADC, Handler: func() {}, Priority: core.PriorityHigh}
	if err := reg.Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if reg.Priority(core.PeriphADC) != core.PriorityLow {
		t.Error("priority must not be stored when the feature is off")
	}
	if b.Priority(core.PeriphADC) != core.PriorityLow {
		t.Error("priority bit must not be written when the feature is off")
	}
}

func TestRegistryRejectsOwnedSources(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	var rec recorder
	watch(t, m, &rec, core.RB4)

	m.DisableInterrupts()
	b.SetPin(core.PinRB4, gpio.High)

	for _, s := range []core.Source{core.SourceRB5Rising, core.SourceRB4Falling, core.SourceTimer1, core.SourceINT1, core.SourceCCP1} {
		err := m.InitPeripheral(&core.HandlerConfig{Source: s, Handler: func() {}})
		if !errors.Is(err, core.ErrOwnedSource) {
			t.Errorf("InitPeripheral(%v) err = %v, want ErrOwnedSource", s, err)
		}
		if err := m.DeInitPeripheral(&core.HandlerConfig{Source: s}); !errors.Is(err, core.ErrOwnedSource) {
			t.Errorf("DeInitPeripheral(%v) err = %v, want ErrOwnedSource", s, err)
		}
	}
	if !b.Flag(core.PeriphOnChange) || !b.Enabled(core.PeriphOnChange) {
		t.Fatal("rejected init touched the shared on-change flag")
	}
	if !m.Registry().Registered(core.RB4.Falling()) {
		t.Fatal("rejected deinit cleared the rb4 slot")
	}

	m.EnableInterrupts()
	b.Step(1)
	if !reflect.DeepEqual(rec.calls, []string{"rb4_rising"}) {
		t.Errorf("callbacks %v, want [rb4_rising]", rec.calls)
	}
}
