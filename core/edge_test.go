package core_test

import (
	"errors"
	"reflect"
	"testing"

	"picmcal/core"

	"periph.io/x/conn/v3/gpio"
)

func watch(t *testing.T, m *core.MCU, rec *recorder, pin core.OnChangePin) {
	t.Helper()
	err := m.InitOnChange(&core.OnChangeConfig{
		Pin:     pin,
		Rising:  rec.handler(pin.String() + "_rising"),
		Falling: rec.handler(pin.String() + "_falling"),
	})
	if err != nil {
		t.Fatalf("InitOnChange(%v): %v", pin, err)
	}
}

func TestEdgeSynthLevelSequence(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	var rec recorder
	watch(t, m, &rec, core.RB4)

	for _, level := range []gpio.Level{gpio.Low, gpio.High, gpio.High, gpio.Low} {
		if err := b.SetPin(core.PinRB4, level); err != nil {
			t.Fatal(err)
		}
		// Force a pass for every sample, as a change on another pin would.
		b.Raise(core.PeriphOnChange)
		b.Step(1)
	}

	want := []string{"rb4_rising", "rb4_falling"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("callbacks %v, want %v", rec.calls, want)
	}
	if m.Edges().State(core.RB4) != core.Lowered {
		t.Errorf("state %v, want lowered", m.Edges().State(core.RB4))
	}
}

func TestEdgeSynthPinsAreIndependent(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	var rec recorder
	watch(t, m, &rec, core.RB5)
	watch(t, m, &rec, core.RB7)

	b.SetPin(core.PinRB5, gpio.High)
	b.SetPin(core.PinRB7, gpio.High)
	b.Step(1)
	b.SetPin(core.PinRB7, gpio.Low)
	b.Step(1)

	want := []string{"rb5_rising", "rb7_rising", "rb7_falling"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("callbacks %v, want %v", rec.calls, want)
	}
	if m.Edges().State(core.RB5) != core.Raised {
		t.Error("rb5 should be raised")
	}
}

func TestEdgeSynthUnwatchedPinIgnored(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	var rec recorder
	watch(t, m, &rec, core.RB4)

	b.SetPin(core.PinRB6, gpio.High)
	b.Step(1)

	if len(rec.calls) != 0 {
		t.Errorf("unexpected callbacks %v", rec.calls)
	}
	if m.Edges().State(core.RB6) != core.Lowered {
		t.Error("unwatched pin state changed")
	}
}

func TestEdgeSynthLosesDoubleTransition(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	var rec recorder
	watch(t, m, &rec, core.RB4)

	// High then low before the router runs: the pass sees the original level.
	b.SetPin(core.PinRB4, gpio.High)
	b.SetPin(core.PinRB4, gpio.Low)
	b.Step(1)

	if len(rec.calls) != 0 {
		t.Errorf("callbacks %v, want none", rec.calls)
	}
	if m.Dispatcher().Serviced(core.PeriphOnChange) != 1 {
		t.Error("on-change flag should still have been serviced")
	}
}

func TestOnChangeRequiresBothHandlers(t *testing.T) {
	m, _ := newMCU(t, core.DefaultFeatures())
	var rec recorder
	watch(t, m, &rec, core.RB4)

	err := m.InitOnChange(&core.OnChangeConfig{Pin: core.RB4, Rising: func() {}})
	if !errors.Is(err, core.ErrNilHandler) {
		t.Fatalf("err = %v, want ErrNilHandler", err)
	}
	m.Registry().Handler(core.RB4.Falling())()
	if rec.count("rb4_falling") != 1 {
		t.Error("rejected Init replaced the falling handler")
	}

	if err := m.InitOnChange(nil); !errors.Is(err, core.ErrNilConfig) {
		t.Errorf("InitOnChange(nil) err = %v", err)
	}
	if err := m.InitOnChange(&core.OnChangeConfig{Pin: core.OnChangePinLimit, Rising: func() {}, Falling: func() {}}); !errors.Is(err, core.ErrNotOK) {
		t.Errorf("bad pin err = %v", err)
	}
}

func TestOnChangeSharedEnable(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	var rec recorder
	watch(t, m, &rec, core.RB4)
	watch(t, m, &rec, core.RB5)

	if b.Direction(core.PinRB4) != core.Input || b.Direction(core.PinRB5) != core.Input {
		t.Error("watched pins should be inputs")
	}

	if err := m.DeInitOnChange(&core.OnChangeConfig{Pin: core.RB4}); err != nil {
		t.Fatalf("DeInitOnChange: %v", err)
	}
	if !b.Enabled(core.PeriphOnChange) {
		t.Fatal("shared interrupt disabled while rb5 is still watched")
	}
	if m.Registry().Registered(core.RB4.Rising()) || m.Registry().Registered(core.RB4.Falling()) {
		t.Error("rb4 slots not cleared")
	}

	b.SetPin(core.PinRB4, gpio.High)
	b.SetPin(core.PinRB5, gpio.High)
	b.Step(1)
	if !reflect.DeepEqual(rec.calls, []string{"rb5_rising"}) {
		t.Errorf("callbacks %v, want [rb5_rising]", rec.calls)
	}

	if err := m.DeInitOnChange(&core.OnChangeConfig{Pin: core.RB5}); err != nil {
		t.Fatalf("DeInitOnChange: %v", err)
	}
	if b.Enabled(core.PeriphOnChange) {
		t.Error("shared interrupt still enabled with no watched pin")
	}
	if m.Edges().State(core.RB5) != core.Lowered {
		t.Error("DeInit should reset the edge state")
	}
}

func TestOnChangeSharedTier(t *testing.T) {
	f := core.DefaultFeatures()
	f.Priority = true
	m, b := newMCU(t, f)
	var rec recorder

	low := &core.OnChangeConfig{Pin: core.RB4, Rising: rec.handler("rb4_rising"), Falling: rec.handler("rb4_falling"), Priority: core.PriorityLow}
	if err := m.InitOnChange(low); err != nil {
		t.Fatalf("InitOnChange(rb4): %v", err)
	}
	high := &core.OnChangeConfig{Pin: core.RB5, Rising: rec.handler("rb5_rising"), Falling: rec.handler("rb5_falling"), Priority: core.PriorityHigh}
	err := m.InitOnChange(high)
	if !errors.Is(err, core.ErrTierConflict) || !errors.Is(err, core.ErrNotOK) {
		t.Fatalf("err = %v, want ErrTierConflict", err)
	}
	if m.Registry().Registered(core.RB5.Rising()) {
		t.Error("rejected pin was registered")
	}
	if b.Priority(core.PeriphOnChange) != core.PriorityLow {
		t.Error("rejected pin moved the hardware tier")
	}

	high.Priority = core.PriorityLow
	if err := m.InitOnChange(high); err != nil {
		t.Fatalf("InitOnChange(rb5): %v", err)
	}
	if got, hw := m.Registry().Priority(core.PeriphOnChange), b.Priority(core.PeriphOnChange); got != hw {
		t.Fatalf("registry tier %v, hardware tier %v", got, hw)
	}

	b.SetPin(core.PinRB5, gpio.High)
	b.Step(100)
	if !reflect.DeepEqual(rec.calls, []string{"rb5_rising"}) {
		t.Errorf("callbacks %v, want [rb5_rising]", rec.calls)
	}
	if b.Flag(core.PeriphOnChange) {
		t.Error("on-change flag left pending")
	}
	if n := m.Dispatcher().Passes(); n != 1 {
		t.Errorf("Passes = %d, want 1", n)
	}
}

func TestOnChangeSolePinMayChangeTier(t *testing.T) {
	f := core.DefaultFeatures()
	f.Priority = true
	m, b := newMCU(t, f)
	var rec recorder

	cfg := &core.OnChangeConfig{Pin: core.RB6, Rising: rec.handler("rb6_rising"), Falling: rec.handler("rb6_falling")}
	if err := m.InitOnChange(cfg); err != nil {
		t.Fatal(err)
	}
	cfg.Priority = core.PriorityHigh
	if err := m.InitOnChange(cfg); err != nil {
		t.Fatalf("re-init of the only watched pin: %v", err)
	}
	if m.Registry().Priority(core.PeriphOnChange) != core.PriorityHigh || b.Priority(core.PeriphOnChange) != core.PriorityHigh {
		t.Error("tier not moved to high")
	}

	b.SetPin(core.PinRB6, gpio.High)
	b.Step(1)
	if !reflect.DeepEqual(rec.calls, []string{"rb6_rising"}) {
		t.Errorf("callbacks %v, want [rb6_rising]", rec.calls)
	}
}

func TestOnChangeInitKeepsPendingChange(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	var rec recorder
	watch(t, m, &rec, core.RB4)

	m.DisableInterrupts()
	b.SetPin(core.PinRB4, gpio.High)
	watch(t, m, &rec, core.RB7)
	m.EnableInterrupts()
	b.Step(1)

	if !reflect.DeepEqual(rec.calls, []string{"rb4_rising"}) {
		t.Errorf("callbacks %v, want [rb4_rising]", rec.calls)
	}
}
