package core_test

import (
	"strings"
	"testing"

	"picmcal/core"
	"picmcal/protocol"
)

func TestTraceRecordsTimerFires(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())

	tm := m.Timer(core.Timer1)
	if err := tm.Init(&core.TimerConfig{Handler: func() {}}); err != nil {
		t.Fatal(err)
	}
	if err := tm.StartTimer(1); err != nil {
		t.Fatal(err)
	}
	b.Step(4000 * 2)

	var fires []core.TraceEvent
	for _, evt := range m.Trace().Events() {
		if evt.Kind == core.TraceFire {
			fires = append(fires, evt)
		}
	}
	if len(fires) != 2 {
		t.Fatalf("%d fire events, want 2", len(fires))
	}
	if fires[0].Source != uint8(core.SourceTimer1) || fires[1].Value != 2 {
		t.Errorf("fire events %+v", fires)
	}
	if fires[0].Seq >= fires[1].Seq {
		t.Error("sequence numbers not increasing")
	}
}

func TestTraceRingKeepsNewest(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	if err := m.InitPeripheral(&core.HandlerConfig{Source: core.SourceADC, Handler: func() {}}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		b.Raise(core.PeriphADC)
		b.Step(1)
	}

	events := m.Trace().Events()
	if len(events) != core.TraceRingSize {
		t.Fatalf("%d events retained, want %d", len(events), core.TraceRingSize)
	}
	if events[len(events)-1].Seq != m.Trace().Seq() {
		t.Error("newest event missing")
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq != events[i-1].Seq+1 {
			t.Fatalf("events out of order at %d", i)
		}
	}

	m.Trace().Clear()
	if len(m.Trace().Events()) != 0 {
		t.Error("Clear left events behind")
	}
}

func TestTraceDisabled(t *testing.T) {
	f := core.DefaultFeatures()
	f.Trace = false
	m, b := newMCU(t, f)
	b.Enable(core.PeriphADC)
	b.Raise(core.PeriphADC)
	b.Step(1)
	if len(m.Trace().Events()) != 0 {
		t.Error("events recorded with tracing off")
	}
}

func TestTraceDrainToUART(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	if err := m.InitPeripheral(&core.HandlerConfig{Source: core.SourceSerialRx, Handler: func() {}}); err != nil {
		t.Fatal(err)
	}
	b.Raise(core.PeriphSerialRx)
	b.Step(1)

	sink := core.NewTraceSink(b.UART())
	n, err := m.Trace().Drain(sink)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 2 {
		t.Fatalf("drained %d events, want 2 (enter, service)", n)
	}
	if n, _ := m.Trace().Drain(sink); n != 0 {
		t.Errorf("second drain wrote %d events, want 0", n)
	}

	var got []protocol.TraceRecord
	var dec protocol.Decoder
	dec.Receive(b.UART().TxBuffer(), func(f protocol.Frame) {
		payload := f.Payload
		rec, err := protocol.DecodeTrace(&payload)
		if err != nil {
			t.Fatalf("DecodeTrace: %v", err)
		}
		got = append(got, rec)
	})
	if len(got) != 2 {
		t.Fatalf("decoded %d records, want 2", len(got))
	}
	if got[0].Kind != uint8(core.TraceEnter) || got[1].Kind != uint8(core.TraceService) {
		t.Errorf("records %+v", got)
	}
	if got[1].Source != uint8(core.SourceSerialRx) {
		t.Errorf("service source %d, want serial_rx", got[1].Source)
	}
}

func TestTraceDumpUsesDebugWriter(t *testing.T) {
	m, b := newMCU(t, core.DefaultFeatures())
	b.Enable(core.PeriphADC)
	b.Raise(core.PeriphADC)
	b.Step(1)

	var lines []string
	core.SetDebugWriter(func(s string) { lines = append(lines, s) })
	core.SetDebugEnabled(true)
	defer func() {
		core.SetDebugWriter(nil)
		core.SetDebugEnabled(false)
	}()

	m.Trace().Dump()
	out := strings.Join(lines, "\n")
	if !strings.Contains(out, "DROP adc") || !strings.Contains(out, "ENTER all") {
		t.Errorf("dump output missing events:\n%s", out)
	}
}

func TestTraceEventSourceName(t *testing.T) {
	tests := []struct {
		evt  core.TraceEvent
		want string
	}{
		{core.TraceEvent{Kind: core.TraceEnter, Source: 2}, "low"},
		{core.TraceEvent{Kind: core.TraceDrop, Source: uint8(core.PeriphOnChange)}, "on_change"},
		{core.TraceEvent{Kind: core.TraceFire, Source: uint8(core.SourceTimer2)}, "timer2"},
		{core.TraceEvent{Kind: core.TraceEdgeFall, Source: uint8(core.RB6.Falling())}, "rb6_falling"},
	}
	for _, tt := range tests {
		if got := tt.evt.SourceName(); got != tt.want {
			t.Errorf("%v source %d: %q, want %q", tt.evt.Kind, tt.evt.Source, got, tt.want)
		}
	}
}
