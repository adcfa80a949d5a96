package core

// HandlerConfig names a handler slot and the callback to store in it.
type HandlerConfig struct {
	Source   Source
	Handler  Handler
	Priority Priority
}

type slot struct {
	handler  Handler
	priority Priority
}

// Registry owns the fixed handler table. Slots are written from the main
// loop inside critical sections and read by the dispatch router.
type Registry struct {
	ic       InterruptController
	features *Features
	slots    [SourceLimit]slot

	// One tier per peripheral, mirrored into the hardware priority bit.
	tiers [PeripheralLimit]Priority
}

// Init validates cfg, stores its handler and arms the peripheral: priority,
// flag cleared, interrupt enabled. On error the slot keeps its previous
// handler. Only the serial and ADC slots are armed here; timers, external
// lines and on-change pins go through their own Init.
func (r *Registry) Init(cfg *HandlerConfig) error {
	const op = "registry.init"
	if cfg == nil {
		return causeError(op, ErrNilConfig)
	}
	if err := firstError(
		r.check(op, cfg.Source, cfg.Priority),
		plainSource(op, cfg.Source),
		nilHandler(op, cfg.Handler),
	); err != nil {
		debugLog(err.Error())
		return err
	}

	p := cfg.Source.Peripheral()
	state := disableInterrupts()
	r.ic.Disable(p)
	r.ic.ClearFlag(p)
	r.bind(cfg.Source, cfg.Handler, cfg.Priority)
	r.ic.Enable(p)
	restoreInterrupts(state)
	return nil
}

// DeInit empties the slot named by cfg and disables its peripheral. The
// shared on-change peripheral stays enabled while another pin is watched.
func (r *Registry) DeInit(cfg *HandlerConfig) error {
	const op = "registry.deinit"
	if cfg == nil {
		return causeError(op, ErrNilConfig)
	}
	if cfg.Source >= SourceLimit {
		return rangeError(op, "source", int(cfg.Source))
	}
	if err := plainSource(op, cfg.Source); err != nil {
		return err
	}
	state := disableInterrupts()
	r.unbind(cfg.Source)
	restoreInterrupts(state)
	return nil
}

// Handler returns the callback stored for s, or nil.
func (r *Registry) Handler(s Source) Handler {
	if s >= SourceLimit {
		return nil
	}
	return r.slots[s].handler
}

// Registered reports whether s has a callback.
func (r *Registry) Registered(s Source) bool {
	return r.Handler(s) != nil
}

// Priority returns the dispatch tier of a peripheral. INT0 is always high.
func (r *Registry) Priority(p Peripheral) Priority {
	if p == PeriphINT0 {
		return PriorityHigh
	}
	if !r.features.Priority || p >= PeripheralLimit {
		return PriorityLow
	}
	return r.tiers[p]
}

func (r *Registry) check(op string, s Source, pr Priority) error {
	if s >= SourceLimit {
		return rangeError(op, "source", int(s))
	}
	if pr >= PriorityLimit {
		return rangeError(op, "priority", int(pr))
	}
	if !r.features.Has(s.Peripheral()) {
		return causeError(op, ErrFeatureDisabled)
	}
	return nil
}

// plainSource rejects sources that belong to a driver with its own Init.
func plainSource(op string, s Source) error {
	switch s.Peripheral() {
	case PeriphSerialRx, PeriphSerialTx, PeriphADC:
		return nil
	}
	return &ConfigError{Op: op, Field: "source", Value: int(s), Err: ErrOwnedSource}
}

func nilHandler(op string, h Handler) error {
	if h == nil {
		return causeError(op, ErrNilHandler)
	}
	return nil
}

// bind stores h without touching the enable bit. A nil h empties the slot.
// Must run with interrupts masked.
func (r *Registry) bind(s Source, h Handler, pr Priority) {
	if h == nil {
		r.unbind(s)
		return
	}
	if !r.features.Priority {
		pr = PriorityLow
	}
	p := s.Peripheral()
	if p == PeriphINT0 {
		pr = PriorityHigh
	}
	r.slots[s] = slot{handler: h, priority: pr}
	r.tiers[p] = pr
	if r.features.Priority {
		r.ic.SetPriority(p, pr)
	}
}

// unbind empties a slot and releases its peripheral once no slot of that
// peripheral remains. Must run with interrupts masked.
func (r *Registry) unbind(s Source) {
	r.slots[s] = slot{}
	p := s.Peripheral()
	if r.watched(p) {
		return
	}
	r.ic.Disable(p)
	r.tiers[p] = PriorityLow
	if r.features.Priority && p != PeriphINT0 {
		r.ic.SetPriority(p, PriorityLow)
	}
}

// watched reports whether any slot of p still holds a handler.
func (r *Registry) watched(p Peripheral) bool {
	for s := Source(0); s < SourceLimit; s++ {
		if s.Peripheral() == p && r.slots[s].handler != nil {
			return true
		}
	}
	return false
}
