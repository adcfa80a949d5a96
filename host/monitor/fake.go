package monitor

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Events contains every published event.
	Events []Event

	// PublishError, if set, is returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records evt.
func (f *FakePublisher) Publish(evt Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Events = append(f.Events, evt)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}
