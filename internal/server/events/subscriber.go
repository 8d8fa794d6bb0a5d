package events

// Subscriber receives published events. Send must not block.
type Subscriber interface {
	Send(Event) error
	Close() error
}
