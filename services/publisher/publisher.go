package publisher

// Publisher pushes newly committed listings to downstream consumers
type Publisher interface {
	// Publish publishes one committed listing, keyed by its source domain
	Publish(domain string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// Nop is used when no publisher is configured
type Nop struct{}

// Publish discards the message
func (Nop) Publish(string, []byte) error { return nil }

// TrimStreams does nothing
func (Nop) TrimStreams() error { return nil }

// Close does nothing
func (Nop) Close() error { return nil }
