package service

// Consumer is the opaque capability a service accepts work or configuration
// from. Its shape is domain-specific; the substrate only requires a stable
// identity.
type Consumer interface {
	ID() string
}

// Handler is the contract every concrete service implements on top of Base.
type Handler interface {
	RegisterConsumer(c Consumer) error
	UnregisterConsumer(c Consumer) error
}
