package ports

// Server defines a long-running network front end of the service
type Server interface {
	// Start begins serving in the background. It returns once the listener is bound.
	Start() error

	// Stop drains in-flight requests and shuts the server down
	Stop() error
}
