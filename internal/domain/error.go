package domain

import "errors"

var (
	// Kinds. Every ProviderError matches exactly one of these via errors.Is.
	ErrConfiguration = errors.New("configuration error")
	ErrTransport     = errors.New("transport error")
	ErrProtocol      = errors.New("protocol error")

	ErrUnknownProvider       = errors.New("unknown provider")
	ErrMissingCredential     = errors.New("api key is required")
	ErrLocalServerNotRunning = errors.New("local server not running, start it with: ollama serve")
	ErrNoMessages            = errors.New("no messages")
	ErrInvalidArgument       = errors.New("invalid argument")
)
