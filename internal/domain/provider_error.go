package domain

type ErrorKind int

const (
	KindConfiguration ErrorKind = iota + 1
	KindTransport
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	}
	return "unknown"
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindTransport:
		return ErrTransport
	case KindProtocol:
		return ErrProtocol
	}
	return nil
}

// ProviderError annotates a failure with the backend that produced it.
type ProviderError struct {
	// Provider is the backend's display name, e.g. "Anthropic Claude".
	Provider string
	Kind     ErrorKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Provider + " " + e.Kind.String() + " error"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the cause and the kind sentinel.
func (e *ProviderError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	return errs
}

func NewConfigurationError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindConfiguration, Err: err}
}

func NewTransportError(provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindTransport, Message: message, Err: err}
}

func NewProtocolError(provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindProtocol, Message: message, Err: err}
}
