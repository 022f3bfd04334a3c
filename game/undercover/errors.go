package undercover

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched (errors.Is) by every setup error.
var ErrConfiguration = errors.New("invalid game configuration")

// ConfigurationError reports invalid setup parameters. It is returned before
// any phase runs.
type ConfigurationError struct {
	Players   int
	Impostors int
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s (players=%d, impostors=%d)", ErrConfiguration, e.Reason, e.Players, e.Impostors)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// CollaboratorError reports a failed language-model call. The run stops at
// the failing call; nothing is retried.
type CollaboratorError struct {
	Player string
	Phase  Phase
	Err    error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed during %s: %v", e.Player, e.Phase, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
