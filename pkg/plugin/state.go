package plugin

import (
	"fmt"
)

// State serializes every parameter into an opaque blob.
func (in *Instance) State() []byte {
	in.stateMu.Lock()
	defer in.stateMu.Unlock()
	return in.state.Bytes()
}

// SetState restores parameters from a blob written by State or by the legacy
// count-prefixed layout. A rejected blob leaves every value unchanged.
func (in *Instance) SetState(blob []byte) error {
	in.stateMu.Lock()
	defer in.stateMu.Unlock()
	if err := in.state.LoadBytes(blob); err != nil {
		in.log.Warn("%s: state rejected (%d bytes): %v", in.info.Name, len(blob), err)
		return fmt.Errorf("plugin: set state: %w", err)
	}
	in.log.Info("%s: state restored (%d bytes)", in.info.Name, len(blob))
	return nil
}
