package plugin

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/echoelmusic/ultrasampler/pkg/samplefile"
)

// LoadSampleFile decodes the WAV file at path into zone index.
func (in *Instance) LoadSampleFile(index int, path string) error {
	s, err := samplefile.Load(path)
	if err != nil {
		in.log.Warn("%s: %v", in.info.Name, err)
		return err
	}
	return in.LoadSample(index, s)
}

// LoadKeymap replaces every zone with the instrument described by the YAML
// keymap at path. Sample paths resolve against the keymap's directory.
func (in *Instance) LoadKeymap(ctx context.Context, path string) error {
	km, err := samplefile.LoadKeymap(path)
	if err != nil {
		in.log.Warn("%s: %v", in.info.Name, err)
		return err
	}
	if err := km.Apply(ctx, in.engine.Store(), filepath.Dir(path), in.log); err != nil {
		return fmt.Errorf("plugin: keymap %s: %w", path, err)
	}
	return nil
}
