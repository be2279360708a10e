package nn

import (
	"fmt"

	"github.com/born-ml/trainers/internal/serialization"
	"github.com/born-ml/trainers/internal/tensor"
)

// Save writes the module's state dict to a .born file at path. Parent
// directories are created as needed.
//
//	err := nn.Save(generator, "models/generator.born", "Generator", map[string]string{"latent_dim": "100"})
func Save[B tensor.Backend](m Module[B], path, modelType string, metadata map[string]string) error {
	if err := serialization.WriteFile(path, m.StateDict(), modelType, metadata, nil); err != nil {
		return fmt.Errorf("failed to save %s: %w", modelType, err)
	}
	return nil
}

// SaveCheckpoint is Save with training state (epoch, step, loss, optimizer)
// recorded in the header.
func SaveCheckpoint[B tensor.Backend](m Module[B], path, modelType string, meta serialization.CheckpointMeta) error {
	if err := serialization.WriteFile(path, m.StateDict(), modelType, nil, &meta); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load reads a .born file into m, which must have the same architecture as
// the saved model. The file header is returned for inspection.
func Load[B tensor.Backend](m Module[B], path string, backend B) (serialization.Header, error) {
	stateDict, header, err := serialization.ReadFile(path, backend.Device())
	if err != nil {
		return header, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := m.LoadStateDict(stateDict); err != nil {
		return header, fmt.Errorf("failed to load state dict: %w", err)
	}
	return header, nil
}

// ExportSafeTensors writes the module's state dict in SafeTensors format.
func ExportSafeTensors[B tensor.Backend](m Module[B], path string, metadata map[string]string) error {
	return serialization.WriteSafeTensors(path, m.StateDict(), metadata)
}
