package registry

import (
	"encoding/json"
	"fmt"

	"dtrack/internal/dataset"
)

const envelopeVersion = 1

// envelope is the on-disk checkpoint file. It carries the catalog the model
// was trained with, so one atomic rename publishes both and one read returns
// a matching pair. The labels file is a mirror of Catalog.
type envelope struct {
	Version int             `json:"version"`
	Catalog json.RawMessage `json:"catalog"`
	Model   []byte          `json:"model"`
}

func encodeEnvelope(catalog dataset.Catalog, payload []byte) ([]byte, error) {
	labels, err := dataset.MarshalCatalog(catalog)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: envelopeVersion, Catalog: labels, Model: payload})
}

func decodeEnvelope(data []byte) (dataset.Catalog, []byte, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, nil, fmt.Errorf("decode checkpoint: unsupported version %d", env.Version)
	}
	catalog, err := dataset.UnmarshalCatalog(env.Catalog)
	if err != nil {
		return nil, nil, fmt.Errorf("checkpoint catalog: %w", err)
	}
	return catalog, env.Model, nil
}
