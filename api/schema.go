package api

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/qri-io/jsonschema"

	"github.com/sboruta/tracker/pkg/models"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// RowValidator holds the compiled per-table row schemas. Every uploaded
// row is checked against its table's schema before it reaches the conflict
// resolver, so one garbled row never poisons a batch.
type RowValidator struct {
	schemas map[string]*jsonschema.Schema
}

func NewRowValidator() (*RowValidator, error) {
	v := &RowValidator{schemas: make(map[string]*jsonschema.Schema)}
	for _, t := range models.SyncOrder {
		raw, err := schemaFS.ReadFile("schemas/" + t.Name + ".json")
		if err != nil {
			return nil, fmt.Errorf("read schema for %s: %w", t.Name, err)
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(raw, rs); err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", t.Name, err)
		}
		v.schemas[t.Name] = rs
	}
	return v, nil
}

// Validate checks one raw row against the table's schema.
func (v *RowValidator) Validate(ctx context.Context, table models.Table, raw json.RawMessage) error {
	rs, ok := v.schemas[table.Name]
	if !ok {
		return fmt.Errorf("no schema for table %q", table.Name)
	}
	keyErrs, err := rs.ValidateBytes(ctx, raw)
	if err != nil {
		return err
	}
	if len(keyErrs) > 0 {
		return fmt.Errorf("invalid %s row: %s", table.Name, keyErrs[0].Error())
	}
	return nil
}
