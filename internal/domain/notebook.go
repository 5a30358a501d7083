package domain

import (
	"encoding/json"
	"fmt"
)

// Cell is one opaque unit of a notebook (code or markup fragment). The
// lifecycle engine appends cells without ever inspecting their fields.
type Cell = json.RawMessage

// Document is a notebook: an ordered cell sequence plus document-level
// metadata (nbformat version, kernel info). Unknown top-level fields are
// preserved verbatim so a save round-trips everything the execution engine
// and the remote platform care about.
type Document struct {
	Cells []Cell
	extra map[string]json.RawMessage
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cellsRaw, ok := raw["cells"]
	if !ok {
		return fmt.Errorf("notebook document has no cells sequence")
	}
	var cells []Cell
	if err := json.Unmarshal(cellsRaw, &cells); err != nil {
		return fmt.Errorf("notebook cells is not a sequence: %w", err)
	}
	delete(raw, "cells")
	d.Cells = cells
	d.extra = raw
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.extra)+1)
	for k, v := range d.extra {
		out[k] = v
	}
	cells := d.Cells
	if cells == nil {
		cells = []Cell{}
	}
	cellsRaw, err := json.Marshal(cells)
	if err != nil {
		return nil, err
	}
	out["cells"] = cellsRaw
	return json.Marshal(out)
}

// Append adds cells to the end of the sequence in the order given.
func (d *Document) Append(cells ...Cell) {
	d.Cells = append(d.Cells, cells...)
}
