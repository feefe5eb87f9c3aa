package handler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/iurnickita/primelabel/internal/zpl"
)

// Coordinate is an injection coordinate given as a JSON number or a numeric
// string. A string that is not a number, or a value beyond zpl.MaxCoordinate,
// counts as absent and the configured default applies.
type Coordinate struct {
	value int
	set   bool
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = Coordinate{}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		c.value, c.set = zpl.ParseCoordinate(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("coordinate must be a number: %w", err)
	}
	c.value, c.set = zpl.RoundCoordinate(f)
	return nil
}

// Int returns nil for an absent coordinate.
func (c *Coordinate) Int() *int {
	if c == nil || !c.set {
		return nil
	}
	v := c.value
	return &v
}
