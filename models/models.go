package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate is a latitude or longitude value. The backend serialises decimal
// columns as strings, so it decodes from JSON numbers, numeric strings and null.
// Null and unparseable strings decode to NaN so one bad record fails
// position validation instead of the whole payload.
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Coordinate(math.NaN())
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*c = Coordinate(math.NaN())
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			f = math.NaN()
		}
		*c = Coordinate(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid coordinate %s: %w", string(data), err)
	}
	*c = Coordinate(f)
	return nil
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	f := float64(c)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// Float returns the coordinate as a float64.
func (c Coordinate) Float() float64 {
	return float64(c)
}

// Valid reports whether the coordinate holds a finite number.
func (c Coordinate) Valid() bool {
	f := float64(c)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ErrorBody is the union of error shapes returned by the backend.
type ErrorBody struct {
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}
