package pipeline

import (
	"encoding/json"
	"math"
)

// Score is a float that encodes NaN and infinities as JSON null, so failed
// evaluations survive a round trip through JSON.
type Score float64

// Valid reports whether s holds a finite value.
func (s Score) Valid() bool {
	return !math.IsNaN(float64(s)) && !math.IsInf(float64(s), 0)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(s))
}

func (s *Score) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Score(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = Score(f)
	return nil
}
