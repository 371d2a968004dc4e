package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// LooseFloat decodes from either a JSON number or a numeric string. Legacy
// profile records stored weight as a quoted string, so reads must tolerate
// both encodings. It always marshals back as a number.
type LooseFloat float64

func (f LooseFloat) Float64() float64 {
	return float64(f)
}

func (f LooseFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

func (f *LooseFloat) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = LooseFloat(parsed)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = LooseFloat(v)
	return nil
}
