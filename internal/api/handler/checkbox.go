package handler

import (
	"encoding/json"
	"strings"
)

// checkbox accepts the values browsers and JSON clients send for a tick box.
type checkbox bool

func (b *checkbox) UnmarshalParam(param string) error {
	switch strings.ToLower(strings.TrimSpace(param)) {
	case "1", "true", "on", "yes":
		*b = true
	default:
		*b = false
	}
	return nil
}

func (b *checkbox) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = checkbox(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return b.UnmarshalParam(s)
}
