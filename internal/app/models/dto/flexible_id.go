package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleID is an optional user reference that accepts a JSON number or a numeric
// string. null, "", 0 and an absent field all mean "none".
type FlexibleID struct {
	value int64
	set   bool
}

// NewFlexibleID wraps id; non-positive ids are treated as none
func NewFlexibleID(id int64) FlexibleID {
	if id <= 0 {
		return FlexibleID{}
	}
	return FlexibleID{value: id, set: true}
}

// Ptr returns the id, or nil when none was given
func (f FlexibleID) Ptr() *int64 {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = FlexibleID{}
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*f = FlexibleID{}
			return nil
		}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return fmt.Errorf("invalid user id %s", data)
	}
	*f = NewFlexibleID(id)
	return nil
}

// MarshalJSON implements json.Marshaler
func (f FlexibleID) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(f.value, 10)), nil
}
