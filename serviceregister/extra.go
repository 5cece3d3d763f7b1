package serviceregister

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ExtraMap is the node's PID/hostname/args/machine bag, stored as a JSON
// text column. No JSON-column type ships in the retrieved corpus's gorm
// usage (the teacher's own models are all flat scalar columns), so this
// implements database/sql's Scanner/Valuer directly rather than reaching
// for an unrelated ecosystem dependency just to hold one column.
type ExtraMap map[string]string

func (m ExtraMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *ExtraMap) Scan(src any) error {
	if src == nil {
		*m = ExtraMap{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("serviceregister: unsupported Scan source %T for ExtraMap", src)
	}
	if len(data) == 0 {
		*m = ExtraMap{}
		return nil
	}
	out := make(map[string]string)
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
