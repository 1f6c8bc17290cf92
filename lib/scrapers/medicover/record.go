package medicover

import (
	"fmt"
)

// Record is an appointment or slot exactly as the portal returned it. Only
// the keys with accessors below are ever interpreted.
type Record map[string]any

func (r Record) StringField(key string) (string, error) {
	value, ok := r[key]
	if !ok {
		return "", missingField(key)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field %s: expected string, got %T", key, value)
	}
	return str, nil
}

func (r Record) AppointmentDate() (string, error) {
	return r.StringField("appointmentDate")
}

func (r Record) DoctorName() (string, error) {
	return r.StringField("doctorName")
}

// Items returns the records under the "items" key.
func (r Record) Items() ([]Record, error) {
	value, ok := r["items"]
	if !ok {
		return nil, missingField("items")
	}
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("field items: expected array, got %T", value)
	}

	items := make([]Record, len(list))
	for i, v := range list {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field items[%d]: expected object, got %T", i, v)
		}
		items[i] = obj
	}
	return items, nil
}
