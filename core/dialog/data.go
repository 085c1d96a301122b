package dialog

import "time"

// Data is the per-user bag of temporary values handed to handlers.
type Data map[string]any

// String returns a non-empty string value.
func (d Data) String(key string) (string, bool) {
	v, ok := d[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Bool returns a boolean value, false when absent.
func (d Data) Bool(key string) bool {
	v, _ := d[key].(bool)
	return v
}

// Time returns a time value.
func (d Data) Time(key string) (time.Time, bool) {
	v, ok := d[key].(time.Time)
	return v, ok
}

// Strings returns a copy of a string slice value.
func (d Data) Strings(key string) []string {
	v, _ := d[key].([]string)
	if len(v) == 0 {
		return nil
	}
	return append([]string(nil), v...)
}

// Set stores a value.
func (d Data) Set(key string, value any) {
	d[key] = value
}

// Delete removes keys.
func (d Data) Delete(keys ...string) {
	for _, k := range keys {
		delete(d, k)
	}
}
