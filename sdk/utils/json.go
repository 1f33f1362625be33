package utils

import (
	"encoding/json"
	"fmt"
)

// MarshalJSONIndent serializa v con indentación de dos espacios.
func MarshalJSONIndent(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// ToJSONString serializa v a string; en caso de error retorna "{}".
func ToJSONString(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
