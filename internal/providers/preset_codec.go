package providers

import (
	"encoding/json"
	"strings"
)

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinCSV(vals []string) string {
	return strings.Join(vals, ",")
}

func biasToJSON(bias map[string]int) string {
	if bias == nil {
		bias = map[string]int{}
	}
	data, _ := json.Marshal(bias)
	return string(data)
}

func parseBiasJSON(s string) map[string]int {
	bias := map[string]int{}
	_ = json.Unmarshal([]byte(s), &bias)
	return bias
}
