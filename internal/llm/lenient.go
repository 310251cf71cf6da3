package llm

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/store-extractor/constants"
)

var amountNoise = strings.NewReplacer(",", "", "₹", "", "$", "", "Rs.", "", "Rs", "", "INR", "", " ", "")

// CoerceNumbers rewrites numeric fields of kind that the model returned as
// text ("1,250.00", "₹45") into decimals, and blank or "null" text into nil.
// Values it cannot read are left for schema validation to reject. It returns
// the paths it changed.
func CoerceNumbers(kind constants.DataType, payload map[string]any) []string {
	fields, ok := numericByKind[kind]
	if !ok {
		return nil
	}

	var changed []string
	for _, k := range fields.top {
		if coerceField(payload, k) {
			changed = append(changed, k)
		}
	}

	items, _ := payload[fields.itemsKey].([]any)
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		for _, k := range fields.itemField {
			if coerceField(m, k) {
				changed = append(changed, fields.itemsKey+"["+strconv.Itoa(i)+"]."+k)
			}
		}
	}
	return changed
}

func coerceField(m map[string]any, key string) bool {
	s, ok := m[key].(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
		m[key] = nil
		return true
	}
	d, err := decimal.NewFromString(amountNoise.Replace(s))
	if err != nil {
		return false
	}
	m[key] = d
	return true
}
