package llm

import "github.com/joseph-ayodele/store-extractor/constants"

// Schemas here check types, plus the GST slab range. Every field is nullable
// and none is required, so a model that leaves a value out still passes; a
// value of the wrong shape (items as a string, a total as an object) does not.

func nullable(t string) map[string]any {
	return map[string]any{"type": []string{t, "null"}}
}

// nullableRange is a nullable number within [min, max].
func nullableRange(min, max float64) map[string]any {
	return map[string]any{"type": []string{"number", "null"}, "minimum": min, "maximum": max}
}

func nullableArrayOf(item map[string]any) map[string]any {
	return map[string]any{"type": []string{"array", "null"}, "items": item}
}

func object(props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props}
}

// numericFields lists, per kind, the top-level numeric fields and the numeric
// fields of the kind's line-item array.
type numericFields struct {
	top       []string
	itemsKey  string
	itemField []string
}

var numericByKind = map[constants.DataType]numericFields{
	constants.DataTypeInvoice: {
		top:       []string{"total_amount", "gst_amount"},
		itemsKey:  "items",
		itemField: []string{"quantity", "unit_price", "gst_rate"},
	},
	constants.DataTypeReceipt: {
		top:       []string{"total_amount"},
		itemsKey:  "items",
		itemField: []string{"price"},
	},
	constants.DataTypeBankStatement: {
		top:       []string{"opening_balance", "closing_balance"},
		itemsKey:  "transactions",
		itemField: []string{"debit", "credit", "balance"},
	},
}

// SchemaFor returns the JSON Schema for model output of kind, if one exists.
func SchemaFor(kind constants.DataType) (map[string]any, bool) {
	switch kind {
	case constants.DataTypeInvoice:
		return object(map[string]any{
			"supplier_name":  nullable("string"),
			"invoice_date":   nullable("string"),
			"invoice_number": nullable("string"),
			"items": nullableArrayOf(object(map[string]any{
				"item_name":  nullable("string"),
				"quantity":   nullable("number"),
				"unit_price": nullable("number"),
				"gst_rate":   nullableRange(0, 28),
			})),
			"total_amount":  nullable("number"),
			"gst_amount":    nullable("number"),
			"payment_terms": nullable("string"),
		}), true
	case constants.DataTypeReceipt:
		return object(map[string]any{
			"merchant_name": nullable("string"),
			"date":          nullable("string"),
			"total_amount":  nullable("number"),
			"items": nullableArrayOf(object(map[string]any{
				"name":  nullable("string"),
				"price": nullable("number"),
			})),
			"payment_method": nullable("string"),
		}), true
	case constants.DataTypeBankStatement:
		return object(map[string]any{
			"account_number":   nullable("string"),
			"statement_period": nullable("string"),
			"opening_balance":  nullable("number"),
			"closing_balance":  nullable("number"),
			"transactions": nullableArrayOf(object(map[string]any{
				"date":        nullable("string"),
				"description": nullable("string"),
				"debit":       nullable("number"),
				"credit":      nullable("number"),
				"balance":     nullable("number"),
			})),
		}), true
	default:
		return nil, false
	}
}
