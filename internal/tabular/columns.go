package tabular

import "strings"

// Canonical sales fields, in resolution order.
const (
	FieldDate     = "date"
	FieldProduct  = "product"
	FieldQuantity = "quantity"
	FieldPrice    = "price"
	FieldCustomer = "customer"
	FieldPayment  = "payment"
)

var (
	requiredFields = []string{FieldDate, FieldProduct, FieldQuantity, FieldPrice}
	optionalFields = []string{FieldCustomer, FieldPayment}
)

// columnMapping maps a canonical field to a header index.
type columnMapping map[string]int

// normalizeHeaders lower-cases and trims every header.
func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// aliases lists the spellings each canonical field is matched against.
// "qty" is not a substring of "quantity", so it is spelled out.
var aliases = map[string][]string{
	FieldQuantity: {FieldQuantity, "qty"},
}

// matches is the bidirectional containment rule between a header and a
// canonical field. Empty headers never match.
func matches(header, field string) bool {
	if header == "" {
		return false
	}
	names, ok := aliases[field]
	if !ok {
		names = []string{field}
	}
	for _, name := range names {
		if strings.Contains(name, header) || strings.Contains(header, name) {
			return true
		}
	}
	return false
}

// resolveColumns builds the sales mapping. For each required field the first
// matching header in table order wins. A header claimed by two required fields
// belongs to the later one, leaving the earlier unresolved. Optional fields
// only consider headers no required field claimed.
func resolveColumns(headers []string) (columnMapping, int) {
	m := columnMapping{}
	owner := map[int]string{}

	for _, field := range requiredFields {
		for i, h := range headers {
			if !matches(h, field) {
				continue
			}
			if prev, taken := owner[i]; taken {
				delete(m, prev)
			}
			m[field] = i
			owner[i] = field
			break
		}
	}
	resolved := len(m)

	for _, field := range optionalFields {
		for i, h := range headers {
			if _, taken := owner[i]; taken {
				continue
			}
			if matches(h, field) {
				m[field] = i
				owner[i] = field
				break
			}
		}
	}
	return m, resolved
}
