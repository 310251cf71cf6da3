package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/common"
)

var (
	compiledMu sync.Mutex
	compiled   = map[constants.DataType]*jsonschema.Schema{}
)

// compileSchema turns a schema map into a compiled validator.
func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func schemaForKind(kind constants.DataType) (*jsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()
	if s, ok := compiled[kind]; ok {
		return s, nil
	}
	m, ok := SchemaFor(kind)
	if !ok {
		return nil, nil
	}
	s, err := compileSchema(string(kind)+".json", m)
	if err != nil {
		return nil, err
	}
	compiled[kind] = s
	return s, nil
}

// ValidatePayload checks payload against the schema for kind. Kinds without a
// schema always pass. A mismatch is UnparsableResponse.
func ValidatePayload(kind constants.DataType, payload map[string]any) error {
	schema, err := schemaForKind(kind)
	if err != nil {
		return common.NewAppError(common.KindInternal, "schema for "+string(kind), err)
	}
	if schema == nil {
		return nil
	}
	if err := schema.Validate(jsonValue(payload)); err != nil {
		return common.NewAppError(common.KindUnparsableResponse, string(kind)+" does not match schema", err)
	}
	return nil
}

// jsonValue copies v into the shapes a JSON decoder with UseNumber produces.
func jsonValue(v any) any {
	switch t := v.(type) {
	case decimal.Decimal:
		return json.Number(t.String())
	case int:
		return json.Number(strconv.Itoa(t))
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case float32:
		return float64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = jsonValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonValue(e)
		}
		return out
	default:
		return v
	}
}
