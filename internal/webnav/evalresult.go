// internal/webnav/evalresult.go
package webnav

import (
	"bytes"

	json "github.com/json-iterator/go"
)

// ValueKind tags the variant held by an EvalResult.
type ValueKind int

const (
	ValueUndefined ValueKind = iota
	ValueNull
	ValueNumber
	ValueString
	ValueBoolean
	ValueElement
	ValueFunction
	// ValueJSON is any other JSON-serializable value (objects, arrays).
	ValueJSON
	// ValueUnserializable holds String(value) for values that failed the JSON
	// round trip (cycles, BigInt, symbols).
	ValueUnserializable
)

var valueKindNames = map[ValueKind]string{
	ValueUndefined:      "undefined",
	ValueNull:           "null",
	ValueNumber:         "number",
	ValueString:         "string",
	ValueBoolean:        "boolean",
	ValueElement:        "element",
	ValueFunction:       "function",
	ValueJSON:           "json",
	ValueUnserializable: "unserializable",
}

func (k ValueKind) String() string {
	if name, ok := valueKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// EvalResult is the classified outcome of Evaluate. Type is the tag reported
// to the agent (a typeof string, or "null", "element", "function"); Value is
// the JSON encoding of the result and is empty for undefined.
type EvalResult struct {
	Kind  ValueKind
	Type  string
	Value []byte
}

// UndefinedResult is the result of an expression that produced undefined.
func UndefinedResult() *EvalResult {
	return &EvalResult{Kind: ValueUndefined, Type: "undefined"}
}

// NullResult is the result of an expression that produced null.
func NullResult() *EvalResult {
	return &EvalResult{Kind: ValueNull, Type: "null", Value: []byte("null")}
}

// ElementResult reports a DOM element by its "<tag>" or "<tag#id>" summary.
func ElementResult(summary string) *EvalResult {
	return &EvalResult{Kind: ValueElement, Type: "element", Value: quote(summary)}
}

// FunctionResult reports a function by its source text, truncated.
func FunctionResult(source string) *EvalResult {
	return &EvalResult{Kind: ValueFunction, Type: "function", Value: quote(TruncateRunes(source, FunctionSourceLimit))}
}

// ValueResult wraps a value that survived the JSON round trip. typ is its typeof tag.
func ValueResult(typ string, raw []byte) *EvalResult {
	kind := ValueJSON
	switch typ {
	case "number":
		kind = ValueNumber
	case "string":
		kind = ValueString
	case "boolean":
		kind = ValueBoolean
	}
	return &EvalResult{Kind: kind, Type: typ, Value: append([]byte(nil), raw...)}
}

// UnserializableResult wraps the String() coercion of a value that could not
// be serialized. typ keeps the value's original typeof tag.
func UnserializableResult(typ, str string) *EvalResult {
	return &EvalResult{Kind: ValueUnserializable, Type: typ, Value: quote(str)}
}

// Decode unmarshals the result value into v.
func (r *EvalResult) Decode(v interface{}) error {
	if r.Kind == ValueUndefined {
		return NewEvaluationError("result is undefined")
	}
	return json.Unmarshal(r.Value, v)
}

// Text returns the string form of element, function, string and
// unserializable results, and the raw JSON text otherwise.
func (r *EvalResult) Text() string {
	var s string
	switch r.Kind {
	case ValueElement, ValueFunction, ValueString, ValueUnserializable:
		if err := json.Unmarshal(r.Value, &s); err == nil {
			return s
		}
	case ValueUndefined:
		return "undefined"
	}
	return string(r.Value)
}

// MarshalJSON encodes the {result, type} payload; result is omitted for undefined.
func (r EvalResult) MarshalJSON() ([]byte, error) {
	typ, err := json.Marshal(r.Type)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r.Kind != ValueUndefined {
		value := r.Value
		if len(value) == 0 {
			value = []byte("null")
		}
		buf.WriteString(`"result":`)
		buf.Write(value)
		buf.WriteByte(',')
	}
	buf.WriteString(`"type":`)
	buf.Write(typ)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func quote(s string) []byte {
	b, err := json.Marshal(s)
	if err != nil {
		return []byte(`""`)
	}
	return b
}
