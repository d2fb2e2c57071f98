package spec

import "time"

// TypeOf maps a schema node's type/format pair to a canonical type name.
// int32 keeps the base type, int64 becomes "long", any other format wins
// over the type. Already-canonical names are returned unchanged.
func TypeOf(schema *Node) string {
	if schema == nil {
		return ""
	}
	switch format := schema.String("format"); format {
	case "":
		return schema.String("type")
	case "int32":
		return schema.String("type")
	case "int64":
		return "long"
	default:
		return format
	}
}

// SampleValue returns the example value for a canonical type, or nil when
// the type has no sample.
func SampleValue(typ string, now time.Time) *Node {
	switch typ {
	case "long", "integer":
		return NewNumber("0")
	case "boolean":
		return NewBool(false)
	case "double", "number":
		return NewNumber("0.0")
	case "string":
		return NewString("string")
	case "date":
		return NewString(now.UTC().Format("2006-01-02"))
	case "date-time":
		return NewString(now.UTC().Format("2006-01-02T15:04:05.000Z"))
	}
	return nil
}
