// Package types describes the value types that flow through query
// translation: the declared type of a lambda parameter, a member, a constant
// or a scalar node.
package types

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies a Type.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindString
	KindTime
	KindUUID
	KindBytes
	KindEnum
	KindEntity
	KindInterface
	KindObject
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindBool:      "bool",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindDecimal:   "decimal",
	KindString:    "string",
	KindTime:      "time",
	KindUUID:      "uuid",
	KindBytes:     "bytes",
	KindEnum:      "enum",
	KindEntity:    "entity",
	KindInterface: "interface",
	KindObject:    "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Type is a comparable value-type descriptor. Two Types are identical when
// == reports true: primitive kinds compare by kind and nullability, nominal
// types (enums, entities, interfaces) by identity of their declaration.
type Type struct {
	kind     Kind
	nullable bool
	named    *named
}

type named struct {
	name       string
	underlying Kind
	interfaces []Type
}

// Predeclared primitive types.
var (
	Bool    = Type{kind: KindBool}
	Int32   = Type{kind: KindInt32}
	Int64   = Type{kind: KindInt64}
	Float32 = Type{kind: KindFloat32}
	Float64 = Type{kind: KindFloat64}
	Decimal = Type{kind: KindDecimal}
	String  = Type{kind: KindString}
	Time    = Type{kind: KindTime}
	UUID    = Type{kind: KindUUID}
	Bytes   = Type{kind: KindBytes}
	Object  = Type{kind: KindObject}
)

// Primitive returns the non-nullable predeclared type for k.
func Primitive(k Kind) Type {
	return Type{kind: k}
}

// NewEnum declares an enum type backed by an integer kind.
func NewEnum(name string, underlying Kind) Type {
	return Type{kind: KindEnum, named: &named{name: name, underlying: underlying}}
}

// NewEntity declares an entity type, optionally implementing interfaces.
func NewEntity(name string, interfaces ...Type) Type {
	return Type{kind: KindEntity, named: &named{name: name, interfaces: interfaces}}
}

// NewInterface declares an interface type.
func NewInterface(name string) Type {
	return Type{kind: KindInterface, named: &named{name: name}}
}

// Kind returns the kind of t.
func (t Type) Kind() Kind { return t.kind }

// IsValid reports whether t was constructed (the zero Type is invalid).
func (t Type) IsValid() bool { return t.kind != KindInvalid }

// IsNullable reports whether t admits null.
func (t Type) IsNullable() bool { return t.nullable }

// AsNullable returns the nullable form of t.
func (t Type) AsNullable() Type {
	t.nullable = true
	return t
}

// Unwrap strips nullability.
func (t Type) Unwrap() Type {
	t.nullable = false
	return t
}

// Name returns the declared name for nominal types and the kind name otherwise.
func (t Type) Name() string {
	if t.named != nil {
		return t.named.name
	}
	return t.kind.String()
}

// Underlying returns the storage kind of an enum, or t's own kind.
func (t Type) Underlying() Kind {
	if t.kind == KindEnum && t.named != nil {
		return t.named.underlying
	}
	return t.kind
}

// Implements reports whether t declares iface among its interfaces.
func (t Type) Implements(iface Type) bool {
	if iface.kind != KindInterface || t.named == nil {
		return false
	}
	iface = iface.Unwrap()
	for _, i := range t.named.interfaces {
		if i == iface {
			return true
		}
	}
	return false
}

// IsNumeric reports whether t (ignoring nullability) is a numeric kind.
func (t Type) IsNumeric() bool {
	switch t.kind {
	case KindInt32, KindInt64, KindFloat32, KindFloat64, KindDecimal:
		return true
	}
	return false
}

// IsInteger reports whether t (ignoring nullability) is an integer kind.
func (t Type) IsInteger() bool {
	return t.kind == KindInt32 || t.kind == KindInt64
}

func (t Type) String() string {
	if t.nullable {
		return t.Name() + "?"
	}
	return t.Name()
}

// Zero returns the default value of t: nil for nullable types, the Go zero
// value of the backing representation otherwise.
func (t Type) Zero() any {
	if t.nullable {
		return nil
	}
	switch t.kind {
	case KindBool:
		return false
	case KindInt32:
		return int32(0)
	case KindInt64:
		return int64(0)
	case KindFloat32:
		return float32(0)
	case KindFloat64:
		return float64(0)
	case KindDecimal:
		return decimal.Zero
	case KindString:
		return ""
	case KindTime:
		return time.Time{}
	case KindUUID:
		return uuid.Nil
	case KindEnum:
		return Primitive(t.Underlying()).Zero()
	default:
		return nil
	}
}

// Of returns the Type describing a Go value. Pointers yield the nullable
// form of their element type; nil yields a nullable Object.
func Of(v any) Type {
	switch v.(type) {
	case nil:
		return Object.AsNullable()
	case bool:
		return Bool
	case int8, int16, int32, uint8, uint16:
		return Int32
	case int, int64, uint, uint32, uint64:
		return Int64
	case float32:
		return Float32
	case float64:
		return Float64
	case decimal.Decimal:
		return Decimal
	case string:
		return String
	case time.Time:
		return Time
	case uuid.UUID:
		return UUID
	case []byte:
		return Bytes
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Of(reflect.Zero(rv.Type().Elem()).Interface()).AsNullable()
		}
		return Of(rv.Elem().Interface()).AsNullable()
	}
	return Object
}

// Parse resolves a primitive type name such as "int32" or "string?".
// Aliases used by common schema notations ("int", "bigint", "text", ...) are
// accepted.
func Parse(s string) (Type, bool) {
	nullable := false
	if n := len(s); n > 0 && s[n-1] == '?' {
		nullable = true
		s = s[:n-1]
	}
	var t Type
	switch s {
	case "bool", "boolean":
		t = Bool
	case "int32", "int", "integer", "smallint":
		t = Int32
	case "int64", "long", "bigint":
		t = Int64
	case "float32", "float", "real":
		t = Float32
	case "float64", "double":
		t = Float64
	case "decimal", "numeric", "money":
		t = Decimal
	case "string", "text", "varchar":
		t = String
	case "time", "timestamp", "datetime", "date":
		t = Time
	case "uuid", "guid":
		t = UUID
	case "bytes", "blob", "bytea":
		t = Bytes
	default:
		return Type{}, false
	}
	if nullable {
		t = t.AsNullable()
	}
	return t, true
}
