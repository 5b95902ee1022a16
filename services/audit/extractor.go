package audit

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// Auditable lets an entity supply its own identifier and snapshot
// instead of having them derived by reflection.
type Auditable interface {
	AuditIdentifier() any
	AuditSnapshot() map[string]any
}

// AuditTyped overrides the subject type recorded for an entity
type AuditTyped interface {
	AuditType() string
}

var (
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
)

// Extractor builds attribute snapshots of domain entities.
//
// Snapshots hold persisted scalar fields only. Collections are skipped and
// to-one relations are reduced to "<field>_id". Struct tags control the
// result: the json name is used as key, and `db:"-"` or `audit:"-"` excludes
// a field. `audit:"id"` marks the identifier field.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new Extractor
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract returns the attribute snapshot of obj. It never panics: a failure
// part way through returns what was collected so far.
func (x *Extractor) Extract(obj any) (attrs map[string]any) {
	attrs = map[string]any{}
	defer func() {
		if r := recover(); r != nil {
			x.logger.Debug("partial audit snapshot",
				zap.String("type", fmt.Sprintf("%T", obj)),
				zap.Any("panic", r))
		}
	}()

	if obj == nil {
		return attrs
	}
	v := reflect.ValueOf(obj)
	if a, ok := asAuditable(v); ok {
		for k, val := range a.AuditSnapshot() {
			if isCollection(val) {
				continue
			}
			attrs[k] = val
		}
		return attrs
	}

	v, ok := indirect(v)
	if !ok || v.Kind() != reflect.Struct {
		return attrs
	}
	x.collect(v, attrs)
	return attrs
}

func (x *Extractor) collect(v reflect.Value, attrs map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)

		if !field.IsExported() || excluded(field) {
			continue
		}

		if field.Anonymous {
			et := field.Type
			if et.Kind() == reflect.Ptr {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct && !isScalarType(et) {
				if ev, ok := indirect(fv); ok {
					x.collect(ev, attrs)
				}
				continue
			}
		}

		key := fieldKey(field)
		if val, ok := scalarValue(fv); ok {
			attrs[key] = val
			continue
		}
		if isRelation(fv.Type()) {
			attrs[key+"_id"] = x.relationID(fv)
		}
	}
}

func isCollection(val any) bool {
	if val == nil {
		return false
	}
	switch reflect.TypeOf(val).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

func (x *Extractor) relationID(fv reflect.Value) any {
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil
		}
	} else if fv.CanAddr() {
		fv = fv.Addr()
	}
	id, ok := x.IdentifierOf(fv.Interface())
	if !ok {
		return nil
	}
	return id
}

// IdentifierOf resolves the identifier of obj. The lookup order is
// Auditable.AuditIdentifier, then the first field tagged `audit:"id"`,
// then a field named ID or Id. Embedded structs are searched after the
// fields declared directly. Zero values count as no identifier.
func (x *Extractor) IdentifierOf(obj any) (id any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Debug("audit identifier lookup failed",
				zap.String("type", fmt.Sprintf("%T", obj)),
				zap.Any("panic", r))
			id, ok = nil, false
		}
	}()

	if obj == nil {
		return nil, false
	}
	v := reflect.ValueOf(obj)
	if a, isAuditable := asAuditable(v); isAuditable {
		return normalizeID(a.AuditIdentifier())
	}

	v, valid := indirect(v)
	if !valid || v.Kind() != reflect.Struct {
		return nil, false
	}

	if fv, found := findField(v, hasIDTag); found {
		return normalizeID(fv.Interface())
	}
	if fv, found := findField(v, func(f reflect.StructField) bool {
		return f.Name == "ID" || f.Name == "Id"
	}); found {
		return normalizeID(fv.Interface())
	}
	return nil, false
}

// TypeName returns the subject type recorded for obj
func (x *Extractor) TypeName(obj any) string {
	if obj == nil {
		return ""
	}
	if typed, ok := obj.(AuditTyped); ok {
		return typed.AuditType()
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// findField searches direct fields first, then embedded structs
func findField(v reflect.Value, match func(reflect.StructField) bool) (reflect.Value, bool) {
	t := v.Type()
	var embedded []reflect.Value
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Anonymous {
			if ev, ok := indirect(v.Field(i)); ok && ev.Kind() == reflect.Struct {
				embedded = append(embedded, ev)
			}
			continue
		}
		if match(field) {
			return v.Field(i), true
		}
	}
	for _, ev := range embedded {
		if fv, ok := findField(ev, match); ok {
			return fv, true
		}
	}
	return reflect.Value{}, false
}

func hasIDTag(f reflect.StructField) bool {
	for _, opt := range strings.Split(f.Tag.Get("audit"), ",") {
		if strings.TrimSpace(opt) == "id" {
			return true
		}
	}
	return false
}

func normalizeID(raw any) (any, bool) {
	if raw == nil {
		return nil, false
	}
	val, ok := scalarValue(reflect.ValueOf(raw))
	if !ok || val == nil {
		return nil, false
	}
	if reflect.ValueOf(val).IsZero() {
		return nil, false
	}
	return val, true
}

func asAuditable(v reflect.Value) (Auditable, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return nil, false
	}
	if a, ok := v.Interface().(Auditable); ok {
		return a, true
	}
	if v.Kind() != reflect.Ptr {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		if a, ok := p.Interface().(Auditable); ok {
			return a, true
		}
	}
	return nil, false
}

// indirect dereferences pointers and interfaces; ok is false for nil
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

func excluded(f reflect.StructField) bool {
	return f.Tag.Get("db") == "-" || f.Tag.Get("audit") == "-"
}

func fieldKey(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("json"); ok {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return snakeCase(f.Name)
}

// scalarValue reports whether v holds a persisted scalar and returns it
func scalarValue(v reflect.Value) (any, bool) {
	t := v.Type()
	if t.Kind() == reflect.Ptr {
		if !isScalarType(t.Elem()) && !t.Implements(valuerType) {
			return nil, false
		}
		if v.IsNil() {
			return nil, true
		}
		if t.Implements(valuerType) {
			return valuerValue(v)
		}
		return scalarValue(v.Elem())
	}

	if t == timeType {
		return v.Interface(), true
	}
	if t.Implements(valuerType) {
		return valuerValue(v)
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v.Interface(), true
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return v.Interface(), true
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			if v.IsNil() {
				return nil, true
			}
			return append([]byte(nil), v.Bytes()...), true
		}
	}
	return nil, false
}

func valuerValue(v reflect.Value) (any, bool) {
	val, err := v.Interface().(driver.Valuer).Value()
	if err != nil {
		return nil, false
	}
	return val, true
}

func isScalarType(t reflect.Type) bool {
	if t == timeType || t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Array, reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	}
	return false
}

func isRelation(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && !isScalarType(t)
}

func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
