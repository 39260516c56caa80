package container

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const (
	injectTag      = "inject"
	variablePrefix = "variable:"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Inject fills the exported fields of the struct pointed to by target that
// carry an `inject` tag:
//
//	Repo   *Repository `inject:""`                // by type
//	Clock  Clock       `inject:"clock"`           // by component name
//	Greet  string      `inject:"variable:greeting"`
//
// Once fields are set, PostConstruct runs if target implements PostConstructor.
// Non-struct targets are accepted and left untouched.
func (c *Container) Inject(ctx context.Context, target interface{}) error {
	if state := c.State(); state != StateStarted {
		return ContainerStateError("inject", string(state))
	}

	elem, err := targetElem(target)
	if err != nil {
		return err
	}

	if elem.Kind() == reflect.Struct {
		elemType := elem.Type()
		for i := 0; i < elemType.NumField(); i++ {
			field := elemType.Field(i)
			tag, ok := field.Tag.Lookup(injectTag)
			if !ok {
				continue
			}
			if !field.IsExported() {
				return InjectionError(elemType.String(), field.Name, fmt.Errorf("field is not exported"))
			}
			if err := c.injectField(elem.Field(i), tag); err != nil {
				return InjectionError(elemType.String(), field.Name, err)
			}
		}
	}

	if pc, ok := target.(PostConstructor); ok {
		if err := pc.PostConstruct(c); err != nil {
			return PostConstructError(target, err)
		}
	}

	typeName := reflect.TypeOf(target).String()
	c.metrics.RecordInjection(typeName)
	c.logger.Debug("Injected object", "type", typeName)
	return nil
}

// Release runs the PreDestroy hook of target if it has one
func (c *Container) Release(ctx context.Context, target interface{}) error {
	if pd, ok := target.(PreDestroyer); ok {
		pd.PreDestroy()
		c.logger.Debug("Released object", "type", fmt.Sprintf("%T", target))
	}
	return nil
}

func (c *Container) injectField(field reflect.Value, tag string) error {
	switch {
	case strings.HasPrefix(tag, variablePrefix):
		key := strings.TrimPrefix(tag, variablePrefix)
		return setVariable(field, c.GetVariable(key))

	case tag == "":
		_, comp, ok := findByType(c.registry, field.Type())
		if !ok {
			return ErrorWithCode("COMPONENT_TYPE_NOT_FOUND", "no component found matching type %v", field.Type())
		}
		assignComponent(field, comp)
		return nil

	default:
		comp, err := c.registry.Get(tag)
		if err != nil {
			return err
		}
		compType := reflect.TypeOf(comp)
		if !compType.AssignableTo(field.Type()) && compType != reflect.PointerTo(field.Type()) {
			return ComponentTypeError(tag, field.Type().String(), compType.String())
		}
		assignComponent(field, comp)
		return nil
	}
}

// setVariable converts raw into the field's kind. An empty value leaves the zero value.
func setVariable(field reflect.Value, raw string) error {
	if raw == "" {
		return nil
	}

	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported variable field type %v", field.Type())
		}
		parts := strings.Split(raw, ",")
		field.Set(reflect.ValueOf(parts).Convert(field.Type()))
	default:
		return fmt.Errorf("unsupported variable field type %v", field.Type())
	}
	return nil
}
