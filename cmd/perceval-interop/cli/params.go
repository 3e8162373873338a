// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagBinder lets a field type register its own flags instead of going
// through struct tags. Fields whose address implements it (embedded or
// named) are bound by calling AddFlags; the platform connection flags
// use this to keep their flag names in one place.
type FlagBinder interface {
	AddFlags(flagSet *pflag.FlagSet)
}

// FlagsFromParams builds a [pflag.FlagSet] named name from the tagged
// fields of params, which must point to a struct. Panics when the
// params struct is malformed; that is a programming error, not runtime
// data.
//
// Typical use inside a command definition:
//
//	var params refreshParams
//	Flags: func() *pflag.FlagSet {
//		return cli.FlagsFromParams("refresh", &params)
//	},
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers a pflag entry for every tagged field of the
// struct params points to.
//
// A field participates when it carries a flag:"name" tag; "name,n"
// adds the single-character shorthand n. desc:"..." is the help text
// and default:"..." the default value, parsed per the field type.
// Supported types: string, bool, int, int64, float64, [time.Duration],
// and []string (default split on commas).
//
// Struct-typed fields are special. When their pointer implements
// [FlagBinder] they bind themselves through AddFlags; embedded structs
// without it contribute their own tagged fields recursively, which is
// how [JSONOutput] adds --json to every command embedding it.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	target := reflect.ValueOf(params)
	if target.Kind() != reflect.Ptr || target.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStruct(target.Elem(), flagSet)
}

func bindStruct(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	structType := structValue.Type()

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		value := structValue.Field(i)

		if field.Type.Kind() == reflect.Struct {
			// Self-binding types win over tag reflection. The
			// Interface() call needs an exported field.
			if field.IsExported() && value.CanAddr() {
				if binder, ok := value.Addr().Interface().(FlagBinder); ok {
					binder.AddFlags(flagSet)
					continue
				}
			}
			if field.Anonymous {
				if err := bindStruct(value, flagSet); err != nil {
					return fmt.Errorf("embedded %s: %w", field.Name, err)
				}
				continue
			}
		}

		tag := field.Tag.Get("flag")
		if tag == "" {
			continue
		}
		if !value.CanAddr() {
			return fmt.Errorf("field %s: not addressable", field.Name)
		}

		name, shorthand, _ := strings.Cut(tag, ",")
		spec := flagSpec{
			name:        name,
			shorthand:   shorthand,
			description: field.Tag.Get("desc"),
			fallback:    field.Tag.Get("default"),
		}
		if err := spec.register(value.Addr().Interface(), flagSet); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

// flagSpec is one flag's tag data, ready to register.
type flagSpec struct {
	name        string
	shorthand   string
	description string
	fallback    string
}

func (s flagSpec) register(pointer any, flagSet *pflag.FlagSet) error {
	switch target := pointer.(type) {
	case *string:
		flagSet.StringVarP(target, s.name, s.shorthand, s.fallback, s.description)
		return nil
	case *bool:
		return registerVar(s, target, strconv.ParseBool, flagSet.BoolVarP)
	case *int:
		return registerVar(s, target, strconv.Atoi, flagSet.IntVarP)
	case *int64:
		return registerVar(s, target, parseInt64, flagSet.Int64VarP)
	case *float64:
		return registerVar(s, target, parseFloat64, flagSet.Float64VarP)
	case *time.Duration:
		return registerVar(s, target, time.ParseDuration, flagSet.DurationVarP)
	case *[]string:
		var fallback []string
		if s.fallback != "" {
			fallback = strings.Split(s.fallback, ",")
		}
		flagSet.StringSliceVarP(target, s.name, s.shorthand, fallback, s.description)
		return nil
	default:
		return fmt.Errorf("unsupported type %s for flag --%s",
			reflect.TypeOf(pointer).Elem(), s.name)
	}
}

// registerVar parses the tag default with parse and registers the flag
// through the matching pflag *VarP function.
func registerVar[T any](s flagSpec, target *T, parse func(string) (T, error), bind func(*T, string, string, T, string)) error {
	var fallback T
	if s.fallback != "" {
		parsed, err := parse(s.fallback)
		if err != nil {
			return fmt.Errorf("default for --%s: %w", s.name, err)
		}
		fallback = parsed
	}
	bind(target, s.name, s.shorthand, fallback, s.description)
	return nil
}

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func parseFloat64(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
