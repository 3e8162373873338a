// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
)

// JSONOutput gives a params struct the --json flag. Commands embed it
// and bracket their text formatting with EmitJSON:
//
//	type listParams struct {
//	    cli.JSONOutput
//	    Dir string `flag:"dir" desc:"notebook directory"`
//	}
//
//	// In Run:
//	if done, err := params.EmitJSON(entries); done {
//	    return err
//	}
//	// ... text formatting ...
type JSONOutput struct {
	OutputJSON bool `flag:"json" desc:"output as JSON"`
}

// EmitJSON writes result to stdout as indented JSON when --json is
// set, reporting done=true so the caller skips its text path. With
// --json unset it reports done=false and writes nothing.
//
// A nil slice result serializes as [] rather than null; scripts
// consuming list output get an array either way.
func (j *JSONOutput) EmitJSON(result any) (done bool, err error) {
	if !j.OutputJSON {
		return false, nil
	}
	if value := reflect.ValueOf(result); value.Kind() == reflect.Slice && value.IsNil() {
		result = reflect.MakeSlice(value.Type(), 0, 0).Interface()
	}
	return true, WriteJSON(result)
}

// WriteJSON prints value to stdout as indented JSON with a trailing
// newline. Commands with a --json flag go through
// [JSONOutput.EmitJSON] instead; this is for output that is always
// JSON.
func WriteJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "%s\n", data)
	return err
}
