package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"prospector.ai/internal/game"
)

//go:embed schemas/constants.schema.json
var constantsSchemaJSON string

var (
	constantsSchemaOnce sync.Once
	constantsSchema     *jsonschema.Schema
	constantsSchemaErr  error
)

func compiledConstantsSchema() (*jsonschema.Schema, error) {
	constantsSchemaOnce.Do(func() {
		constantsSchema, constantsSchemaErr = jsonschema.CompileString("constants.schema.json", constantsSchemaJSON)
	})
	return constantsSchema, constantsSchemaErr
}

// ParseConstants validates and decodes the constants document sent on the
// first line of a session.
func ParseConstants(b []byte) (game.Constants, error) {
	var c game.Constants
	schema, err := compiledConstantsSchema()
	if err != nil {
		return c, fmt.Errorf("compile constants schema: %w", err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return c, &Error{Code: ErrProtoBadConst, Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return c, &Error{Code: ErrProtoBadConst, Err: err}
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, &Error{Code: ErrProtoBadConst, Err: err}
	}
	return c.WithDefaults(), nil
}
