package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/qri-io/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const maxBodyBytes = 1 << 20

var schemas = mustLoadSchemas("shift", "job", "signup", "signin", "profile", "export")

func mustLoadSchemas(names ...string) map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		b, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			panic(fmt.Sprintf("schema %s: %v", name, err))
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			panic(fmt.Sprintf("schema %s: %v", name, err))
		}
		out[name] = rs
	}
	return out
}

var errSchema = errors.New("invalid request")

// validatePayload checks data against the named schema and returns a single
// error listing every violation.
func validatePayload(ctx context.Context, schema string, data []byte) error {
	rs, ok := schemas[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}
	keyErrs, err := rs.ValidateBytes(ctx, data)
	if err != nil {
		return fmt.Errorf("%w: %v", errSchema, err)
	}
	if len(keyErrs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(keyErrs))
	for _, ke := range keyErrs {
		path := ke.PropertyPath
		if path == "" || path == "/" {
			msgs = append(msgs, ke.Message)
			continue
		}
		msgs = append(msgs, strings.TrimPrefix(path, "/")+": "+ke.Message)
	}
	return fmt.Errorf("%w: %s", errSchema, strings.Join(msgs, "; "))
}

// decodeValid reads the body, validates it against schema and decodes it
// into dst. On failure it writes a 400 and returns false.
func decodeValid(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, "cannot read request body", http.StatusBadRequest)
		return false
	}
	if !json.Valid(body) {
		writeError(w, "invalid request: malformed JSON", http.StatusBadRequest)
		return false
	}
	if err := validatePayload(r.Context(), schema, body); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
