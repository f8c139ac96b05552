package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const maxBodyBytes = 1 << 20

// Request body schemas. IDs are plain non-empty strings so the same
// handlers serve both UUID-keyed Postgres catalogs and slug-keyed seed
// catalogs.
var (
	markCompletedSchema = mustSchema(`{
		"type": "object",
		"required": ["studentId", "qnaId"],
		"properties": {
			"studentId": {"type": "string", "minLength": 1},
			"qnaId": {"type": "string", "minLength": 1},
			"status": {"enum": ["pending", "inProgress", "completed"]}
		}
	}`)

	markInProgressSchema = mustSchema(`{
		"type": "object",
		"required": ["studentId", "qnaId"],
		"properties": {
			"studentId": {"type": "string", "minLength": 1},
			"qnaId": {"type": "string", "minLength": 1}
		}
	}`)

	updateWatchSchema = mustSchema(`{
		"type": "object",
		"required": ["studentId", "lectureId", "watchedTime"],
		"properties": {
			"studentId": {"type": "string", "minLength": 1},
			"lectureId": {"type": "string", "minLength": 1},
			"watchedTime": {"type": "integer", "minimum": 0}
		}
	}`)
)

func mustSchema(doc string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return schema
}

// validationError carries the joined schema violation messages.
type validationError struct {
	message string
}

func (e *validationError) Error() string { return e.message }

// readBody validates the request body against the schema and returns the
// raw bytes for decoding.
func readBody(r *http.Request, schema *gojsonschema.Schema) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, &validationError{"could not read request body"}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, &validationError{"request body must be valid JSON"}
	}
	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return nil, &validationError{strings.Join(messages, ", ")}
	}
	return body, nil
}
