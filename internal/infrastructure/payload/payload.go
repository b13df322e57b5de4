package payload

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/receiptsense/backend/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// linesSchema is the contract for {"lines": [...]} request bodies and files
const linesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["lines"],
  "properties": {
    "lines": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`

// LinesRequest is the decoded form of a lines payload
type LinesRequest struct {
	Lines []string `json:"lines"`
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("lines.json", strings.NewReader(linesSchema)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("lines.json")
	})
	return compiled, compileErr
}

// DecodeLines validates data against the lines schema and returns the lines.
// Anything that is not an object with a string array under "lines" wraps domain.ErrInvalidInput.
func DecodeLines(data []byte) ([]string, error) {
	s, err := schema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: body is not JSON: %v", domain.ErrInvalidInput, err)
	}
	if err := s.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	var req LinesRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if req.Lines == nil {
		req.Lines = []string{}
	}
	return req.Lines, nil
}

// SplitText splits plain text into lines, accepting LF or CRLF endings.
// A single trailing newline does not produce an extra empty line.
func SplitText(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{}
	}
	return strings.Split(text, "\n")
}
