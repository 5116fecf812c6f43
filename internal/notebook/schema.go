package notebook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// structureSchema pins down only the cell-sequence shape; cell bodies beyond
// cell_type and source are left to Jupyter.
const structureSchema = `{
  "type": "object",
  "required": ["cells"],
  "properties": {
    "nbformat": {"type": "integer", "minimum": 1},
    "nbformat_minor": {"type": "integer", "minimum": 0},
    "cells": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["cell_type", "source"],
        "properties": {
          "cell_type": {"type": "string", "minLength": 1},
          "id": {"type": "string"},
          "source": {
            "oneOf": [
              {"type": "string"},
              {"type": "array", "items": {"type": "string"}}
            ]
          }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func structure() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("notebook.json", strings.NewReader(structureSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("notebook.json")
	})
	return compiledSchema, schemaErr
}

// Issue is one structural problem found in a document.
type Issue struct {
	Location string
	Message  string
}

// StructureError lists every structural problem found in a document.
type StructureError struct {
	Issues []Issue
}

func (e *StructureError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := issue.Location
		if location == "" {
			location = "/"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	return "notebook: " + strings.Join(parts, "; ")
}

// Unwrap marks structure failures as undecodable documents.
func (e *StructureError) Unwrap() error {
	return ErrUndecodable
}

func checkStructure(data []byte) error {
	schema, err := structure()
	if err != nil {
		return fmt.Errorf("notebook: compile structure schema: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if err := schema.Validate(doc); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return &StructureError{Issues: collectIssues(validationErr)}
		}
		return fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return nil
}

func collectIssues(err *jsonschema.ValidationError) []Issue {
	var issues []Issue
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, Issue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
