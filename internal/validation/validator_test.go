// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package validation

import (
	"strings"
	"testing"
)

type refreshRequest struct {
	Resolution int     `json:"resolution" validate:"min=0,max=15"`
	Hours      float64 `json:"hours" validate:"gt=0"`
	Scale      string  `json:"scale" validate:"oneof=linear log"`
	Label      string  `json:"label" validate:"omitempty,max=4"`
}

type cellRequest struct {
	Cell string `json:"cell" validate:"required,h3cell"`
}

type relayRequest struct {
	BaseURL string `json:"base_url" validate:"required,relayurl"`
}

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"refresh lower bounds", &refreshRequest{Resolution: 0, Hours: 0.5, Scale: "linear"}},
		{"refresh upper bounds", &refreshRequest{Resolution: 15, Hours: 168, Scale: "log", Label: "abcd"}},
		{"h3 cell", &cellRequest{Cell: "8928308280fffff"}},
		{"relay url", &relayRequest{BaseURL: "https://relay.example.com"}},
		{"relay url with trailing slash", &relayRequest{BaseURL: "http://127.0.0.1:8080/api/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(tt.input); err != nil {
				t.Errorf("ValidateStruct() = %v, want nil", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{
			name:      "resolution above max",
			input:     &refreshRequest{Resolution: 16, Hours: 1, Scale: "log"},
			wantField: "resolution",
			wantTag:   "max",
			wantMsg:   "resolution must be at most 15",
		},
		{
			name:      "negative resolution",
			input:     &refreshRequest{Resolution: -1, Hours: 1, Scale: "log"},
			wantField: "resolution",
			wantTag:   "min",
			wantMsg:   "resolution must be at least 0",
		},
		{
			name:      "zero hours",
			input:     &refreshRequest{Resolution: 9, Hours: 0, Scale: "log"},
			wantField: "hours",
			wantTag:   "gt",
			wantMsg:   "hours must be greater than 0",
		},
		{
			name:      "unknown scale",
			input:     &refreshRequest{Resolution: 9, Hours: 1, Scale: "sqrt"},
			wantField: "scale",
			wantTag:   "oneof",
			wantMsg:   "scale must be one of: linear log",
		},
		{
			name:      "long label",
			input:     &refreshRequest{Resolution: 9, Hours: 1, Scale: "log", Label: "abcde"},
			wantField: "label",
			wantTag:   "max",
			wantMsg:   "label must be at most 4 characters",
		},
		{
			name:      "missing cell",
			input:     &cellRequest{},
			wantField: "cell",
			wantTag:   "required",
			wantMsg:   "cell is required",
		},
		{
			name:      "bad cell",
			input:     &cellRequest{Cell: "not-a-cell"},
			wantField: "cell",
			wantTag:   "h3cell",
			wantMsg:   "cell must be a valid H3 cell id",
		},
		{
			name:      "ftp relay",
			input:     &relayRequest{BaseURL: "ftp://relay.example.com"},
			wantField: "base_url",
			wantTag:   "relayurl",
		},
		{
			name:      "relay with query",
			input:     &relayRequest{BaseURL: "https://relay.example.com/?x=1"},
			wantField: "base_url",
			wantTag:   "relayurl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if len(err.Fields) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(err.Fields), err)
			}
			got := err.Fields[0]
			if got.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", got.Field, tt.wantField)
			}
			if got.Rule != tt.wantTag {
				t.Errorf("Rule = %q, want %q", got.Rule, tt.wantTag)
			}
			if tt.wantMsg != "" && got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single error carries field details", func(t *testing.T) {
		err := ValidateStruct(&cellRequest{Cell: "zz"})
		if err == nil {
			t.Fatal("expected error")
		}
		apiErr := err.ToAPIError()
		if apiErr.Code != CodeValidationError {
			t.Errorf("Code = %q", apiErr.Code)
		}
		if apiErr.Details["field"] != "cell" {
			t.Errorf("Details[field] = %v", apiErr.Details["field"])
		}
	})

	t.Run("multiple errors are listed", func(t *testing.T) {
		err := ValidateStruct(&refreshRequest{Resolution: 99, Hours: -1, Scale: "x"})
		if err == nil {
			t.Fatal("expected error")
		}
		if len(err.Fields) != 3 {
			t.Fatalf("got %d errors, want 3", len(err.Fields))
		}
		apiErr := err.ToAPIError()
		for _, field := range []string{"resolution:", "hours:", "scale:"} {
			if !strings.Contains(apiErr.Message, field) {
				t.Errorf("Message %q missing %q", apiErr.Message, field)
			}
		}
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 3 {
			t.Errorf("Details[fields] = %#v", apiErr.Details["fields"])
		}
	})

	t.Run("empty error", func(t *testing.T) {
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Message != "Validation failed" {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})
}

func TestValidateStruct_NonStruct(t *testing.T) {
	err := ValidateStruct("not a struct")
	if err == nil {
		t.Fatal("expected error for non-struct input")
	}
	if err.Fields[0].Field != "unknown" {
		t.Errorf("Field = %q, want unknown", err.Fields[0].Field)
	}
}
