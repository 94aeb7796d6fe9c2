// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}

	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

// searchInput mirrors the shape of the API's search request.
type searchInput struct {
	Descriptor string `validate:"required,min=2,max=500"`
	TopK       int    `validate:"min=0,max=100"`
	Gender     string `validate:"omitempty,oneof=men women unisex"`
	Currency   string `validate:"omitempty,len=3"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input searchInput
	}{
		{
			name: "all fields set",
			input: searchInput{
				Descriptor: "navy wool overcoat",
				TopK:       5,
				Gender:     "men",
				Currency:   "USD",
			},
		},
		{
			name: "minimum descriptor",
			input: searchInput{
				Descriptor: "ab",
			},
		},
		{
			name: "maximum top_k",
			input: searchInput{
				Descriptor: "white sneakers",
				TopK:       100,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err != nil {
				t.Errorf("ValidateStruct() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     searchInput
		wantField string
		wantTag   string
	}{
		{
			name:      "missing descriptor",
			input:     searchInput{Descriptor: ""},
			wantField: "Descriptor",
			wantTag:   "required",
		},
		{
			name:      "descriptor too short",
			input:     searchInput{Descriptor: "a"},
			wantField: "Descriptor",
			wantTag:   "min",
		},
		{
			name:      "top_k too high",
			input:     searchInput{Descriptor: "coat", TopK: 200},
			wantField: "TopK",
			wantTag:   "max",
		},
		{
			name:      "negative top_k",
			input:     searchInput{Descriptor: "coat", TopK: -1},
			wantField: "TopK",
			wantTag:   "min",
		},
		{
			name:      "unknown gender",
			input:     searchInput{Descriptor: "coat", Gender: "kids"},
			wantField: "Gender",
			wantTag:   "oneof",
		},
		{
			name:      "currency wrong length",
			input:     searchInput{Descriptor: "coat", Currency: "DOLLARS"},
			wantField: "Currency",
			wantTag:   "len",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() should have returned an error")
			}

			errs := err.Errors()
			if len(errs) == 0 {
				t.Fatal("ValidationErrors should contain at least one error")
			}

			found := false
			for _, e := range errs {
				if e.Field() == tt.wantField && e.Tag() == tt.wantTag {
					found = true
					break
				}
			}

			if !found {
				t.Errorf("Expected error on field %s with tag %s, got: %v", tt.wantField, tt.wantTag, errs)
			}
		})
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	input := searchInput{Descriptor: ""}

	err := ValidateStruct(&input)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	apiErr := err.ToAPIError()

	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected code VALIDATION_ERROR, got %s", apiErr.Code)
	}

	if apiErr.Message == "" {
		t.Error("Expected non-empty message")
	}

	if apiErr.Details == nil {
		t.Error("Expected details to be set")
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	input := searchInput{
		Descriptor: "",
		TopK:       200,
		Gender:     "kids",
	}

	err := ValidateStruct(&input)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	apiErr := err.ToAPIError()

	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected code VALIDATION_ERROR, got %s", apiErr.Code)
	}

	if apiErr.Details == nil {
		t.Fatal("Expected details to contain field information")
	}

	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("Expected details to contain 'fields' key")
	}
}

// budgetInput exercises cross-field validation the way the API's budget
// constraint does.
type budgetInput struct {
	SoftCap float64 `validate:"gt=0"`
	HardCap float64 `validate:"gtefield=SoftCap"`
}

func TestCrossFieldValidation(t *testing.T) {
	valid := budgetInput{SoftCap: 150, HardCap: 300}
	if err := ValidateStruct(&valid); err != nil {
		t.Errorf("ValidateStruct() returned unexpected error: %v", err)
	}

	equal := budgetInput{SoftCap: 150, HardCap: 150}
	if err := ValidateStruct(&equal); err != nil {
		t.Errorf("equal caps should validate: %v", err)
	}

	inverted := budgetInput{SoftCap: 300, HardCap: 150}
	err := ValidateStruct(&inverted)
	if err == nil {
		t.Fatal("inverted caps should fail validation")
	}
	if err.Errors()[0].Tag() != "gtefield" {
		t.Errorf("expected gtefield failure, got %s", err.Errors()[0].Tag())
	}
}

type nestedInput struct {
	Inner innerInput `validate:"required"`
}

type innerInput struct {
	Value string `validate:"required"`
}

func TestNestedStructValidation(t *testing.T) {
	valid := nestedInput{Inner: innerInput{Value: "test"}}
	if err := ValidateStruct(&valid); err != nil {
		t.Errorf("ValidateStruct() returned unexpected error for valid nested struct: %v", err)
	}

	invalid := nestedInput{Inner: innerInput{Value: ""}}
	if err := ValidateStruct(&invalid); err == nil {
		t.Error("ValidateStruct() should have returned error for invalid nested struct")
	}
}

func TestErrorMessages(t *testing.T) {
	input := searchInput{Descriptor: "", TopK: 200}

	err := ValidateStruct(&input)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	msg := err.Error()
	if msg == "" {
		t.Error("Error message should not be empty")
	}

	if !strings.Contains(msg, "Descriptor") && !strings.Contains(msg, "TopK") {
		t.Errorf("Error message should reference failed field: %s", msg)
	}
}
