/*
   Copyright 2025 The Excore Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package literal_test

import (
	"reflect"
	"testing"

	"excore.dev/excore/literal"
)

func TestParseScalars(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"1", int64(1)},
		{"2.5", 2.5},
		{"true", true},
		{"False", false},
		{"None", nil},
		{"none", nil},
		{"hello", "hello"},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := literal.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	got, err := literal.Parse("[1, 2, 3]")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []any{int64(1), int64(2), int64(3)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse() = %#v, want %#v", got, want)
	}
}

func TestParseTuple(t *testing.T) {
	got, err := literal.Parse("(a, b)")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []any{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse() = %#v, want %#v", got, want)
	}
}

func TestParseNested(t *testing.T) {
	got, err := literal.Parse("[(1,2),[a,b]]")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []any{
		[]any{int64(1), int64(2)},
		[]any{"a", "b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse() = %#v, want %#v", got, want)
	}
}

func TestParseUnbalancedBrackets(t *testing.T) {
	if _, err := literal.Parse("[(1,2]"); err == nil {
		t.Fatalf("Parse() error = nil, want non-nil for unbalanced inner brackets")
	}
}

func TestParseEmptyString(t *testing.T) {
	got, err := literal.Parse("")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "" {
		t.Fatalf("Parse(\"\") = %#v, want empty string", got)
	}
}
