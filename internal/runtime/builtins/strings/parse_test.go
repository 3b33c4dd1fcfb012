package strings

import (
	"testing"

	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/runtime/builtins/iter"
	"github.com/therealbnut/rune/internal/value"
)

func callParseInt(t *testing.T, input string) value.Value {
	t.Helper()

	fn := builtins.LookupInstance("std::string", "String", "parse_int")
	if fn == nil {
		t.Fatalf("parse_int not registered")
	}
	result, err := fn.Call(nil, []value.Value{value.String(input)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != value.KindResult {
		t.Fatalf("parse_int returned %v", result.Kind)
	}
	return result
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantInt int64
		wantErr string
	}{
		{
			name:    "valid_positive",
			input:   "123",
			wantInt: 123,
		},
		{
			name:    "valid_negative",
			input:   "-42",
			wantInt: -42,
		},
		{
			name:    "invalid_alpha",
			input:   "hello",
			wantErr: `invalid integer "hello"`,
		},
		{
			name:    "invalid_empty",
			input:   "",
			wantErr: `invalid integer ""`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := callParseInt(t, tc.input)
			payload := res.Seq.Values[0]

			if tc.wantErr != "" {
				if res.Index != 1 {
					t.Fatalf("expected Err, got %v", res)
				}
				if payload.Str != tc.wantErr {
					t.Fatalf("expected error %q, got %q", tc.wantErr, payload.Str)
				}
				return
			}
			if res.Index != 0 {
				t.Fatalf("expected Ok, got %v", res)
			}
			if payload.Kind != value.KindInteger || payload.Int != tc.wantInt {
				t.Fatalf("expected %d, got %v", tc.wantInt, payload)
			}
		})
	}
}

func TestChars(t *testing.T) {
	fn := builtins.LookupInstance("std::string", "String", "chars")
	v, err := fn.Call(nil, []value.Value{value.String("h\u00e9!")})
	if err != nil {
		t.Fatalf("chars: %v", err)
	}

	it := v.External.(*iter.Iterator)
	var got []rune
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, rune(c.Int))
	}
	if string(got) != "h\u00e9!" {
		t.Fatalf("unexpected chars: %q", string(got))
	}
}
