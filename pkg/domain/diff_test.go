package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		old  map[string]Value
		new  map[string]Value
		want map[string]any
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  map[string]Value{"a": Number(1)},
			want: map[string]any{"a": Number(1)},
		},
		{
			name: "No Changes",
			old:  map[string]Value{"a": Number(1), "b": String("x")},
			new:  map[string]Value{"a": Number(1), "b": String("x")},
			want: nil,
		},
		{
			name: "Modified and Added",
			old:  map[string]Value{"coins": Number(10)},
			new:  map[string]Value{"coins": Number(15), "flag": Bool(true)},
			want: map[string]any{"coins": Number(15), "flag": Bool(true)},
		},
		{
			name: "Kind Change Counts as Modification",
			old:  map[string]Value{"x": Number(1)},
			new:  map[string]Value{"x": String("1")},
			want: map[string]any{"x": String("1")},
		},
		{
			name: "Deleted Keys Map to Nil",
			old:  map[string]Value{"gone": Bool(false), "kept": Number(2)},
			new:  map[string]Value{"kept": Number(2)},
			want: map[string]any{"gone": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Diff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMerge_RoundTripsDiff(t *testing.T) {
	before := map[string]Value{"a": Number(1), "b": String("x"), "c": Bool(true)}
	after := map[string]Value{"a": Number(2), "c": Bool(true), "d": String("new")}

	local := map[string]Value{"a": Number(1), "b": String("x"), "c": Bool(true)}
	Merge(local, Diff(before, after))

	if !reflect.DeepEqual(local, after) {
		t.Errorf("Merge(Diff()) = %v, want %v", local, after)
	}
}

func TestDiff_JSONEncoding(t *testing.T) {
	delta := Diff(
		map[string]Value{"gone": Number(1)},
		map[string]Value{"coins": Number(15), "name": String("Fred")},
	)
	data, err := json.Marshal(delta)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["coins"] != float64(15) {
		t.Errorf("coins = %v, want 15", decoded["coins"])
	}
	if decoded["name"] != "Fred" {
		t.Errorf("name = %v, want Fred", decoded["name"])
	}
	if v, ok := decoded["gone"]; !ok || v != nil {
		t.Errorf("gone = %v (present=%v), want explicit null", v, ok)
	}
}
