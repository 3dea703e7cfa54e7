package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livemd/internal/compiler"
	"github.com/aretw0/livemd/pkg/domain"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Value
		wantErr bool
	}{
		{in: "10", want: domain.Number(10)},
		{in: "-2.5", want: domain.Number(-2.5)},
		{in: ".5", want: domain.Number(0.5)},
		{in: "1e3", want: domain.Number(1000)},
		{in: "TRUE", want: domain.Bool(true)},
		{in: "false", want: domain.Bool(false)},
		{in: `"a \"q\""`, want: domain.String(`a "q"`)},
		{in: `'single $x'`, want: domain.String("single $x")},
		{in: `""`, want: domain.String("")},
		{in: "inf", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "hello", wantErr: true},
		{in: `"open`, wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := compiler.ParseLiteral(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		negate  bool
		op      domain.CompareOp
		ref     string
		wantErr bool
	}{
		{in: "$flag", name: "flag"},
		{in: "!$flag", name: "flag", negate: true},
		{in: "$coins >= 10", name: "coins", op: domain.OpGe},
		{in: "$coins<10", name: "coins", op: domain.OpLt},
		{in: `$name == "a<b"`, name: "name", op: domain.OpEq},
		{in: "$a != $b", name: "a", op: domain.OpNe, ref: "b"},
		{in: "!$a == 1", wantErr: true},
		{in: "$a ==", wantErr: true},
		{in: "$a || $b", wantErr: true},
		{in: "$a ~ 3", wantErr: true},
		{in: "a == 3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := compiler.ParseCondition(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, c.Name)
			assert.Equal(t, tt.negate, c.Negate)
			assert.Equal(t, tt.op, c.Op)
			if tt.ref != "" {
				assert.Equal(t, tt.ref, c.Right.Ref)
			}
		})
	}
}
