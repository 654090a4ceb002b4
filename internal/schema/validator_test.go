package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCoercion(t *testing.T) {
	cases := []struct {
		name    string
		v       *Validator
		in      any
		want    any
		errCode string
	}{
		{name: "string passes", v: String(), in: "hello", want: "hello"},
		{name: "string rejects number", v: String(), in: 42, errCode: CodeTypeMismatch},
		{name: "number from float", v: Number(), in: 3.5, want: 3.5},
		{name: "number from int", v: Number(), in: 7, want: float64(7)},
		{name: "number from string", v: Number(), in: "12", want: float64(12)},
		{name: "number rejects garbage", v: Number(), in: "twelve", errCode: CodeTypeMismatch},
		{name: "bool passes", v: Bool(), in: true, want: true},
		{name: "bool from yes", v: Bool(), in: "yes", want: true},
		{name: "bool from off", v: Bool(), in: "off", want: false},
		{name: "bool rejects number", v: Bool(), in: 1, errCode: CodeTypeMismatch},
		{name: "date passes", v: Date(), in: "2024-03-21", want: "2024-03-21"},
		{name: "date rejects format", v: Date(), in: "21.03.2024", errCode: CodeTypeMismatch},
		{name: "date rejects impossible", v: Date(), in: "2024-13-45", errCode: CodeTypeMismatch},
		{name: "enum passes", v: Enum("a", "b"), in: "a", want: "a"},
		{name: "enum rejects", v: Enum("a", "b"), in: "c", errCode: CodeEnumInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.v.Validate(tc.in)
			if tc.errCode != "" {
				require.Error(t, err)
				assert.Equal(t, tc.errCode, codeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidatorLeafChecks(t *testing.T) {
	t.Run("string min", func(t *testing.T) {
		v := String().Min(3)
		_, err := v.Validate("ab")
		require.Error(t, err)
		assert.Equal(t, CodeCheckFailed, codeOf(err))
		_, err = v.Validate("abc")
		assert.NoError(t, err)
	})

	t.Run("number bounds", func(t *testing.T) {
		v := Number().Min(0).Max(150)
		_, err := v.Validate(float64(-1))
		require.Error(t, err)
		_, err = v.Validate(float64(151))
		require.Error(t, err)
		_, err = v.Validate(float64(150))
		assert.NoError(t, err)
	})

	t.Run("email", func(t *testing.T) {
		v := String().Email()
		_, err := v.Validate("not-an-email")
		require.Error(t, err)
		_, err = v.Validate("a@b.co")
		assert.NoError(t, err)
	})

	t.Run("pattern", func(t *testing.T) {
		v := String().Pattern(`^\+?[0-9 ]+$`)
		_, err := v.Validate("+1 555 0100")
		assert.NoError(t, err)
		_, err = v.Validate("call me")
		require.Error(t, err)
	})
}

func TestValidatorNil(t *testing.T) {
	_, err := String().Validate(nil)
	require.Error(t, err)
	assert.Equal(t, CodeRequired, codeOf(err))

	got, err := String().Nullable().Validate(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = String().Optional().Validate(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestValidatorAsOptionalKeepsChecks(t *testing.T) {
	v := String().Min(3)
	opt := v.asOptional()

	assert.False(t, v.IsOptional(), "the original must stay required")
	assert.True(t, opt.IsOptional())

	_, err := opt.Validate("ab")
	require.Error(t, err, "optional still enforces checks when a value is present")
}
