package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFriendCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want FriendCode
	}{
		{"digits only", "123456", "123456"},
		{"dashes", "123-456", "123456"},
		{"spaces and letters", " 12a3 45b6 ", "123456"},
		{"empty", "", ""},
		{"no digits", "abc-def", ""},
		{"full code with separators", "111 222 333 444 555", "111222333444555"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFriendCode(tt.in))
		})
	}
}

func TestNormalizeFriendCodeIsIdempotent(t *testing.T) {
	inputs := []string{"123-456", "  9 8 7 ", "x1y2z3", "111222333444555", ""}
	for _, in := range inputs {
		once := NormalizeFriendCode(in)
		assert.Equal(t, once, NormalizeFriendCode(string(once)), "input %q", in)
	}
}

func TestNormalizeFriendCodeFormattingVariantsMatch(t *testing.T) {
	assert.Equal(t, NormalizeFriendCode("123-456"), NormalizeFriendCode("123456"))
}

func TestParseFriendCode(t *testing.T) {
	fc, err := ParseFriendCode("111-222-333-444-555")
	require.NoError(t, err)
	assert.Equal(t, FriendCode("111222333444555"), fc)

	_, err = ParseFriendCode("12345")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = ParseFriendCode("---")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "friendCode", verr.Field)
}

func TestIdentityPatchNeverTouchesImmutableFields(t *testing.T) {
	ident := &Identity{FriendCode: "111222333444555", EditKey: "key", IGN: "old"}
	ign := "new"
	hash := "aa:bb"

	IdentityPatch{IGN: &ign, PasswordHash: &hash}.Apply(ident)

	assert.Equal(t, "new", ident.IGN)
	assert.Equal(t, "aa:bb", ident.PasswordHash)
	assert.Equal(t, "key", ident.EditKey)
	assert.Equal(t, FriendCode("111222333444555"), ident.FriendCode)
}

func TestIdentityPatchProfileOnly(t *testing.T) {
	admin := true
	bio := "hello"
	p := IdentityPatch{IsAdmin: &admin, Bio: &bio}.ProfileOnly()

	assert.Nil(t, p.IsAdmin)
	assert.Equal(t, "hello", *p.Bio)
	assert.False(t, p.IsEmpty())
	assert.True(t, IdentityPatch{}.IsEmpty())
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "first_clear", Slug("First Clear!", "_", 0))
	assert.Equal(t, "how-to-fc", Slug("How to FC", "-", 50))
	assert.Len(t, Slug("a very long title that keeps going and going past the limit", "-", 10), 10)
}
