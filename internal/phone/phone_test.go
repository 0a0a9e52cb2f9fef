package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"551199998888", "1199998888"},
		{"1199998888", "1199998888"},
		{"+55 (11) 99999-8888", "11999998888"},
		{"5511999998888", "11999998888"},
		{"551199998888@c.us", "1199998888"},
		// 10 digits starting with 55 is an area code, not a country code
		{"5599998888", "5599998888"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"551199998888", "+5511999998888", "1199998888", "5599998888"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize must be idempotent for %q", in)
	}
}

func TestNormalizeCountryCodeEquivalence(t *testing.T) {
	with := Normalize("5511999998888")
	without := Normalize("11999998888")
	assert.Equal(t, with, without)
}

func TestCandidates(t *testing.T) {
	got := Candidates("5511999998888@c.us")
	assert.Contains(t, got, "5511999998888")
	assert.Contains(t, got, "11999998888") // canonical
	assert.Contains(t, got, "1999998888")  // last 10, legacy 8-digit record

	assert.Empty(t, Candidates("abc"))
}

func TestLooksLikePhone(t *testing.T) {
	assert.True(t, LooksLikePhone("1199998888"))
	assert.True(t, LooksLikePhone("5511999998888"))
	assert.False(t, LooksLikePhone("123"))                // too short
	assert.False(t, LooksLikePhone("12345678901234"))     // too long
	assert.False(t, LooksLikePhone("55119999-8888"))      // punctuation: caller-formatted, not raw
	assert.False(t, LooksLikePhone("8f14e45f-ceea-4a0d")) // database id
}

func TestReferenceShapes(t *testing.T) {
	assert.True(t, IsLID("123456789012345@lid"))
	assert.False(t, IsLID("551199998888@c.us"))
	assert.Equal(t, "123456789012345", LIDValue("123456789012345@lid"))

	assert.True(t, IsGroup("123456-789@g.us"))
	assert.True(t, IsBroadcast("status@broadcast"))
	assert.False(t, IsGroup("551199998888@c.us"))
}

func TestAreaCode(t *testing.T) {
	assert.Equal(t, "11", AreaCode("551199998888"))
	assert.Equal(t, "", AreaCode("99998888"))
}
