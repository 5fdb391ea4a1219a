package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ngô Thanh Vân", "ngo thanh van"},
		{"  NGÔ   thanh  VÂN ", "ngo thanh van"},
		{"Robert Downey, Jr.", "robert downey jr"},
		{"A", "a"},
		{"a ", "a"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Name(tc.in), "Name(%q)", tc.in)
	}
}

func TestNameFoldsEquivalentSpellings(t *testing.T) {
	// Case, spacing and diacritic variants of one person must share a key.
	variants := []string{"Trấn Thành", "tran thanh", "TRẤN  THÀNH", " Tran Thanh. "}
	want := Name(variants[0])
	for _, v := range variants[1:] {
		assert.Equal(t, want, Name(v), "variant %q", v)
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ngo thanh van", "ngo-thanh-van"},
		{"Trấn Thành", "tran-thanh"},
		{"Tập 1: Mở Đầu", "tap-1-mo-dau"},
		{"--x--", "x"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slug(tc.in), "Slug(%q)", tc.in)
	}
}
