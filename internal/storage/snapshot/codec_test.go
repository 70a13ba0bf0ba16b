package snapshot

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, st *State) *State {
	t.Helper()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := Encode(w, st); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	w.Flush()

	got, err := Decode(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestRoundTrip(t *testing.T) {
	st := NewState()
	st.Strings["foo"] = []byte("bar")
	st.Strings["empty"] = []byte{}
	st.Lists["l"] = [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	st.Hashes["h"] = map[string][]byte{"f1": []byte("v1"), "f2": []byte("v2")}
	st.Expires["foo"] = 1_700_000_123_456

	got := roundTrip(t, st)

	if string(got.Strings["foo"]) != "bar" {
		t.Errorf("Strings[foo] = %q", got.Strings["foo"])
	}
	if v, ok := got.Strings["empty"]; !ok || len(v) != 0 {
		t.Errorf("Strings[empty] = %q, %v", v, ok)
	}
	if len(got.Lists["l"]) != 3 || string(got.Lists["l"][1]) != "b" {
		t.Errorf("Lists[l] = %q", got.Lists["l"])
	}
	if len(got.Hashes["h"]) != 2 || string(got.Hashes["h"]["f2"]) != "v2" {
		t.Errorf("Hashes[h] = %v", got.Hashes["h"])
	}
	if got.Expires["foo"] != 1_700_000_123_456 {
		t.Errorf("Expires[foo] = %d", got.Expires["foo"])
	}
}

// TestRoundTripBinaryPayloads verifies that keys and values may
// contain newlines, spaces, and arbitrary bytes.
func TestRoundTripBinaryPayloads(t *testing.T) {
	st := NewState()
	st.Strings["key with spaces"] = []byte("line1\nline2\r\n")
	st.Strings["bin\x00key"] = []byte{0, 1, 2, 255}
	st.Lists["l\nl"] = [][]byte{[]byte("a b"), []byte("\n"), {}}
	st.Hashes["h"] = map[string][]byte{"f:with:colons": []byte("v\nv")}

	got := roundTrip(t, st)

	if string(got.Strings["key with spaces"]) != "line1\nline2\r\n" {
		t.Errorf("spaces key = %q", got.Strings["key with spaces"])
	}
	if !bytes.Equal(got.Strings["bin\x00key"], []byte{0, 1, 2, 255}) {
		t.Errorf("binary value = %v", got.Strings["bin\x00key"])
	}
	l := got.Lists["l\nl"]
	if len(l) != 3 || string(l[0]) != "a b" || string(l[1]) != "\n" || len(l[2]) != 0 {
		t.Errorf("binary list = %q", l)
	}
	if string(got.Hashes["h"]["f:with:colons"]) != "v\nv" {
		t.Errorf("hash value = %q", got.Hashes["h"]["f:with:colons"])
	}
}

func TestDecodeSkipsUnknownTags(t *testing.T) {
	input := "X some future record\n" +
		"K 3 3\nfoobar\n" +
		"Z 1 2 3\n" +
		"E 3 1700000000000\nfoo\n"

	got, err := Decode(bufio.NewReader(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(got.Strings["foo"]) != "bar" {
		t.Errorf("Strings[foo] = %q", got.Strings["foo"])
	}
	if got.Expires["foo"] != 1_700_000_000_000 {
		t.Errorf("Expires[foo] = %d", got.Expires["foo"])
	}
}

func TestDecodeEmpty(t *testing.T) {
	got, err := Decode(bufio.NewReader(strings.NewReader("")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Strings)+len(got.Lists)+len(got.Hashes)+len(got.Expires) != 0 {
		t.Error("empty input produced records")
	}
}

func TestDecodeCorrupted(t *testing.T) {
	inputs := []string{
		"K 3\nfoo\n",          // missing value length
		"K x 3\nfoobar\n",     // non-numeric length
		"K 3 100\nfoo",        // truncated payload
		"L 1 2\nk 1\na 1\nb",  // truncated list
		"K -1 3\nbar\n",       // negative length
		"H 1 1\nk 2\nfv",      // hash pair missing value length
	}
	for _, input := range inputs {
		if _, err := Decode(bufio.NewReader(strings.NewReader(input))); err == nil {
			t.Errorf("Decode(%q) succeeded, want error", input)
		}
	}
}
