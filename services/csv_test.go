package services

import (
	"reflect"
	"testing"
)

func TestParseCSVDocumentSimple(t *testing.T) {
	rows := parseCSVDocument("a,b,c\n1,2,3\n")
	want := [][]string{{"a", "b", "c"}, {"1", "2", "3"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("got %v, want %v", rows, want)
	}
}

func TestParseCSVDocumentQuotedComma(t *testing.T) {
	rows := parseCSVDocument(`amount,description
12.5,"lunch, with friends"`)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1][1] != "lunch, with friends" {
		t.Errorf("embedded comma lost: %q", rows[1][1])
	}
}

func TestParseCSVDocumentDoubledQuotes(t *testing.T) {
	rows := parseCSVDocument("desc\n\"she said \"\"hi\"\"\"")
	if rows[1][0] != `she said "hi"` {
		t.Errorf("doubled quotes not unescaped: %q", rows[1][0])
	}
}

func TestParseCSVDocumentEmbeddedNewline(t *testing.T) {
	rows := parseCSVDocument("desc,amount\n\"line one\nline two\",5\nnext,6")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1][0] != "line one\nline two" {
		t.Errorf("embedded newline lost: %q", rows[1][0])
	}
	if rows[2][0] != "next" {
		t.Errorf("row after embedded newline broken: %v", rows[2])
	}
}

func TestParseCSVDocumentCRLF(t *testing.T) {
	rows := parseCSVDocument("a,b\r\n1,2\r\n")
	want := [][]string{{"a", "b"}, {"1", "2"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("CRLF handling: got %v, want %v", rows, want)
	}
}

func TestParseCSVDocumentTrailingComma(t *testing.T) {
	rows := parseCSVDocument("a,b,\n1,2,\n")
	if len(rows[0]) != 3 || rows[0][2] != "" {
		t.Errorf("trailing comma should yield an empty field: %v", rows[0])
	}
}

func TestParseCSVDocumentBlankLines(t *testing.T) {
	rows := parseCSVDocument("a,b\n\n1,2\n\n\n")
	want := [][]string{{"a", "b"}, {"1", "2"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("blank lines should be dropped: got %v", rows)
	}
}

func TestParseCSVDocumentUnterminatedQuote(t *testing.T) {
	rows := parseCSVDocument("desc\n\"never closed\nstill inside")
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(rows))
	}
	if rows[1][0] != "never closed\nstill inside" {
		t.Errorf("unterminated quote should consume to EOF: %q", rows[1][0])
	}
}

func TestParseCSVDocumentEmpty(t *testing.T) {
	if rows := parseCSVDocument(""); len(rows) != 0 {
		t.Errorf("empty input should yield no rows, got %v", rows)
	}
}

func TestCSVEscape(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"with, comma", `"with, comma"`},
		{`has "quotes"`, `"has ""quotes"""`},
		{"multi\nline", "\"multi\nline\""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := csvEscape(tc.in); got != tc.want {
			t.Errorf("csvEscape(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCSVEscapeRoundTrip(t *testing.T) {
	fields := []string{"a,b", `c"d`, "e\nf", "plain"}
	doc := "h1,h2,h3,h4\n"
	for i, f := range fields {
		if i > 0 {
			doc += ","
		}
		doc += csvEscape(f)
	}
	rows := parseCSVDocument(doc)
	if !reflect.DeepEqual(rows[1], fields) {
		t.Errorf("round trip: got %v, want %v", rows[1], fields)
	}
}

func TestParseCSVDocumentLoneCR(t *testing.T) {
	rows := parseCSVDocument("a\rb,c\n1,2\n")
	if rows[0][0] != "a\rb" {
		t.Errorf("lone CR in unquoted field lost: %q", rows[0][0])
	}
}

func TestCSVEscapeLoneCRRoundTrip(t *testing.T) {
	field := "before\rafter"
	if got := csvEscape(field); got != "\"before\rafter\"" {
		t.Fatalf("csvEscape(%q) = %q", field, got)
	}
	rows := parseCSVDocument("h\n" + csvEscape(field))
	if rows[1][0] != field {
		t.Errorf("round trip: got %q, want %q", rows[1][0], field)
	}
}
