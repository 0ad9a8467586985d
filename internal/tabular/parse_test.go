package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLine_Quoting(t *testing.T) {
	got := SplitLine(`a,"b,c","d""e"`)
	assert.Equal(t, []string{"a", "b,c", `d"e`}, got)
}

func TestSplitLine_Cases(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"empty line", "", []string{""}},
		{"trailing comma", "a,b,", []string{"a", "b", ""}},
		{"empty quoted", `"",x`, []string{"", "x"}},
		{"quote mid field toggles", `ab"c,d"e`, []string{"abc,de"}},
		{"unterminated quote keeps rest", `a,"b,c`, []string{"a", "b,c"}},
		{"spaces kept", " a , b ", []string{" a ", " b "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLine(tt.line))
		})
	}
}

func TestParse_HeaderNormalization(t *testing.T) {
	records := Parse(" VIN , Kilometers,PRICE\n1HGCM82633A004352,12000,\"$9,500\"\n")
	require.Len(t, records, 1)
	assert.Equal(t, Record{
		"vin":        "1HGCM82633A004352",
		"kilometers": "12000",
		"price":      "$9,500",
	}, records[0])
}

func TestParse_FewerThanTwoLines(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("vin,price"))
	assert.Empty(t, Parse("vin,price\n\n"))
}

func TestParse_PadsAndTruncates(t *testing.T) {
	records := Parse("a,b,c\n1\n1,2,3,4\n")
	require.Len(t, records, 2)
	assert.Equal(t, Record{"a": "1", "b": "", "c": ""}, records[0])
	assert.Equal(t, Record{"a": "1", "b": "2", "c": "3"}, records[1])
}

func TestParse_SkipsBlankLines(t *testing.T) {
	records := Parse("a,b\n1,2\n   \n\n3,4")
	require.Len(t, records, 2)
	assert.Equal(t, "3", records[1]["a"])
}

func TestParse_LeadingBlankLineIsHeader(t *testing.T) {
	records := Parse("\nvin,make\n1HGCM82633A004352,Honda\n")
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "", r.Get("vin"))
	}
	assert.Equal(t, []string{""}, Headers("\nvin,make\n"))
}

func TestParse_DuplicateHeadersLastWins(t *testing.T) {
	records := Parse("name,Name\nfirst,second\n")
	require.Len(t, records, 1)
	assert.Equal(t, Record{"name": "second"}, records[0])
}

func TestParse_CRLF(t *testing.T) {
	lf := Parse("vin,price\nABC,1\nDEF,2\n")
	crlf := Parse("vin,price\r\nABC,1\r\nDEF,2\r\n")
	assert.Equal(t, lf, crlf)
}

func TestParse_RoundTrip(t *testing.T) {
	header := []string{"VIN", "Make", "Notes"}
	rows := [][]string{
		{"1HGCM82633A004352", "Honda", `said "clean", one owner`},
		{"2T1BURHE0JC034567", "Toyota", ""},
		{"3VWFE21C04M000001", "", "a,b,,c"},
	}

	records := Parse(Format(header, rows))
	require.Len(t, records, len(rows))
	for i, row := range rows {
		assert.Equal(t, Record{"vin": row[0], "make": row[1], "notes": row[2]}, records[i])
	}
}

func TestHeaders(t *testing.T) {
	assert.Equal(t, []string{"vin", "price", "make"}, Headers("VIN,Price,vin,Make\n1,2,3,4"))
	assert.Nil(t, Headers("\n"))
}

func TestRecordGet(t *testing.T) {
	r := Record{"listing_url": "https://example.com"}
	assert.Equal(t, "https://example.com", r.Get(" Listing_URL "))
	assert.Equal(t, "", r.Get("missing"))
}
