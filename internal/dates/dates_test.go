package dates

import (
	"sort"
	"strings"
	"testing"
)

func TestExtract(t *testing.T) {
	e := NewExtractor([]string{"Warszawa", "Kraków", "Gdańsk"})

	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "numeric date", text: "Dnia 11.11.1918 ogłoszono", expected: []string{"11.11.1918=1918-11-11"}},
		{name: "invalid numeric date falls back to year", text: "31.02.1920", expected: []string{"1920=1920-01-01"}},
		{name: "genitive month", text: "W dniu 1 września 1939 roku", expected: []string{"1 września 1939=1939-09-01"}},
		{name: "nominative month", text: "3 maj 1791", expected: []string{"3 maj 1791=1791-05-03"}},
		{name: "upper case month", text: "15 LIPCA 1410", expected: []string{"15 LIPCA 1410=1410-07-15"}},
		{name: "year range", text: "wojna 1939-1945 trwała", expected: []string{"1939-1945=1939-01-01"}},
		{name: "year range with spaces", text: "lata 1918 – 1939", expected: []string{"1918 – 1939=1918-01-01"}},
		{name: "century BC", text: "w II w. p.n.e. Rzym", expected: []string{"II w. p.n.e.=-0199-01-01"}},
		{name: "first century BC", text: "I w.p.n.e.", expected: []string{"I w.p.n.e.=-0099-01-01"}},
		{name: "bare years in order", text: "W 1945 i w 1920 roku", expected: []string{"1945=1945-01-01", "1920=1920-01-01"}},
		{name: "mixed keeps reading order", text: "Od 1410 do 1 września 1939", expected: []string{"1410=1410-01-01", "1 września 1939=1939-09-01"}},
		{name: "no dates", text: "Rozdział pierwszy", expected: nil},
		{name: "longer numbers ignored", text: "ISBN 9788301000001", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result []string
			for _, m := range e.Extract(tt.text) {
				result = append(result, m.Text+"="+m.Parsed)
			}
			if strings.Join(result, ";") != strings.Join(tt.expected, ";") {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestExtractAttachesPlaces(t *testing.T) {
	e := NewExtractor([]string{"Warszawa", "Kraków", "Gdańsk"})
	mentions := e.Extract("W 1945 roku z Krakowa i KRAKÓW do Warszawa, nie Warszawianka.")
	if len(mentions) != 1 {
		t.Fatalf("Expected 1 mention, got %d", len(mentions))
	}
	if strings.Join(mentions[0].Places, ",") != "Kraków,Warszawa" {
		t.Errorf("Expected Kraków,Warszawa, got %v", mentions[0].Places)
	}
}

func TestPlaces(t *testing.T) {
	e := NewExtractor([]string{"New York", "Gdańsk", "Rzym"})
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "multi word place", text: "Wydano w New York", expected: "New York"},
		{name: "order of appearance", text: "z Rzym przez gdańsk", expected: "Rzym,Gdańsk"},
		{name: "part of longer word", text: "Gdańskiego", expected: ""},
		{name: "none", text: "", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := strings.Join(e.Places(tt.text), ",")
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	values := []string{"1989-01-01", "-0099-01-01", "1920-05-01", "-0199-01-01", "1920-01-01", "unknown", "0800-01-01"}
	sort.SliceStable(values, func(i, j int) bool { return Compare(values[i], values[j]) < 0 })

	expected := "-0199-01-01,-0099-01-01,0800-01-01,1920-01-01,1920-05-01,1989-01-01,unknown"
	if strings.Join(values, ",") != expected {
		t.Errorf("Expected %s, got %s", expected, strings.Join(values, ","))
	}

	if Compare("1945-01-01", "1945-01-01") != 0 {
		t.Error("Expected equal dates to compare as 0")
	}
}

func TestFromRoman(t *testing.T) {
	tests := []struct {
		in       string
		expected int
	}{
		{"I", 1}, {"IV", 4}, {"IX", 9}, {"XIV", 14}, {"XX", 20}, {"Q", 0},
	}
	for _, tt := range tests {
		if result := fromRoman(tt.in); result != tt.expected {
			t.Errorf("Expected %d, got %d", tt.expected, result)
		}
	}
}
