package export

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/miftah/internal/loader"
	"github.com/hyperjump/miftah/internal/models"
	"github.com/xuri/excelize/v2"
)

func TestToCSV(t *testing.T) {
	tests := []struct {
		name string
		rows []Row
		want string
	}{
		{"empty", nil, ""},
		{"comma in value", []Row{{{"a", 1}, {"b", "x,y"}}}, "a,b\n\"1\",\"x,y\""},
		{"quote doubled", []Row{{{"q", `say "hi"`}}}, "q\n\"say \"\"hi\"\"\""},
		{"missing key empty", []Row{{{"a", 1}, {"b", 2}}, {{"a", 3}}}, "a,b\n\"1\",\"2\"\n\"3\",\"\""},
		{"bool and float", []Row{{{"t", true}, {"f", 1.5}}}, "t,f\n\"true\",\"1.5\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToCSV(tt.rows); got != tt.want {
				t.Errorf("ToCSV() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToCSV_roundTripsThroughLineSplitter(t *testing.T) {
	values := []string{`He said "peace"`, "a,b", "", "plain"}
	row := Row{}
	for i, v := range values {
		row = append(row, Field{Key: string(rune('a' + i)), Value: v})
	}
	lines := strings.Split(ToCSV([]Row{row}), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if got := loader.SplitCSVLine(lines[1]); !reflect.DeepEqual(got, values) {
		t.Errorf("SplitCSVLine = %q, want %q", got, values)
	}
}

func TestToJSON_roundTrip(t *testing.T) {
	facts := []models.Fact{
		{ID: "1", Title: "Iron", Type: "scientific", Notes: "Sent down.", Metadata: &models.FactMetadata{Sources: []string{"57:25"}}},
		{ID: "2", Title: "Honey", Type: "medical"},
	}
	s, err := ToJSON(facts)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(s, "\n  {") {
		t.Errorf("expected two-space indentation:\n%s", s)
	}
	var back []models.Fact
	if err := json.Unmarshal([]byte(s), &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, facts) {
		t.Errorf("round trip = %+v, want %+v", back, facts)
	}
}

func TestRow_MarshalJSONKeepsOrder(t *testing.T) {
	data, err := json.Marshal(Row{{"z", 1}, {"a", "x"}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"z":1,"a":"x"}` {
		t.Errorf("MarshalJSON = %s", data)
	}
}

func TestToXLSX(t *testing.T) {
	rows := Rows([]models.Narration{
		{ID: "bukhari-1", Number: 1, Text: "Actions are by intentions.", Collection: "Sahih al-Bukhari"},
		{ID: "muslim-2", Number: 2, Text: "Islam is built on five.", Collection: "Sahih Muslim"},
	}, NarrationRow)
	content, err := ToXLSX(rows, "narrations")
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != "narrations" {
		t.Fatalf("sheets = %v", sheets)
	}
	got, err := f.GetRows("narrations")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}
	if !reflect.DeepEqual(got[0], []string{"id", "number", "text", "collection"}) {
		t.Errorf("header = %v", got[0])
	}
	if got[2][0] != "muslim-2" || got[2][1] != "2" {
		t.Errorf("row 2 = %v", got[2])
	}
}

func TestToXLSX_empty(t *testing.T) {
	content, err := ToXLSX(nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(content) == 0 {
		t.Error("empty workbook should still be written")
	}
}

func TestFactRow(t *testing.T) {
	row := FactRow(models.Fact{
		ID:       "7",
		Metadata: &models.FactMetadata{Status: "verified", Sources: []string{"a", "b"}},
		Counters: &models.FactCounters{Views: 4},
	})
	if v, _ := row.Get("sources"); v != "a; b" {
		t.Errorf("sources = %v", v)
	}
	if v, _ := row.Get("views"); v != 4 {
		t.Errorf("views = %v", v)
	}
	if v, _ := FactRow(models.Fact{ID: "8"}).Get("status"); v != "" {
		t.Errorf("status without metadata = %v", v)
	}
}

func TestVerseRow_headerMatchesLoaderColumns(t *testing.T) {
	csv := ToCSV([]Row{VerseRow(models.Verse{SurahNo: 1, SurahNameEn: "Al-Faatiha", AyahNoSurah: 1, AyahAr: "بسم"})})
	verses, err := loader.ParseVersesCSV(csv)
	if err != nil {
		t.Fatal(err)
	}
	if len(verses) != 1 || verses[0].SurahNameEn != "Al-Faatiha" || verses[0].AyahAr != "بسم" {
		t.Errorf("re-parsed verses = %+v", verses)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCSV, "CSV": FormatCSV, " json ": FormatJSON, "xlsx": FormatXLSX} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error for pdf")
	}
}

func TestEncode_emptyJSONIsArray(t *testing.T) {
	data, err := Encode(FormatJSON, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("Encode(json, nil) = %s", data)
	}
}

func TestDownload(t *testing.T) {
	w := httptest.NewRecorder()
	if err := Download(w, []byte("a,b"), "facts.csv", FormatCSV.MIMEType()); err != nil {
		t.Fatal(err)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename=facts.csv` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Body.String() != "a,b" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "facts.json")
	if err := WriteFile(path, []byte("[]")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "[]" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
}
