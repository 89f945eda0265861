package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/araujoluizagh/fda-radiology-bot/internal/openfda"
)

const headerLine = "k_number,applicant,device_name,decision_date,advisory_committee,decision_code"

func TestHeader_Stable(t *testing.T) {
	if got := strings.Join(Header, ","); got != headerLine {
		t.Fatalf("Header changed:\n got:  %q\n want: %q", got, headerLine)
	}
}

func acme() openfda.ClearanceRecord {
	return openfda.ClearanceRecord{
		KNumber:           "K123456",
		Applicant:         "Acme Imaging",
		DeviceName:        "ScanPro 9000",
		DecisionDate:      "2024-03-01",
		AdvisoryCommittee: "radiology",
		DecisionCode:      "SESE",
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestWrite_EndToEndExample(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []openfda.ClearanceRecord{acme()}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := headerLine + "\n" + "K123456,Acme Imaging,ScanPro 9000,2024-03-01,radiology,SESE\n"
	if buf.String() != want {
		t.Fatalf("output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestWriteFile_EmptyIsHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radiology_510k.csv")
	n, err := WriteFile(path, nil)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != headerLine+"\n" {
		t.Fatalf("content = %q", data)
	}
	if n != int64(len(data)) {
		t.Fatalf("bytes = %d, file has %d", n, len(data))
	}
}

func TestWriteFile_NRecords(t *testing.T) {
	var records []openfda.ClearanceRecord
	for i := 0; i < 5; i++ {
		r := acme()
		r.KNumber = "K00000" + string(rune('0'+i))
		records = append(records, r)
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	if _, err := WriteFile(path, records); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != len(records)+1 {
		t.Fatalf("lines = %d, want %d", len(lines), len(records)+1)
	}

	rows := readAll(t, path)
	for i, r := range records {
		want := Row(r)
		got := rows[i+1]
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("row %d col %s = %q, want %q", i, Header[j], got[j], want[j])
			}
		}
	}
}

func TestWriteFile_MissingApplicant(t *testing.T) {
	r := acme()
	r.Applicant = ""

	path := filepath.Join(t.TempDir(), "out.csv")
	if _, err := WriteFile(path, []openfda.ClearanceRecord{r}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	rows := readAll(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	want := []string{"K123456", "", "ScanPro 9000", "2024-03-01", "radiology", "SESE"}
	for j := range want {
		if rows[1][j] != want[j] {
			t.Fatalf("col %s = %q, want %q", Header[j], rows[1][j], want[j])
		}
	}
}

func TestWriteFile_QuotingRoundTrip(t *testing.T) {
	tricky := []string{
		`Model A, "Pro"`,
		"two\nlines",
		`"quoted"`,
		"Ünïcödé Röntgen",
		" leading space",
	}
	var records []openfda.ClearanceRecord
	for _, name := range tricky {
		r := acme()
		r.DeviceName = name
		records = append(records, r)
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	if _, err := WriteFile(path, records); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	rows := readAll(t, path)
	for i, name := range tricky {
		if rows[i+1][2] != name {
			t.Errorf("device_name %d = %q, want %q", i, rows[i+1][2], name)
		}
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"Model A, ""Pro"""`) {
		t.Errorf("expected doubled quotes in %q", data)
	}
}

func TestWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	first := []openfda.ClearanceRecord{acme(), acme(), acme()}
	if _, err := WriteFile(path, first); err != nil {
		t.Fatalf("first WriteFile: %v", err)
	}

	second := acme()
	second.KNumber = "K999999"
	if _, err := WriteFile(path, []openfda.ClearanceRecord{second}); err != nil {
		t.Fatalf("second WriteFile: %v", err)
	}

	rows := readAll(t, path)
	if len(rows) != 2 || rows[1][0] != "K999999" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.csv")
	if _, err := WriteFile(path, nil); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

func TestWriteFile_Unwritable(t *testing.T) {
	dir := t.TempDir()
	// a regular file standing where the parent directory should be
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteFile(filepath.Join(blocker, "out.csv"), nil); err == nil {
		t.Fatal("expected an error writing beneath a regular file")
	}
}
