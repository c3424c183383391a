// pkg/sink/csv_test.go
package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

func testSchema(names ...string) model.Schema {
	columns := make([]model.Column, len(names))
	for i, name := range names {
		columns[i] = model.Column{Name: name, Type: model.TypeString}
	}
	return model.Schema{Columns: columns}
}

// ---- Constructor ----

func TestNewCleanedCSV_Validation(t *testing.T) {
	if _, err := NewCleanedCSV("", zap.NewNop()); err == nil {
		t.Error("NewCleanedCSV(\"\") expected error, got nil")
	}
	if _, err := NewCleanedCSV("out.csv", nil); err == nil {
		t.Error("NewCleanedCSV with nil logger expected error, got nil")
	}
}

// ---- Writing ----

func TestCleanedCSV_WritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cleaned.csv")
	sink, err := NewCleanedCSV(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCleanedCSV() error: %v", err)
	}

	schema := model.Schema{Columns: []model.Column{
		{Name: "Store Name", Type: model.TypeString},
		{Name: "Date", Type: model.TypeDate},
		{Name: "Bottles Sold", Type: model.TypeInteger},
		{Name: "Sale (Dollars)", Type: model.TypeFloat},
		{Name: "is_weekend", Type: model.TypeBoolean},
	}}
	if err := sink.Open(schema); err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	rows := []model.Row{
		{
			"Store Name":     "Hy-Vee #3",
			"Date":           time.Date(2022, 7, 15, 0, 0, 0, 0, time.UTC),
			"Bottles Sold":   int64(12),
			"Sale (Dollars)": 135.5,
			"is_weekend":     false,
		},
		{
			"Store Name":     nil,
			"Date":           nil,
			"Bottles Sold":   int64(0),
			"Sale (Dollars)": 10.0,
			"is_weekend":     true,
		},
	}
	if err := sink.Write(context.Background(), rows); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}

	want := "Store Name,Date,Bottles Sold,Sale (Dollars),is_weekend\n" +
		"Hy-Vee #3,2022-07-15,12,135.5,false\n" +
		",,0,10,true\n"
	if string(got) != want {
		t.Errorf("cleaned CSV content = %q, want %q", string(got), want)
	}

	if sink.RowsWritten() != 2 {
		t.Errorf("RowsWritten() = %d, want 2", sink.RowsWritten())
	}
}

func TestCleanedCSV_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cleaned.csv")
	sink, err := NewCleanedCSV(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCleanedCSV() error: %v", err)
	}

	if err := sink.Open(testSchema("a", "b")); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected cleaned CSV at %s: %v", path, err)
	}
}

func TestCleanedCSV_WriteBeforeOpenFails(t *testing.T) {
	sink, err := NewCleanedCSV(filepath.Join(t.TempDir(), "cleaned.csv"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewCleanedCSV() error: %v", err)
	}

	if err := sink.Write(context.Background(), []model.Row{{"a": "1"}}); err == nil {
		t.Error("Write() before Open() expected error, got nil")
	}
}

func TestCleanedCSV_WriteHonorsContext(t *testing.T) {
	sink, err := NewCleanedCSV(filepath.Join(t.TempDir(), "cleaned.csv"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewCleanedCSV() error: %v", err)
	}
	if err := sink.Open(testSchema("a")); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sink.Write(ctx, []model.Row{{"a": "1"}}); err == nil {
		t.Error("Write() with canceled context expected error, got nil")
	}
}

func TestCleanedCSV_AbortRemovesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cleaned.csv")
	sink, err := NewCleanedCSV(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCleanedCSV() error: %v", err)
	}

	if err := sink.Open(testSchema("a")); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := sink.Write(context.Background(), []model.Row{{"a": "1"}}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	if err := sink.Abort(); err != nil {
		t.Fatalf("Abort() error: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected partial file removed after Abort(), stat err = %v", err)
	}
}

func TestCleanedCSV_CloseIsIdempotent(t *testing.T) {
	sink, err := NewCleanedCSV(filepath.Join(t.TempDir(), "cleaned.csv"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewCleanedCSV() error: %v", err)
	}
	if err := sink.Open(testSchema("a")); err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("first Close() error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

// ---- Cell formatting ----

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{name: "nil", value: nil, want: ""},
		{name: "string", value: "Vodka 80 Proof", want: "Vodka 80 Proof"},
		{name: "integer", value: int64(1234), want: "1234"},
		{name: "float shortest form", value: 135.5, want: "135.5"},
		{name: "float whole number", value: 10.0, want: "10"},
		{name: "bool", value: true, want: "true"},
		{name: "date", value: time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), want: "2022-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(tt.value); got != tt.want {
				t.Errorf("formatValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
