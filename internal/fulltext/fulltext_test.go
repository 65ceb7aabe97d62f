package fulltext

import (
	"io"
	"testing"

	"github.com/kurtbrian03/docrank/internal/domain"
)

func closeIndex(t *testing.T, idx io.Closer) {
	t.Helper()
	if err := idx.Close(); err != nil {
		t.Errorf("Failed to close index: %v", err)
	}
}

func testDocs() []*domain.Document {
	return []*domain.Document{
		{ID: "1", Name: "factura_enero.pdf", Path: "/acme/factura_enero.pdf", Extension: ".pdf", Type: "Factura", Provider: "ACME", Content: "total factura proveedor acme"},
		{ID: "2", Name: "receta.txt", Path: "/salud/receta.txt", Extension: ".txt", Type: "Receta", Provider: "Globex", Content: "receta medica hospital central"},
		{ID: "3", Name: "factura_globex.pdf", Path: "/globex/factura.pdf", Extension: ".pdf", Type: "Factura", Provider: "Globex", Content: "factura de servicios"},
	}
}

func TestBuildAndSearch(t *testing.T) {
	idx, err := Build(testDocs())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer closeIndex(t, idx)

	if idx.Len() != 3 {
		t.Errorf("Len = %d, want 3", idx.Len())
	}

	res, err := idx.Search(Query{Text: "factura"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("Total = %d, want 2", res.Total)
	}
	for _, h := range res.Hits {
		if h.ID == "2" {
			t.Error("receta should not match factura")
		}
		if h.Path == "" {
			t.Errorf("Expected stored path for hit %s", h.ID)
		}
	}
}

func TestSearch_Filters(t *testing.T) {
	idx, err := Build(testDocs())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer closeIndex(t, idx)

	tests := []struct {
		name    string
		filters map[string]string
		want    []string
	}{
		{"provider", map[string]string{domain.FieldProvider: "Globex"}, []string{"3"}},
		{"extension without dot", map[string]string{domain.FieldExtension: "pdf"}, []string{"1", "3"}},
		{"no match", map[string]string{domain.FieldType: "Receta"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := idx.Search(Query{Text: "factura", Filters: tt.filters})
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			got := map[string]bool{}
			for _, h := range res.Hits {
				got[h.ID] = true
			}
			if len(got) != len(tt.want) {
				t.Fatalf("hits = %v, want %v", got, tt.want)
			}
			for _, id := range tt.want {
				if !got[id] {
					t.Errorf("missing hit %s", id)
				}
			}
		})
	}
}

func TestSearch_EmptyTextMatchesAll(t *testing.T) {
	idx, err := Build(testDocs())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer closeIndex(t, idx)

	res, err := idx.Search(Query{Filters: map[string]string{domain.FieldType: "factura"}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("Total = %d, want 2", res.Total)
	}
}

func TestBuild_SkipsRejectedDocuments(t *testing.T) {
	tests := []struct {
		name       string
		docs       []*domain.Document
		wantLen    int
		wantFailed int
	}{
		{"all accepted", testDocs(), 3, 0},
		{"empty id rejected", append(testDocs(), &domain.Document{ID: "", Name: "sin_id.pdf", Content: "factura"}), 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Build(tt.docs)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			defer closeIndex(t, idx)

			if idx.Len() != tt.wantLen {
				t.Errorf("Len = %d, want %d", idx.Len(), tt.wantLen)
			}
			if idx.Failed() != tt.wantFailed {
				t.Errorf("Failed = %d, want %d", idx.Failed(), tt.wantFailed)
			}
			res, err := idx.Search(Query{Text: "factura"})
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if res.Total != 2 {
				t.Errorf("Total = %d, want 2", res.Total)
			}
		})
	}
}
