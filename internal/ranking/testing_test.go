package ranking

import (
	"testing"
	"time"

	"github.com/kurtbrian03/docrank/internal/domain"
)

var testNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, records []domain.Record) *Engine {
	t.Helper()
	return NewEngine(records, Config{Clock: func() time.Time { return testNow }})
}

func resultIDs(results []domain.Result) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}

func sampleCorpus() []domain.Record {
	return []domain.Record{
		{
			"hash": "f1", "nombre_archivo": "factura_acme_enero.pdf", "ruta_completa": "/docs/acme/factura_acme_enero.pdf",
			"extension": "pdf", "carpeta": "acme", "categoria": "Factura", "etiquetas": []any{"factura", "pago"},
			"fecha_modificacion": "2026-01-20T10:00:00Z", "contenido_extraido": "factura proveedor acme total enero",
			"proveedor_virtual": "ACME", "hospital_virtual": "Hospital Central", "mes_virtual": "ENERO", "anio_virtual": "2026",
		},
		{
			"hash": "f2", "nombre_archivo": "factura_globex.pdf", "ruta_completa": "/docs/globex/factura_globex.pdf",
			"extension": ".pdf", "carpeta": "globex", "categoria": "Factura", "etiquetas": []any{"factura"},
			"fecha_modificacion": "2025-06-01", "contenido_extraido": "factura de servicios globex",
			"proveedor_virtual": "Globex", "hospital_virtual": "Hospital Norte", "mes_virtual": "JUNIO", "anio_virtual": "2025",
		},
		{
			"hash": "r1", "nombre_archivo": "receta.txt", "ruta_completa": "/docs/salud/receta.txt",
			"extension": "txt", "carpeta": "salud", "categoria": "Receta", "etiquetas": []any{"medico"},
			"fecha_modificacion": "invalid", "contenido_extraido": "receta medica paciente",
			"hospital_virtual": "Hospital Central",
		},
		{
			"hash": "n1", "nombre_archivo": "notas.md", "ruta_completa": "/docs/notas.md",
			"extension": "md", "carpeta": "docs", "contenido_extraido": "",
		},
	}
}
