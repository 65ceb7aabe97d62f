package domain

// Record is one flat key/value document record handed over by the crawling
// collaborator. Values are heterogeneous (strings, numbers, lists).
type Record map[string]any

// Record keys. Each concept accepts the listed aliases in order.
var (
	RecordKeysID            = []string{"hash", "sha256", "id"}
	RecordKeysName          = []string{"nombre_archivo", "name", "nombre"}
	RecordKeysPath          = []string{"ruta_completa", "path", "ruta"}
	RecordKeysExtension     = []string{"extension", "ext"}
	RecordKeysFolder        = []string{"carpeta", "folder"}
	RecordKeysType          = []string{"categoria", "type", "tipo"}
	RecordKeysTags          = []string{"etiquetas", "tags"}
	RecordKeysSize          = []string{"tamaño", "tamano", "size"}
	RecordKeysModifiedAt    = []string{"fecha_modificacion", "modified_at"}
	RecordKeysContent       = []string{"contenido_extraido", "content", "contenido"}
	RecordKeysProvider      = []string{"proveedor_virtual", "provider"}
	RecordKeysHospital      = []string{"hospital_virtual", "hospital"}
	RecordKeysMonth         = []string{"mes_virtual", "month"}
	RecordKeysYear          = []string{"anio_virtual", "year"}
	RecordKeysVirtualFolder = []string{"carpeta_virtual", "virtual_folder"}
)

// Lookup returns the first present value among keys.
func (r Record) Lookup(keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Sentinels for absent taxonomy values.
const (
	UnknownProvider = "UNKNOWN_PROVIDER"
	UnknownHospital = "UNKNOWN_HOSPITAL"
	UnknownMonth    = "UNKNOWN_MONTH"
	UnknownYear     = "UNKNOWN_YEAR"
	UnknownType     = "Unclassified"
)

// Document is an indexed document. Instances are owned by one index snapshot
// and never mutated after the snapshot is published.
type Document struct {
	ID            string   `json:"id"`
	Name          string   `json:"nombre"`
	Path          string   `json:"ruta"`
	Extension     string   `json:"extension"`
	Folder        string   `json:"carpeta"`
	Type          string   `json:"tipo"`
	Tags          []string `json:"etiquetas"`
	Size          int64    `json:"tamano"`
	ModifiedAt    string   `json:"fecha_modificacion"`
	Content       string   `json:"contenido"`
	Provider      string   `json:"proveedor_virtual"`
	Hospital      string   `json:"hospital_virtual"`
	Month         string   `json:"mes_virtual"`
	Year          string   `json:"anio_virtual"`
	VirtualFolder string   `json:"carpeta_virtual"`
}

// SemanticText is the text fed to the vector-space model for this document.
func (d *Document) SemanticText() string {
	parts := []string{d.Name}
	parts = append(parts, d.Tags...)
	parts = append(parts, d.Type, d.Provider, d.Hospital, d.Month, d.Year, d.Content)
	return joinNonEmpty(parts)
}

func joinNonEmpty(parts []string) string {
	out := make([]byte, 0, 256)
	for _, p := range parts {
		if p == "" {
			continue
		}
		if len(out) > 0 {
			out = append(out, ' ')
		}
		out = append(out, p...)
	}
	return string(out)
}

// Field names used by the full-text mapping. They match the JSON tags above.
const (
	FieldID        = "id"
	FieldName      = "nombre"
	FieldPath      = "ruta"
	FieldExtension = "extension"
	FieldFolder    = "carpeta"
	FieldType      = "tipo"
	FieldTags      = "etiquetas"
	FieldContent   = "contenido"
	FieldProvider  = "proveedor_virtual"
	FieldHospital  = "hospital_virtual"
	FieldMonth     = "mes_virtual"
	FieldYear      = "anio_virtual"
)
