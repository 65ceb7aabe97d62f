package ranking

import (
	"strings"

	"github.com/kurtbrian03/docrank/internal/domain"
	"github.com/kurtbrian03/docrank/internal/index"
	"github.com/kurtbrian03/docrank/internal/textnorm"
)

// Filters restrict the candidate set. Empty values and the wildcards "TODOS"
// and "ALL" are inactive.
type Filters struct {
	Type          string   `json:"tipo,omitempty"`
	Extension     string   `json:"extension,omitempty"`
	Folder        string   `json:"carpeta,omitempty"`
	Provider      string   `json:"proveedor,omitempty"`
	Hospital      string   `json:"hospital,omitempty"`
	Month         string   `json:"mes,omitempty"`
	Year          string   `json:"anio,omitempty"`
	VirtualFolder string   `json:"carpeta_virtual,omitempty"`
	Tags          []string `json:"etiquetas,omitempty"`
}

var filterAliases = map[string][]string{
	"type":           {"tipo", "type", "categoria"},
	"extension":      {"extension", "ext"},
	"folder":         {"carpeta", "folder"},
	"provider":       {"proveedor", "proveedor_virtual", "provider"},
	"hospital":       {"hospital", "hospital_virtual"},
	"month":          {"mes", "mes_virtual", "month"},
	"year":           {"anio", "año", "anio_virtual", "year"},
	"virtual_folder": {"carpeta_virtual", "virtual_folder"},
	"tags":           {"etiquetas", "tags"},
}

// ParseFilters reads filters from a loosely typed map, accepting the Spanish
// and English key aliases. Unknown keys are ignored.
func ParseFilters(m map[string]any) Filters {
	get := func(concept string) string {
		for _, k := range filterAliases[concept] {
			if v, ok := m[k]; ok && v != nil {
				if s := strings.TrimSpace(textnorm.ToString(v)); s != "" {
					return s
				}
			}
		}
		return ""
	}
	f := Filters{
		Type:          get("type"),
		Extension:     get("extension"),
		Folder:        get("folder"),
		Provider:      get("provider"),
		Hospital:      get("hospital"),
		Month:         get("month"),
		Year:          get("year"),
		VirtualFolder: get("virtual_folder"),
	}
	for _, k := range filterAliases["tags"] {
		switch t := m[k].(type) {
		case []string:
			f.Tags = append(f.Tags, t...)
		case []any:
			for _, v := range t {
				f.Tags = append(f.Tags, textnorm.ToString(v))
			}
		case string:
			f.Tags = append(f.Tags, strings.Split(t, ",")...)
		}
	}
	return f
}

// Active reports whether a filter value restricts anything.
func Active(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	up := strings.ToUpper(v)
	return up != "TODOS" && up != "ALL"
}

// Empty reports whether no filter is active.
func (f Filters) Empty() bool {
	for _, v := range f.simple() {
		if Active(v.value) {
			return false
		}
	}
	return len(f.tags()) == 0
}

type simpleFilter struct {
	value string
	field func(*domain.Document) string
}

func (f Filters) simple() []simpleFilter {
	return []simpleFilter{
		{f.Type, func(d *domain.Document) string { return d.Type }},
		{normalizeExtension(f.Extension), func(d *domain.Document) string { return d.Extension }},
		{f.Folder, func(d *domain.Document) string { return d.Folder }},
		{f.Provider, func(d *domain.Document) string { return d.Provider }},
		{f.Hospital, func(d *domain.Document) string { return d.Hospital }},
		{f.Month, func(d *domain.Document) string { return d.Month }},
		{f.Year, func(d *domain.Document) string { return d.Year }},
		{f.VirtualFolder, func(d *domain.Document) string { return d.VirtualFolder }},
	}
}

func (f Filters) tags() []string {
	var out []string
	for _, t := range f.Tags {
		if t = textnorm.Normalize(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Matches reports whether d passes every active filter. Simple values match
// exactly after normalization; every requested tag must be present.
func (f Filters) Matches(d *domain.Document) bool {
	for _, sf := range f.simple() {
		if !Active(sf.value) {
			continue
		}
		if textnorm.Normalize(sf.field(d)) != textnorm.Normalize(sf.value) {
			return false
		}
	}
	want := f.tags()
	if len(want) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(d.Tags))
	for _, t := range d.Tags {
		have[textnorm.Normalize(t)] = struct{}{}
	}
	for _, t := range want {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}

// BoostValue returns the active filter value for a boosting field, or "".
func (f Filters) BoostValue(field index.Field) string {
	var v string
	switch field {
	case index.FieldProvider:
		v = f.Provider
	case index.FieldHospital:
		v = f.Hospital
	case index.FieldMonth:
		v = f.Month
	case index.FieldYear:
		v = f.Year
	case index.FieldType:
		v = f.Type
	}
	if !Active(v) {
		return ""
	}
	return v
}

// StructuralTokens returns the tokens of the active structural filter values.
func (f Filters) StructuralTokens() []string {
	var out []string
	for _, v := range []string{f.Provider, f.Hospital, f.Month, f.Year, f.VirtualFolder, f.Folder, f.Type} {
		if Active(v) {
			out = append(out, textnorm.Tokenize(v)...)
		}
	}
	return out
}

// FullTextFilters maps active simple filters to full-text field names.
func (f Filters) FullTextFilters() map[string]string {
	out := map[string]string{}
	add := func(field, v string) {
		if Active(v) {
			out[field] = v
		}
	}
	add(domain.FieldType, f.Type)
	add(domain.FieldExtension, f.Extension)
	add(domain.FieldFolder, f.Folder)
	add(domain.FieldProvider, f.Provider)
	add(domain.FieldHospital, f.Hospital)
	add(domain.FieldMonth, f.Month)
	add(domain.FieldYear, f.Year)
	return out
}

func normalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if !Active(ext) {
		return ext
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
