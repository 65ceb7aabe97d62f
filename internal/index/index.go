// Package index turns raw document records into an immutable Index with the
// lookup caches the ranking engine scores against.
package index

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kurtbrian03/docrank/internal/domain"
	"github.com/kurtbrian03/docrank/internal/textnorm"
)

// Field names a taxonomy dimension tracked by the frequency counters.
type Field string

const (
	FieldProvider Field = "provider"
	FieldHospital Field = "hospital"
	FieldMonth    Field = "month"
	FieldYear     Field = "year"
	FieldType     Field = "type"
)

// BoostFields lists the dimensions used for contextual boosting, in scoring order.
var BoostFields = []Field{FieldProvider, FieldHospital, FieldMonth, FieldYear, FieldType}

var errNilRecord = errors.New("nil record")

// Entry is one indexed document plus its derived caches.
type Entry struct {
	Doc         *domain.Document
	NormName    string
	NormContent string
	Tokens      map[string]struct{}
	Structural  map[string]struct{}
	Date        time.Time
	HasDate     bool
}

// FieldValue returns the raw document value for a taxonomy field.
func (e *Entry) FieldValue(f Field) string {
	switch f {
	case FieldProvider:
		return e.Doc.Provider
	case FieldHospital:
		return e.Doc.Hospital
	case FieldMonth:
		return e.Doc.Month
	case FieldYear:
		return e.Doc.Year
	case FieldType:
		return e.Doc.Type
	default:
		return ""
	}
}

// Index is an immutable, fully built set of entries. It is safe for
// concurrent readers.
type Index struct {
	entries []*Entry
	byID    map[string]*Entry
	freq    map[Field]map[string]int
}

// BuildStats summarizes one Build call.
type BuildStats struct {
	Documents  int           `json:"documents"`
	Failed     int           `json:"failed"`
	Extracted  int           `json:"extracted"`
	Collisions int           `json:"collisions"`
	Duration   time.Duration `json:"-"`
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// Entries returns the entries in corpus order. The slice is shared and must
// not be modified.
func (ix *Index) Entries() []*Entry {
	if ix == nil {
		return nil
	}
	return ix.entries
}

// Get looks up an entry by document id.
func (ix *Index) Get(id string) (*Entry, bool) {
	if ix == nil {
		return nil, false
	}
	e, ok := ix.byID[id]
	return e, ok
}

// Frequency returns how many documents carry the normalized value for f.
func (ix *Index) Frequency(f Field, value string) int {
	if ix == nil {
		return 0
	}
	return ix.freq[f][textnorm.Normalize(value)]
}

// uniqueID derives an unused id from a colliding one. Earlier records may
// already hold id#position, so further suffixes are tried until one is free.
func (ix *Index) uniqueID(id string, position int) string {
	unique := id + "#" + strconv.Itoa(position)
	for n := 1; ; n++ {
		if _, exists := ix.byID[unique]; !exists {
			return unique
		}
		unique = id + "#" + strconv.Itoa(position) + "-" + strconv.Itoa(n)
	}
}

// Build converts records into an Index. Records that fail to convert are
// logged, counted and skipped. extractor may be nil.
func Build(records []domain.Record, extractor Extractor) (*Index, BuildStats) {
	start := time.Now()
	ix := &Index{
		entries: make([]*Entry, 0, len(records)),
		byID:    make(map[string]*Entry, len(records)),
	}
	var stats BuildStats

	for i, rec := range records {
		entry, extracted, err := buildEntry(rec, i, extractor)
		if err != nil {
			stats.Failed++
			slog.Warn("Failed to index document", "position", i, "error", err)
			continue
		}
		if extracted {
			stats.Extracted++
		}
		if _, exists := ix.byID[entry.Doc.ID]; exists {
			stats.Collisions++
			unique := ix.uniqueID(entry.Doc.ID, i)
			slog.Warn("Duplicate document id", "id", entry.Doc.ID, "position", i, "assigned", unique)
			entry.Doc.ID = unique
		}
		ix.entries = append(ix.entries, entry)
		ix.byID[entry.Doc.ID] = entry
	}

	ix.refreshFrequencies()
	stats.Documents = len(ix.entries)
	stats.Duration = time.Since(start)
	return ix, stats
}

func (ix *Index) refreshFrequencies() {
	ix.freq = make(map[Field]map[string]int, len(BoostFields))
	for _, f := range BoostFields {
		ix.freq[f] = make(map[string]int)
	}
	for _, e := range ix.entries {
		for _, f := range BoostFields {
			ix.freq[f][textnorm.Normalize(e.FieldValue(f))]++
		}
	}
}

func buildEntry(rec domain.Record, pos int, extractor Extractor) (entry *Entry, extracted bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			entry, extracted, err = nil, false, fmt.Errorf("malformed record: %v", r)
		}
	}()
	if rec == nil {
		return nil, false, errNilRecord
	}

	path := strings.TrimSpace(lookupString(rec, domain.RecordKeysPath))
	name := lookupString(rec, domain.RecordKeysName)
	if name == "" && path != "" {
		name = filepath.Base(path)
	}

	content := strings.TrimSpace(lookupString(rec, domain.RecordKeysContent))
	if content == "" && path != "" && extractor != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			text, exErr := extractor.Extract(path)
			if exErr != nil {
				slog.Debug("Content extraction failed", "path", path, "error", exErr)
			} else {
				content = strings.TrimSpace(text)
				extracted = content != ""
			}
		}
	}

	ext := textnorm.Normalize(lookupString(rec, domain.RecordKeysExtension))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(name))
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	id := strings.TrimSpace(lookupString(rec, domain.RecordKeysID))
	if id == "" {
		id = path
	}
	if id == "" {
		id = strconv.Itoa(pos)
	}

	var size int64
	if v, ok := rec.Lookup(domain.RecordKeysSize); ok {
		size = textnorm.ToInt(v)
	}
	var tags []string
	if v, ok := rec.Lookup(domain.RecordKeysTags); ok {
		tags = parseTags(v)
	}

	doc := &domain.Document{
		ID:            id,
		Name:          name,
		Path:          path,
		Extension:     ext,
		Folder:        lookupString(rec, domain.RecordKeysFolder),
		Type:          orDefault(lookupString(rec, domain.RecordKeysType), domain.UnknownType),
		Tags:          tags,
		Size:          size,
		ModifiedAt:    strings.TrimSpace(lookupString(rec, domain.RecordKeysModifiedAt)),
		Content:       content,
		Provider:      orDefault(lookupString(rec, domain.RecordKeysProvider), domain.UnknownProvider),
		Hospital:      orDefault(lookupString(rec, domain.RecordKeysHospital), domain.UnknownHospital),
		Month:         orDefault(lookupString(rec, domain.RecordKeysMonth), domain.UnknownMonth),
		Year:          orDefault(lookupString(rec, domain.RecordKeysYear), domain.UnknownYear),
		VirtualFolder: strings.TrimSpace(lookupString(rec, domain.RecordKeysVirtualFolder)),
	}
	return newEntry(doc), extracted, nil
}

func newEntry(doc *domain.Document) *Entry {
	e := &Entry{
		Doc:         doc,
		NormName:    textnorm.Normalize(doc.Name),
		NormContent: textnorm.Normalize(doc.Content),
		Tokens:      textnorm.TokenSet(doc.Name + " " + strings.Join(doc.Tags, " ") + " " + doc.Content),
		Structural: textnorm.TokenSet(strings.Join([]string{
			doc.Folder, doc.VirtualFolder, doc.Provider, doc.Hospital, doc.Month, doc.Year, doc.Path,
		}, " ")),
	}
	e.Date, e.HasDate = textnorm.ParseTimestamp(doc.ModifiedAt)
	return e
}

func lookupString(rec domain.Record, keys []string) string {
	v, ok := rec.Lookup(keys)
	if !ok {
		return ""
	}
	return textnorm.ToString(v)
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// parseTags accepts a list or a comma-separated string and returns lowercase
// tags, deduplicated in first-seen order.
func parseTags(v any) []string {
	var raw []string
	switch t := v.(type) {
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			raw = append(raw, textnorm.ToString(item))
		}
	case string:
		raw = strings.Split(t, ",")
	default:
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = textnorm.Normalize(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
