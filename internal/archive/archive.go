// ABOUTME: Export-archive access: layout detection, member listing, JSON/CSV readers.
// ABOUTME: Supports the Takeout layout and the legacy export layout, plus a bare-root fallback.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Root directory markers for the two known archive layouts, checked in
// order. The detected base is everything up to and including the marker.
const (
	takeoutMarker = "Takeout/Fitbit/"
	legacyMarker  = "MyFitbitData/"
)

// Archive is an open export ZIP with its layout base resolved.
type Archive struct {
	rc    *zip.ReadCloser
	files map[string]*zip.File
	names []string
	base  string
}

// Open opens the ZIP at path and detects its layout. The caller must Close.
func Open(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	a := &Archive{
		rc:    rc,
		files: make(map[string]*zip.File, len(rc.File)),
		names: make([]string, 0, len(rc.File)),
	}
	for _, f := range rc.File {
		a.files[f.Name] = f
		a.names = append(a.names, f.Name)
	}
	a.base = DetectBase(a.names)
	return a, nil
}

// Close closes the underlying ZIP reader.
func (a *Archive) Close() error {
	return a.rc.Close()
}

// Base returns the resolved root prefix, empty in fallback mode.
func (a *Archive) Base() string {
	return a.base
}

// List returns member names under base+subdir with the given extension,
// sorted so that decoding order is reproducible.
func (a *Archive) List(subdir, ext string) []string {
	return ListNames(a.names, a.base, subdir, ext)
}

// DetectBase scans member names for a known layout marker and returns the
// prefix through the marker. An empty prefix means no marker was found;
// decoders will then match nothing and the import yields an empty summary.
func DetectBase(names []string) string {
	for _, name := range names {
		if idx := strings.Index(name, takeoutMarker); idx >= 0 {
			return name[:idx] + takeoutMarker
		}
	}
	for _, name := range names {
		if idx := strings.Index(name, legacyMarker); idx >= 0 {
			return name[:idx] + legacyMarker
		}
	}
	return ""
}

// ListNames filters names to base/subdir/**/*.ext (case-insensitive
// extension match) and returns them sorted.
func ListNames(names []string, base, subdir, ext string) []string {
	prefix := base + subdir
	lowExt := strings.ToLower(ext)

	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(strings.ToLower(name), lowExt) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ReadJSON decodes one member file into v. Member bytes may start with a
// UTF-8 BOM.
func (a *Archive) ReadJSON(name string, v any) error {
	raw, err := a.readAll(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// ReadCSV reads one member file as CSV-with-header and returns each row as
// a header-keyed map. Short rows are padded with empty strings.
func (a *Archive) ReadCSV(name string) ([]map[string]string, error) {
	raw, err := a.readAll(name)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (a *Archive) readAll(name string) ([]byte, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("member not found: %s", name)
	}
	rd, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open member %s: %w", name, err)
	}
	defer rd.Close()

	raw, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("read member %s: %w", name, err)
	}
	return bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")), nil
}
