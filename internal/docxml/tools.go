package docxml

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ImagePaths returns the local image file of every document that has one.
func ImagePaths(list *DocumentList) []string {
	var out []string
	for _, d := range list.Docs {
		if p, ok := d.Get(FieldLocalImageFile); ok {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}

// FindBySuffix returns the documents whose id ends with suffix.
func FindBySuffix(list *DocumentList, suffix string) []*Document {
	var out []*Document
	for _, d := range list.Docs {
		if strings.HasSuffix(d.ID(), suffix) {
			out = append(out, d)
		}
	}
	return out
}

// Split cuts list into parts of at most perFile documents. The root element
// name is kept for every part.
func Split(list *DocumentList, perFile int) []*DocumentList {
	if perFile <= 0 {
		perFile = 1000
	}
	var parts []*DocumentList
	for start := 0; start < len(list.Docs); start += perFile {
		end := start + perFile
		if end > len(list.Docs) {
			end = len(list.Docs)
		}
		parts = append(parts, &DocumentList{XMLName: list.XMLName, Docs: list.Docs[start:end]})
	}
	return parts
}

// SplitOptions control SplitFiles.
type SplitOptions struct {
	PerFile int
	// Dir receives the parts; empty means the current directory.
	Dir string
	// Script, when set, receives a shell script posting each part to
	// UpdateURL followed by a commit.
	Script    io.Writer
	UpdateURL string
}

// SplitFiles splits list and writes the parts as <base>NNN.xml, where base
// is the file name of in without its extension. It returns the written
// paths.
func SplitFiles(list *DocumentList, in string, opts SplitOptions) ([]string, error) {
	ext := filepath.Ext(in)
	base := strings.TrimSuffix(filepath.Base(in), ext)
	if ext == "" {
		ext = ".xml"
	}
	var sw *bufio.Writer
	if opts.Script != nil {
		sw = bufio.NewWriter(opts.Script)
	}
	var paths []string
	for i, part := range Split(list, opts.PerFile) {
		name := fmt.Sprintf("%s%03d%s", base, i, ext)
		if opts.Dir != "" {
			name = filepath.Join(opts.Dir, name)
		}
		if err := part.WriteFile(name); err != nil {
			return paths, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, name)
		if sw != nil {
			fmt.Fprintf(sw, "echo \"*** %s\"\n", name)
			fmt.Fprintf(sw, "curl %s -H \"Content-Type: text/xml\" --data-binary @%s\n", opts.UpdateURL, name)
			fmt.Fprintf(sw, "curl %s -H \"Content-Type: text/xml\" --data-binary \"<commit/>\"\n", opts.UpdateURL)
		}
	}
	if sw != nil {
		if err := sw.Flush(); err != nil {
			return paths, err
		}
	}
	return paths, nil
}

// MergeStats summarizes a Merge.
type MergeStats struct {
	Merged  int
	Missing []string
}

// Merge copies every non-id field of each src document into the target
// document with the same id. When urlMarker is not empty and occurs in the
// id, an imgurl field holding the id from the marker on is appended as
// well. Target documents without a source counterpart are listed in
// Missing and left unchanged.
func Merge(src, target *DocumentList, urlMarker string) MergeStats {
	byID := make(map[string]*Document, len(src.Docs))
	for _, d := range src.Docs {
		byID[d.ID()] = d
	}
	var st MergeStats
	for _, t := range target.Docs {
		id := t.ID()
		s, ok := byID[id]
		if !ok {
			st.Missing = append(st.Missing, id)
			continue
		}
		for _, f := range s.Fields {
			if f.Name == FieldID {
				continue
			}
			t.Fields = append(t.Fields, f)
		}
		if urlMarker != "" {
			if i := strings.Index(id, urlMarker); i >= 0 {
				t.Add(FieldImageURL, id[i:])
			}
		}
		st.Merged++
	}
	return st
}
