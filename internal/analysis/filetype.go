// Package analysis describes the content of newly created files for log enrichment.
package analysis

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// headerSize is the number of leading bytes filetype needs to match every signature
const headerSize = 262

// Result describes a file's content
type Result struct {
	MIME         string // empty when the signature is unknown
	RealExt      string // extension matching the header, "unknown" if none
	DeclaredExt  string // extension from the file name
	IsMasquerade bool   // header and name disagree, and no alias explains it
}

// TypeInspector matches file headers against known signatures
type TypeInspector struct {
	// real extension -> declared extensions that are legitimately that format
	aliases map[string]map[string]bool
}

func NewTypeInspector() *TypeInspector {
	t := &TypeInspector{aliases: make(map[string]map[string]bool)}
	t.initRules()
	return t
}

func (t *TypeInspector) initRules() {
	allow := func(realType string, declared ...string) {
		if _, ok := t.aliases[realType]; !ok {
			t.aliases[realType] = map[string]bool{realType: true}
		}
		for _, ext := range declared {
			t.aliases[realType][ext] = true
		}
	}

	// office documents and packages are zip containers
	allow("zip",
		"docx", "docm", "dotx", "dotm",
		"xlsx", "xlsm", "xltx", "xltm",
		"pptx", "pptm", "potx", "potm",
		"jar", "war", "ear", "apk",
		"odt", "ods", "odp",
		"whl", "nupkg",
	)
	allow("xml", "svg", "html", "htm", "kml", "plist", "config")
	allow("mp4", "m4v", "mov", "qt")
	allow("mov", "qt", "mp4")
	allow("ogg", "ogv", "oga", "spx")
	allow("exe", "dll", "sys", "scr", "cpl", "ocx")
	allow("gz", "gzip", "tgz")
	allow("jpg", "jpeg", "jpe")
	allow("tif", "tiff")
}

// Inspect reads the header of filePath. Empty files and files without a known
// signature are not errors.
func (t *TypeInspector) Inspect(filePath string) (*Result, error) {
	declared := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file failed: %w", err)
	}
	defer file.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header failed: %w", err)
	}
	if n == 0 {
		return &Result{RealExt: "unknown", DeclaredExt: declared}, nil
	}

	kind, _ := filetype.Match(head[:n])
	if kind == filetype.Unknown {
		// most text formats have no magic bytes
		return &Result{RealExt: "unknown", DeclaredExt: declared}, nil
	}

	result := &Result{
		MIME:        kind.MIME.Value,
		RealExt:     kind.Extension,
		DeclaredExt: declared,
	}
	if declared == "" || declared == kind.Extension {
		return result, nil
	}
	if allowed, ok := t.aliases[kind.Extension]; ok && allowed[declared] {
		return result, nil
	}
	result.IsMasquerade = true
	return result, nil
}
