// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// prefixFlattener feeds raw tokens to a Decoder with namespace prefixes
// folded into local names ("android:name"), so struct tags match the
// prefixed attribute names regardless of the namespace URI in scope.
type prefixFlattener struct {
	d *xml.Decoder
}

func (p prefixFlattener) Token() (xml.Token, error) {
	tok, err := p.d.RawToken()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case xml.StartElement:
		t = t.Copy()
		t.Name = flatten(t.Name)
		for i := range t.Attr {
			t.Attr[i].Name = flatten(t.Attr[i].Name)
		}
		return t, nil
	case xml.EndElement:
		t.Name = flatten(t.Name)
		return t, nil
	default:
		return xml.CopyToken(tok), nil
	}
}

func flatten(n xml.Name) xml.Name {
	if n.Space == "" {
		return n
	}
	return xml.Name{Local: n.Space + ":" + n.Local}
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: errors.New("empty document")}
	}
	dec := xml.NewTokenDecoder(prefixFlattener{d: xml.NewDecoder(bytes.NewReader(data))})
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &ParseError{Err: err}
	}
	return &m, nil
}

// Read parses the manifest file at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	m, err := Parse(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return m, nil
}

// Marshal encodes m as an indented XML document with declaration.
func Marshal(m *Manifest) ([]byte, error) {
	if m == nil {
		return nil, &SerializeError{Err: errors.New("nil manifest")}
	}
	if m.Package == "" {
		return nil, &SerializeError{Err: errors.New("package attribute is required")}
	}
	body, err := xml.MarshalIndent(m, "", "    ")
	if err != nil {
		return nil, &SerializeError{Err: err}
	}
	var buf bytes.Buffer
	buf.Grow(len(xml.Header) + len(body) + 1)
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Write serializes m to outDir/AndroidManifest.xml, creating outDir if
// needed, and returns the file path.
func Write(m *Manifest, outDir string) (string, error) {
	data, err := Marshal(m)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", &IOError{Op: "create directory", Path: outDir, Err: err}
	}
	path := filepath.Join(outDir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &IOError{Op: "write", Path: path, Err: err}
	}
	return path, nil
}
