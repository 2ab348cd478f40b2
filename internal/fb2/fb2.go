// Package fb2 reads FictionBook 2.0 files, the format the series is shipped
// in. Only the pieces the reader needs are parsed: book metadata for import
// and the section tree for paginated reading.
package fb2

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Book is the parsed, flattened view of one FB2 file.
type Book struct {
	Title      string
	Author     string
	Annotation string
	Sections   []Section
}

// Section is one readable chunk, flattened from the FB2 section tree in
// document order.
type Section struct {
	Title      string
	Paragraphs []string
}

type xmlDocument struct {
	Description struct {
		TitleInfo struct {
			BookTitle string `xml:"book-title"`
			Authors   []struct {
				FirstName  string `xml:"first-name"`
				MiddleName string `xml:"middle-name"`
				LastName   string `xml:"last-name"`
				Nickname   string `xml:"nickname"`
			} `xml:"author"`
			Annotation struct {
				Paragraphs []string `xml:"p"`
			} `xml:"annotation"`
		} `xml:"title-info"`
	} `xml:"description"`
	Bodies []xmlBody `xml:"body"`
}

type xmlBody struct {
	// notes and comments bodies carry a name attribute and are skipped
	Name     string       `xml:"name,attr"`
	Sections []xmlSection `xml:"section"`
}

type xmlSection struct {
	Title struct {
		Paragraphs []string `xml:"p"`
	} `xml:"title"`
	Paragraphs []string     `xml:"p"`
	Children   []xmlSection `xml:"section"`
}

// Parse reads an FB2 document. Sections nested inside other sections are
// flattened into a single ordered list.
func Parse(r io.Reader) (*Book, error) {
	var doc xmlDocument
	dec := xml.NewDecoder(r)
	// FB2 files in the wild use windows-1251 and friends; accept any charset
	// label and read the bytes as-is
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode fb2: %w", err)
	}

	b := &Book{
		Title:      strings.TrimSpace(doc.Description.TitleInfo.BookTitle),
		Annotation: strings.TrimSpace(strings.Join(doc.Description.TitleInfo.Annotation.Paragraphs, " ")),
	}
	if b.Title == "" {
		return nil, fmt.Errorf("fb2: missing book title")
	}

	var authors []string
	for _, a := range doc.Description.TitleInfo.Authors {
		name := strings.TrimSpace(strings.Join([]string{a.FirstName, a.MiddleName, a.LastName}, " "))
		name = strings.Join(strings.Fields(name), " ")
		if name == "" {
			name = strings.TrimSpace(a.Nickname)
		}
		if name != "" {
			authors = append(authors, name)
		}
	}
	b.Author = strings.Join(authors, ", ")

	for _, body := range doc.Bodies {
		if body.Name != "" {
			continue
		}
		for _, s := range body.Sections {
			flatten(s, &b.Sections)
		}
	}
	return b, nil
}

// ParseFile is Parse over a file on disk.
func ParseFile(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fb2: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func flatten(s xmlSection, out *[]Section) {
	if len(s.Paragraphs) > 0 {
		sec := Section{Title: strings.TrimSpace(strings.Join(s.Title.Paragraphs, " "))}
		for _, p := range s.Paragraphs {
			if p = strings.TrimSpace(p); p != "" {
				sec.Paragraphs = append(sec.Paragraphs, p)
			}
		}
		if len(sec.Paragraphs) > 0 {
			*out = append(*out, sec)
		}
	}
	for _, child := range s.Children {
		flatten(child, out)
	}
}
