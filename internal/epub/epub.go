package epub

import (
	"archive/zip"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Section is one content document from an EPUB, reduced to plain text.
type Section struct {
	Title string
	Text  string
}

var titleCaser = cases.Title(language.English)

// Extract opens an EPUB archive and returns its content documents as
// plain-text sections in archive order. Documents that render to empty text
// (covers, navigation pages) are skipped.
func Extract(epubPath string) ([]Section, error) {
	reader, err := zip.OpenReader(epubPath)
	if err != nil {
		return nil, fmt.Errorf("open epub %s: %w", epubPath, err)
	}
	defer reader.Close()

	files := make([]*zip.File, 0, len(reader.File))
	for _, file := range reader.File {
		if isContentDocument(file.Name) {
			files = append(files, file)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	sections := make([]Section, 0, len(files))
	for _, file := range files {
		section, err := readSection(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file.Name, err)
		}
		if section.Text == "" {
			continue
		}
		sections = append(sections, section)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("epub %s: no readable content documents", epubPath)
	}
	return sections, nil
}

func isContentDocument(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".xhtml", ".html", ".htm":
		return true
	default:
		return false
	}
}

func readSection(file *zip.File) (Section, error) {
	rc, err := file.Open()
	if err != nil {
		return Section{}, err
	}
	defer rc.Close()

	doc, err := html.Parse(rc)
	if err != nil {
		return Section{}, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(headingText(doc))
	if title == "" {
		title = fallbackTitle(file.Name)
	}
	return Section{Title: title, Text: documentText(doc)}, nil
}

// headingText returns the text of the first h1, h2, or h3 element.
func headingText(doc *html.Node) string {
	for _, tag := range []string{"h1", "h2", "h3"} {
		if node := findElement(doc, tag); node != nil {
			return collapseSpace(nodeText(node))
		}
	}
	return ""
}

func findElement(node *html.Node, tag string) *html.Node {
	if node.Type == html.ElementNode && node.Data == tag {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// fallbackTitle derives a section title from the document's file name.
func fallbackTitle(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	base = collapseSpace(base)
	if base == "" {
		return "Untitled"
	}
	return titleCaser.String(base)
}

// documentText flattens the document body to plain text. Block-level
// elements become line breaks, everything else flows together.
func documentText(doc *html.Node) string {
	root := findElement(doc, "body")
	if root == nil {
		root = doc
	}
	var sb strings.Builder
	writeText(&sb, root)

	lines := strings.Split(sb.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := collapseSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

func writeText(sb *strings.Builder, node *html.Node) {
	switch node.Type {
	case html.TextNode:
		sb.WriteString(node.Data)
		return
	case html.ElementNode:
		switch node.Data {
		case "script", "style", "head":
			return
		case "br":
			sb.WriteByte('\n')
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeText(sb, child)
	}
	if node.Type == html.ElementNode && isBlockElement(node.Data) {
		sb.WriteByte('\n')
	}
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "blockquote", "li", "tr",
		"h1", "h2", "h3", "h4", "h5", "h6":
		return true
	default:
		return false
	}
}

func nodeText(node *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
