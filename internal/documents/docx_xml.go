package documents

import (
	"encoding/xml"
	"strings"
)

// xmlNode is a generic WordprocessingML node: nguyenthenguyen/docx exposes
// the raw document.xml body as a string (its own API targets template
// find/replace, not paragraph/table enumeration), so this is the minimal
// structural parse needed to walk paragraphs and tables in document order,
// matching extractors.py's DocxExtractor (paragraph text plus table cells
// joined by " | " per row).
type xmlNode struct {
	XMLName xml.Name
	Content []byte
	Nodes   []xmlNode
}

func (n *xmlNode) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.XMLName = start.Name
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var child xmlNode
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			n.Nodes = append(n.Nodes, child)
		case xml.CharData:
			n.Content = append(n.Content, t...)
		case xml.EndElement:
			return nil
		}
	}
}

func findChild(n *xmlNode, local string) *xmlNode {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			return &n.Nodes[i]
		}
	}
	return nil
}

func childrenNamed(n *xmlNode, local string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			out = append(out, &n.Nodes[i])
		}
	}
	return out
}

// runText concatenates every "t" (text run) descendant of n, in document
// order, the same flattening python-docx's Paragraph.text performs.
func runText(n *xmlNode) string {
	var sb strings.Builder
	if n.XMLName.Local == "t" {
		sb.Write(n.Content)
	}
	for i := range n.Nodes {
		sb.WriteString(runText(&n.Nodes[i]))
	}
	return sb.String()
}

func tableCellText(tc *xmlNode) string {
	var parts []string
	for _, p := range childrenNamed(tc, "p") {
		if text := strings.TrimSpace(runText(p)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func tableRowText(tr *xmlNode) string {
	var cells []string
	for _, tc := range childrenNamed(tr, "tc") {
		cells = append(cells, tableCellText(tc))
	}
	return strings.Join(cells, " | ")
}

// extractDocxBody parses a WordprocessingML document.xml string and returns
// its paragraphs and tables, in order, one line per paragraph/table row.
func extractDocxBody(documentXML string) (string, error) {
	var root xmlNode
	if err := xml.Unmarshal([]byte(documentXML), &root); err != nil {
		return "", err
	}
	body := findChild(&root, "body")
	if body == nil {
		return "", nil
	}

	var lines []string
	for i := range body.Nodes {
		node := &body.Nodes[i]
		switch node.XMLName.Local {
		case "p":
			if text := strings.TrimSpace(runText(node)); text != "" {
				lines = append(lines, text)
			}
		case "tbl":
			for _, tr := range childrenNamed(node, "tr") {
				if line := strings.TrimSpace(tableRowText(tr)); line != "" {
					lines = append(lines, line)
				}
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
