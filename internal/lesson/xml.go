package lesson

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
)

// XMLSource parses the legacy XML lesson dialect. Both the
// <ShadowingSession><SessionInfo> layout and the older <shadowing><Meta>
// layout are accepted; element names match case-insensitively and sentence
// or word fields may be given as child elements or attributes.
type XMLSource struct{}

type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

func (XMLSource) Format() string { return "xml" }

func (XMLSource) Detect(data []byte) bool {
	return len(data) > 0 && data[0] == '<'
}

func (XMLSource) Parse(data []byte) (*Lesson, error) {
	var root xmlNode
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		return nil, err
	}

	info := root.find("SessionInfo", "Meta")
	l := &Lesson{
		Title:       infoField(&root, info, "Title"),
		Description: infoField(&root, info, "Description"),
		CreatedAt:   infoField(&root, info, "CreatedAt"),
	}

	for i, node := range root.findAll("Sentence") {
		s := Sentence{
			English: node.field("English"),
			Korean:  node.field("Korean"),
		}
		s.Index = i + 1
		if raw := node.field("Index"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				s.Index = n
			}
		}
		if raw := node.field("Stability"); raw != "" {
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.Stability = &f
			}
		}
		if words := node.find("Words"); words != nil {
			for _, w := range words.findAll("Word") {
				s.Words = append(s.Words, Word{
					Term:       w.field("Term"),
					Meaning:    w.field("Meaning"),
					Difficulty: parseDifficulty(w.field("Difficulty")),
				})
			}
		}
		l.Sentences = append(l.Sentences, s)
	}

	return normalize(l), nil
}

func infoField(root, info *xmlNode, name string) string {
	if info != nil {
		if n := info.find(name); n != nil {
			return n.text()
		}
	}
	if n := root.find(name); n != nil {
		return n.text()
	}
	return ""
}

// field returns the text of the first child element called name, falling
// back to an attribute of the same name.
func (n *xmlNode) field(name string) string {
	if c := n.find(name); c != nil {
		return strings.TrimSpace(c.text())
	}
	return strings.TrimSpace(n.attr(name))
}

func (n *xmlNode) attr(name string) string {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

// find returns the first descendant, depth first, matching any of names.
func (n *xmlNode) find(names ...string) *xmlNode {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.is(names...) {
			return c
		}
		if d := c.find(names...); d != nil {
			return d
		}
	}
	return nil
}

func (n *xmlNode) findAll(name string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.is(name) {
			out = append(out, c)
			continue
		}
		out = append(out, c.findAll(name)...)
	}
	return out
}

func (n *xmlNode) is(names ...string) bool {
	for _, name := range names {
		if strings.EqualFold(n.XMLName.Local, name) {
			return true
		}
	}
	return false
}

// text mirrors DOM textContent: the node's character data followed by that
// of its descendants.
func (n *xmlNode) text() string {
	var b strings.Builder
	b.WriteString(n.Content)
	for i := range n.Nodes {
		b.WriteString(n.Nodes[i].text())
	}
	return b.String()
}
