package mapsync

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrEmptyDocument is returned when the backend sends no markup.
var ErrEmptyDocument = errors.New("empty map document")

const embedStyleID = "tripmate-embed"

const embedCSS = `html,body{margin:0;padding:0;height:100%;width:100%;}svg{max-width:100%;height:auto;}`

// Adapt turns a raw server map document into an embeddable one. It has no side effects.
//
// The result always carries a UTF-8 charset, a viewport and the embed stylesheet.
// Scripts, stylesheets, frames and images that point elsewhere are removed so the
// document renders without further requests. Markers are read from elements that
// carry data-lat and data-lon attributes.
func Adapt(planID int64, raw []byte) (Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, ErrEmptyDocument
	}
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse map document: %w", err)
	}

	doc := Document{PlanID: planID}
	var head *html.Node
	var hasCharset, hasViewport, hasStyle bool
	var remove []*html.Node

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Head:
				if head == nil {
					head = n
				}
			case atom.Title:
				if doc.Title == "" {
					doc.Title = strings.TrimSpace(textContent(n))
				}
			case atom.Meta:
				if attr(n, "charset") != "" {
					hasCharset = true
				}
				if strings.EqualFold(attr(n, "name"), "viewport") {
					hasViewport = true
				}
			case atom.Style:
				if attr(n, "id") == embedStyleID {
					hasStyle = true
				}
			}
			if isExternal(n) {
				remove = append(remove, n)
				return
			}
			if m, ok := markerFrom(n); ok {
				doc.Markers = append(doc.Markers, m)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	for _, n := range remove {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	doc.Stripped = len(remove)

	if head != nil {
		if !hasStyle {
			style := element(atom.Style, html.Attribute{Key: "id", Val: embedStyleID})
			style.AppendChild(&html.Node{Type: html.TextNode, Data: embedCSS})
			prepend(head, style)
		}
		if !hasViewport {
			prepend(head, element(atom.Meta,
				html.Attribute{Key: "name", Val: "viewport"},
				html.Attribute{Key: "content", Val: "width=device-width, initial-scale=1"}))
		}
		if !hasCharset {
			prepend(head, element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return Document{}, fmt.Errorf("failed to render map document: %w", err)
	}
	doc.HTML = buf.String()
	return doc, nil
}

// isExternal reports whether n loads a resource from somewhere else.
func isExternal(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Iframe, atom.Embed, atom.Object:
		return attr(n, "src") != "" || attr(n, "data") != ""
	case atom.Link:
		return attr(n, "href") != ""
	case atom.Img, atom.Source:
		src := attr(n, "src")
		return src != "" && !strings.HasPrefix(src, "data:")
	}
	return false
}

func markerFrom(n *html.Node) (Marker, bool) {
	latStr, lonStr := attr(n, "data-lat"), attr(n, "data-lon")
	if latStr == "" || lonStr == "" {
		return Marker{}, false
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return Marker{}, false
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return Marker{}, false
	}
	m := Marker{
		Lat:  lat,
		Lon:  lon,
		Name: attr(n, "data-name"),
		Date: attr(n, "data-date"),
		Time: attr(n, "data-time"),
	}
	if m.Name == "" {
		m.Name = strings.TrimSpace(textContent(n))
	}
	if id, err := strconv.ParseInt(attr(n, "data-stop-id"), 10, 64); err == nil {
		m.StopID = id
	}
	return m, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func prepend(parent, child *html.Node) {
	if parent.FirstChild == nil {
		parent.AppendChild(child)
		return
	}
	parent.InsertBefore(child, parent.FirstChild)
}
