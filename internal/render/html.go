// Package render turns a document into annotated HTML so the rendered page
// can be measured node by node.
package render

import (
	"fmt"
	"html"
	"strings"

	"chronicle/reorder/internal/document"
)

// HTML renders the document body. Top-level blocks and list items carry
// data-pos and data-depth attributes with their structural addresses.
func HTML(doc *document.Document) string {
	var out strings.Builder
	for _, block := range doc.Blocks() {
		items := map[*document.Node]document.Item{}
		if block.Kind == document.KindContainer {
			if list, err := doc.ItemsOf(block); err == nil {
				for _, item := range list {
					items[item.Node] = item
				}
			}
		}
		out.WriteString(renderNode(block.Node, annotation(block.Position, 1), items))
	}
	return out.String()
}

func annotation(pos, depth int) string {
	return fmt.Sprintf(` data-pos="%d" data-depth="%d"`, pos, depth)
}

// renderNode renders a node; attrs is injected into the outermost tag, and
// items maps depth-2 nodes to their addresses.
func renderNode(node *document.Node, attrs string, items map[*document.Node]document.Item) string {
	if node == nil {
		return ""
	}

	switch node.Type {
	case "paragraph":
		return fmt.Sprintf("<p%s>%s</p>\n", attrs, renderContent(node.Content, items))
	case "heading":
		level := 1
		if lvl, ok := node.Attrs["level"].(float64); ok && lvl >= 1 && lvl <= 6 {
			level = int(lvl)
		}
		return fmt.Sprintf("<h%d%s>%s</h%d>\n", level, attrs, renderContent(node.Content, items), level)
	case "bulletList", "taskList":
		return fmt.Sprintf("<ul%s>\n%s</ul>\n", attrs, renderContent(node.Content, items))
	case "orderedList":
		return fmt.Sprintf("<ol%s>\n%s</ol>\n", attrs, renderContent(node.Content, items))
	case "listItem", "taskItem":
		if item, ok := items[node]; ok {
			attrs = annotation(item.Position, 2)
		}
		return fmt.Sprintf("<li%s>%s</li>\n", attrs, renderContent(node.Content, nil))
	case "blockquote":
		return fmt.Sprintf("<blockquote%s>\n%s</blockquote>\n", attrs, renderContent(node.Content, items))
	case "codeBlock":
		return fmt.Sprintf("<pre%s><code>%s</code></pre>\n", attrs, html.EscapeString(plainText(node)))
	case "text":
		return renderTextWithMarks(node.Text, node.Marks)
	case "hardBreak":
		return "<br>"
	case "horizontalRule":
		return fmt.Sprintf("<hr%s>\n", attrs)
	case "image":
		src, _ := node.Attrs["src"].(string)
		return fmt.Sprintf(`<img%s src="%s">`+"\n", attrs, html.EscapeString(src))
	case "table":
		return fmt.Sprintf("<table%s>\n%s</table>\n", attrs, renderContent(node.Content, items))
	case "tableRow":
		return fmt.Sprintf("<tr>\n%s</tr>\n", renderContent(node.Content, items))
	case "tableCell":
		return fmt.Sprintf("<td>%s</td>\n", renderContent(node.Content, items))
	case "tableHeader":
		return fmt.Sprintf("<th>%s</th>\n", renderContent(node.Content, items))
	default:
		// Unknown node type - keep it measurable
		return fmt.Sprintf("<div%s>%s</div>\n", attrs, renderContent(node.Content, items))
	}
}

func renderContent(content []*document.Node, items map[*document.Node]document.Item) string {
	var result strings.Builder
	for _, child := range content {
		result.WriteString(renderNode(child, "", items))
	}
	return result.String()
}

func plainText(node *document.Node) string {
	if node.Type == "text" {
		return node.Text
	}
	var out strings.Builder
	for _, child := range node.Content {
		out.WriteString(plainText(child))
	}
	return out.String()
}

// renderTextWithMarks renders text with formatting marks
func renderTextWithMarks(text string, marks []document.Mark) string {
	if text == "" {
		return ""
	}

	htmlText := html.EscapeString(text)

	// Apply marks from outside in
	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].Type {
		case "bold":
			htmlText = fmt.Sprintf("<strong>%s</strong>", htmlText)
		case "italic":
			htmlText = fmt.Sprintf("<em>%s</em>", htmlText)
		case "code":
			htmlText = fmt.Sprintf("<code>%s</code>", htmlText)
		case "link":
			href, _ := marks[i].Attrs["href"].(string)
			htmlText = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), htmlText)
		case "strike":
			htmlText = fmt.Sprintf("<s>%s</s>", htmlText)
		case "underline":
			htmlText = fmt.Sprintf("<u>%s</u>", htmlText)
		}
	}

	return htmlText
}
