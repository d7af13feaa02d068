package report

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown is built once and shared; Convert is safe for concurrent use.
var (
	markdown     goldmark.Markdown
	markdownOnce sync.Once
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdown
}

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Energy Audit Report</title>
</head>
<body>
`

const htmlTail = `</body>
</html>
`

// HTML converts a rendered Markdown report into a standalone HTML page.
// Raw HTML in the source is dropped (goldmark's default), so text echoed into
// audit messages cannot inject markup.
func HTML(md []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := getMarkdown().Convert(md, &body); err != nil {
		return nil, fmt.Errorf("report: render html: %w", err)
	}
	var out bytes.Buffer
	out.Grow(len(htmlHead) + body.Len() + len(htmlTail))
	out.WriteString(htmlHead)
	out.Write(body.Bytes())
	out.WriteString(htmlTail)
	return out.Bytes(), nil
}
