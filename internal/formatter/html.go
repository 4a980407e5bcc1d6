package formatter

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/profvis/pkg/model"
)

var codeTableTemplate = template.Must(template.New("codetable").Parse(`{{range .}}<table class="profvis-code" data-filename="{{.Filename}}">
<thead><tr><th class="line">Line</th><th class="time">Time (ms)</th><th class="bar"></th><th class="code">{{.Filename}}</th></tr></thead>
<tbody>
{{range .Rows}}<tr class="{{.Class}}"><td class="line">{{.Linenum}}</td><td class="time">{{.Time}}</td><td class="bar"><div style="width: {{.Width}}%"></div></td><td class="code"><pre>{{.Content}}</pre></td></tr>
{{end}}</tbody>
</table>
{{end}}`))

type htmlFile struct {
	Filename string
	Rows     []htmlRow
}

type htmlRow struct {
	Class   string
	Linenum int
	Time    string
	Width   template.CSS
	Content string
}

// HTMLFormatter renders code tables as HTML. Source text is escaped.
type HTMLFormatter struct{}

// NewHTMLFormatter creates an HTML formatter.
func NewHTMLFormatter() *HTMLFormatter {
	return &HTMLFormatter{}
}

// Name returns "html".
func (f *HTMLFormatter) Name() string {
	return "html"
}

// Format writes one table per file.
func (f *HTMLFormatter) Format(w io.Writer, files []model.FileLineTimes, opts Options) error {
	h := newHighlighter(opts.Highlight)
	data := make([]htmlFile, 0, len(files))
	for _, file := range files {
		lines := visibleLines(file, opts)
		rows := make([]htmlRow, 0, len(lines))
		for _, line := range lines {
			classes := h.classesFor(line.Content)
			if line.SumTime == 0 {
				classes = append(classes, "zero")
			}
			rows = append(rows, htmlRow{
				Class:   strings.Join(classes, " "),
				Linenum: line.Linenum,
				Time:    roundedTime(line.SumTime),
				Width:   template.CSS(fmt.Sprintf("%.2f", line.PropTime*100)),
				Content: line.Content,
			})
		}
		data = append(data, htmlFile{Filename: file.Filename, Rows: rows})
	}
	return codeTableTemplate.Execute(w, data)
}

func roundedTime(ms float64) string {
	if ms == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", ms)
}
