package web

import (
	"context"
	"embed"
	"html/template"
	"io"
	"regexp"
	"strings"

	"github.com/mpapenbr/racedash/pkg/chart/echarts"
	"github.com/mpapenbr/racedash/pkg/dashboard"
	"github.com/mpapenbr/racedash/pkg/story"
)

//go:embed templates/page.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html.tmpl"))

// ViewSource produces the views of the dashboard sections.
type ViewSource interface {
	Dispatch(ctx context.Context, section dashboard.Section) (*dashboard.View, error)
	Story() *story.Story
}

// HrefFunc returns the link of a section in the navigation.
type HrefFunc func(dashboard.Section) string

// ServerHref links sections to the paths served by Handler.
func ServerHref(s dashboard.Section) string { return "/sections/" + string(s) }

// FileHref links sections to the files written by a static render.
func FileHref(s dashboard.Section) string { return string(s) + ".html" }

type (
	navItem struct {
		Title  string
		Href   string
		Active bool
	}
	pagePanel struct {
		Kind    dashboard.PanelKind
		Title   string
		Text    template.HTML
		Metrics []story.Metric
		Message string
		Element template.HTML
		Script  template.HTML
	}
	pageData struct {
		Story   *story.Story
		View    *dashboard.View
		Nav     []navItem
		Panels  []pagePanel
		Scripts []string
	}
)

// PageRenderer writes a section as a complete HTML page.
type PageRenderer struct {
	views  ViewSource
	charts *echarts.Renderer
	href   HrefFunc
}

func NewPageRenderer(views ViewSource, charts *echarts.Renderer, href HrefFunc) *PageRenderer {
	if charts == nil {
		charts = echarts.New()
	}
	if href == nil {
		href = ServerHref
	}
	return &PageRenderer{views: views, charts: charts, href: href}
}

// Render dispatches section and writes the resulting page to w.
// The view is returned for callers that also need its data.
func (p *PageRenderer) Render(
	ctx context.Context, w io.Writer, section dashboard.Section,
) (*dashboard.View, error) {
	view, err := p.views.Dispatch(ctx, section)
	if err != nil {
		return nil, err
	}
	return view, p.Write(w, view)
}

// Write renders an already dispatched view.
func (p *PageRenderer) Write(w io.Writer, view *dashboard.View) error {
	data := pageData{
		Story:   p.views.Story(),
		View:    view,
		Scripts: p.charts.Scripts(),
	}
	for _, s := range dashboard.Sections() {
		data.Nav = append(data.Nav, navItem{
			Title: s.Title(), Href: p.href(s), Active: s == view.Section,
		})
	}
	for _, panel := range view.Panels {
		data.Panels = append(data.Panels, p.panel(panel))
	}
	return pageTemplate.Execute(w, data)
}

func (p *PageRenderer) panel(in dashboard.Panel) pagePanel {
	ret := pagePanel{
		Kind:    in.Kind,
		Title:   in.Title,
		Text:    renderText(in.Text),
		Metrics: in.Metrics,
		Message: in.Message,
	}
	if in.Kind == dashboard.KindChart && in.Chart != nil {
		snippet, err := p.charts.Snippet(*in.Chart)
		if err != nil {
			return pagePanel{Kind: dashboard.KindError, Title: in.Title, Message: err.Error()}
		}
		//nolint:gosec // generated by go-echarts from our own data
		ret.Element, ret.Script = template.HTML(snippet.Element), template.HTML(snippet.Script)
	}
	return ret
}

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// renderText turns narrative lines into html. Lines starting with "- "
// become list items, **text** is rendered bold.
func renderText(lines []string) template.HTML {
	var b strings.Builder
	inList := false
	for _, line := range lines {
		item, isItem := strings.CutPrefix(line, "- ")
		switch {
		case isItem && !inList:
			b.WriteString("<ul>")
			inList = true
		case !isItem && inList:
			b.WriteString("</ul>")
			inList = false
		}
		content := boldPattern.ReplaceAllString(template.HTMLEscapeString(item), "<strong>$1</strong>")
		if isItem {
			b.WriteString("<li>" + content + "</li>")
		} else {
			b.WriteString("<p>" + content + "</p>")
		}
	}
	if inList {
		b.WriteString("</ul>")
	}
	//nolint:gosec // content is escaped above
	return template.HTML(b.String())
}
