package workday

import (
	"fmt"
	"html/template"
	"io"

	"github.com/threadsokc/workday-calendar/internal/event"
)

// View is everything the widget template needs.
type View struct {
	Title       string
	DisplayDate string
	ExtraInfo   string
	// Action is the URL the form posts to.
	Action     string
	Fields     event.Fields
	NonceField string
	Nonce      string
}

var widgetTemplate = template.Must(template.New("widget").Parse(`<section class="widget workday">
{{- if .Title}}
<h2 class="widget-title">{{.Title}}</h2>
{{- end}}
<strong class="date">{{.DisplayDate}}</strong>
<form style="display: inline" method="post" name="build-ics" action="{{.Action}}">
<input type="hidden" name="datestart" value="{{.Fields.DateStart}}" />
<input type="hidden" name="dateend" value="{{.Fields.DateEnd}}" />
<input type="hidden" name="address" value="{{.Fields.Address}}" />
<input type="hidden" name="uri" value="{{.Fields.URI}}" />
<input type="hidden" name="filename" value="{{.Fields.FileName}}" />
<input type="hidden" name="summary" value="{{.Fields.Summary}}" />
<input type="hidden" name="description" value="{{.Fields.Description}}" />
<input type="hidden" name="{{.NonceField}}" value="{{.Nonce}}" />
<button type="submit" title="Add to calendar" name="build_calendar" value="build_calendar">Add to calendar</button>
</form>
{{- if .ExtraInfo}}
<p>{{.ExtraInfo}}</p>
{{- end}}
</section>
`))

// View assembles the widget view for s. The caller supplies the nonce
// because token issuing belongs to the HTTP layer.
func (b *Builder) View(s Settings, action, nonceField, nonce string) (View, error) {
	s = s.Sanitize()

	display, err := b.DisplayDate(s.Date)
	if err != nil {
		return View{}, err
	}
	fields, err := b.Fields(s.Date)
	if err != nil {
		return View{}, err
	}

	return View{
		Title:       s.Title,
		DisplayDate: display,
		ExtraInfo:   s.ExtraInfo,
		Action:      action,
		Fields:      fields,
		NonceField:  nonceField,
		Nonce:       nonce,
	}, nil
}

// Render writes the widget HTML for v.
func Render(w io.Writer, v View) error {
	if err := widgetTemplate.Execute(w, v); err != nil {
		return fmt.Errorf("rendering widget: %w", err)
	}
	return nil
}
