// Package home renders the single page workflow view.
package home

import (
	"context"
	"embed"
	"html/template"
	"io"

	"github.com/a-h/templ"
	"github.com/kaymio/productcast/internal/state"
	"github.com/kaymio/productcast/storage/db"
	"github.com/kaymio/productcast/views/helpers"
)

//go:embed home.html
var files embed.FS

var page = template.Must(template.New("home.html").Funcs(helpers.Funcs()).ParseFS(files, "home.html"))

// Markets offered in the marketplace picker.
var Markets = []string{"Shein", "Amazon", "AliExpress", "Temu", "Etsy", "eBay", "Walmart"}

// Flash is a one-shot operator message.
type Flash struct {
	Level   string
	Message string
}

// Data is everything the page needs for one product.
type Data struct {
	Markets   []string
	ProductID string
	Form      map[string]string
	Preview   state.Preview
	Pinterest state.Result
	Website   state.Result
	Platforms map[string]state.Snapshot
	Flashes   []Flash
	History   []db.PublishEvent
}

// Value returns a form field.
func (d Data) Value(key string) string {
	return d.Form[key]
}

// HasPreview reports whether generated creative is available.
func (d Data) HasPreview() bool {
	return len(d.Preview) > 0
}

// P returns a preview field as a string.
func (d Data) P(key string) string {
	return d.Preview.String(key)
}

// Tags returns a preview list field.
func (d Data) Tags(key string) []string {
	return d.Preview.Strings(key)
}

// Carry prefers the generated value over the operator's input.
func (d Data) Carry(key string) string {
	if v := d.Preview.String(key); v != "" {
		return v
	}
	return d.Form[key]
}

// Status is the stored status for a platform channel.
func (d Data) Status(platform string) string {
	return d.Platforms[platform].String("status")
}

// Snapshot returns one field of a platform snapshot.
func (d Data) Snapshot(platform, key string) string {
	return d.Platforms[platform].String(key)
}

// InlineImage turns a base64 preview field into a data URL.
func (d Data) InlineImage(key string) template.URL {
	data := d.Preview.String(key)
	if data == "" {
		return ""
	}
	return template.URL("data:image/png;base64," + data)
}

// ResetForm feeds the per platform reset button.
type ResetForm struct {
	Data     Data
	Platform string
}

func (d Data) Reset(platform string) ResetForm {
	return ResetForm{Data: d, Platform: platform}
}

func (d Data) UseAffiliateLink() bool {
	return state.IsTruthy(d.Form["use_affiliate_link"])
}

// Page renders the workflow page.
func Page(data Data) templ.Component {
	if data.Markets == nil {
		data.Markets = Markets
	}
	if data.Form == nil {
		data.Form = map[string]string{}
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return page.Execute(w, data)
	})
}
