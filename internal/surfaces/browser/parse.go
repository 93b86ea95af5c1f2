package browser

import (
	"fmt"
	"strings"

	"wris-inventory/internal/facet"
	"wris-inventory/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// parseDropdown reads the entries of a multiselect container in the order
// they are rendered, including the "Select all" entry.
func parseDropdown(container string) ([]facet.RawOption, error) {
	doc, err := htmlutil.ParseFragment(container)
	if err != nil {
		return nil, err
	}
	var out []facet.RawOption
	doc.Find(optionSelector).Each(func(_ int, li *goquery.Selection) {
		out = append(out, facet.RawOption{
			Label: htmlutil.Text(li),
			Value: strings.TrimSpace(li.Find("input").AttrOr("value", "")),
		})
	})
	return out, nil
}

// parseSelect reads the options of a <select>, placeholders without a value
// are skipped.
func parseSelect(html string) ([]facet.RawOption, error) {
	doc, err := htmlutil.ParseFragment(html)
	if err != nil {
		return nil, err
	}
	var out []facet.RawOption
	doc.Find("option").Each(func(_ int, o *goquery.Selection) {
		value, hasValue := o.Attr("value")
		_, disabled := o.Attr("disabled")
		label := htmlutil.Text(o)
		if disabled || label == "" || (hasValue && strings.TrimSpace(value) == "") {
			return
		}
		out = append(out, facet.RawOption{Label: label, Value: value})
	})
	return out, nil
}

// parseMetadata reads the station metadata table. ok is false while the
// table has no station code, the panel is still loading in that case.
func parseMetadata(panel string) (meta facet.Metadata, ok bool, err error) {
	if panel == "" {
		return facet.Metadata{}, false, nil
	}
	doc, err := htmlutil.ParseFragment(panel)
	if err != nil {
		return facet.Metadata{}, false, err
	}

	fields := map[string]string{}
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		th := htmlutil.Text(tr.Find("th"))
		if th == "" {
			return
		}
		fields[strings.ToLower(th)] = htmlutil.Text(tr.Find("td"))
	})

	code := fields["station code"]
	if code == "" {
		return facet.Metadata{}, false, nil
	}
	name := fields["station name"]
	return facet.Metadata{
		StationCode: code,
		StationName: name,
		StationID:   code,
		MetaName:    name,
	}, true, nil
}

func describe(raw []facet.RawOption) string {
	labels := make([]string, len(raw))
	for i, r := range raw {
		labels[i] = r.Label
	}
	return fmt.Sprintf("%d entries [%s]", len(raw), strings.Join(labels, ", "))
}
