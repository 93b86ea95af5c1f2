package browser

import (
	"fmt"
	"strconv"

	"wris-inventory/internal/facet"
)

// findContainerJS defines findContainer(name) in a script. Multiselect
// widgets live in the parent of their <label>, the station widget in the
// parent of the "Station Selection" heading.
const findContainerJS = `
function findContainer(name) {
  const byText = (sel, text) => Array.from(document.querySelectorAll(sel))
    .find(e => (e.innerText || '').trim().includes(text));
  const anchor = name === 'Station'
    ? byText('h3', 'Station Selection')
    : byText('label', name);
  return anchor ? anchor.parentElement : null;
}
function dropdownButton(c) {
  return c.querySelector('div.multiselect-dropdown .dropdown-btn') || c.querySelector('span.dropdown-btn');
}`

const (
	modeSelector    = "select#manualTelemetry"
	datasetSelector = "select#applicationSelect"
	optionSelector  = "li.multiselect-item-checkbox"
)

func script(body string, args ...any) string {
	quoted := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			quoted[i] = strconv.Quote(v)
		default:
			quoted[i] = v
		}
	}
	return fmt.Sprintf("(() => {\n%s\n%s\n})()", findContainerJS, fmt.Sprintf(body, quoted...))
}

// containerName is the text of the label (or heading) that anchors the
// widget of a level.
func containerName(level facet.Level) string {
	return level.String()
}

func openDropdownScript(level facet.Level) string {
	return script(`
const c = findContainer(%s);
if (!c) return false;
const btn = dropdownButton(c);
if (btn) btn.click();
return true;`, containerName(level))
}

// readDropdownScript returns the container's html and closes the dropdown
// opened by openDropdownScript.
func readDropdownScript(level facet.Level) string {
	return script(`
const c = findContainer(%s);
if (!c) return '';
const html = c.outerHTML;
const btn = dropdownButton(c);
if (btn) btn.click();
return html;`, containerName(level))
}

func clickOptionScript(level facet.Level, index int) string {
	return script(`
const c = findContainer(%s);
if (!c) return false;
const btn = dropdownButton(c);
if (btn) btn.click();
const items = c.querySelectorAll(%s);
const ok = %d < items.length;
if (ok) {
  try { items[%d].scrollIntoView({block: 'center'}); } catch (e) {}
  items[%d].click();
}
if (btn) btn.click();
return ok;`, containerName(level), optionSelector, index, index, index)
}

// clearScript deselects every entry through the "Select all" entry, it
// returns 'noop' when the widget offers nothing to clear.
func clearScript(level facet.Level) string {
	return script(`
const c = findContainer(%s);
if (!c) return 'noop';
const btn = dropdownButton(c);
if (btn) btn.click();
const all = Array.from(c.querySelectorAll(%s))
  .find(e => (e.innerText || '').toLowerCase().includes('select all'));
let out = 'noop';
if (all) {
  const input = all.querySelector('input');
  if (!(input && input.checked)) all.click();
  all.click();
  out = 'cleared';
}
if (btn) btn.click();
return out;`, containerName(level), optionSelector)
}

func selectHTMLScript(selector string) string {
	return script(`
const s = document.querySelector(%s);
return s ? s.outerHTML : '';`, selector)
}

func chooseSelectOptionScript(selector, label string) string {
	return script(`
const s = document.querySelector(%s);
if (!s) return false;
const o = Array.from(s.options).find(o => o.text.trim() === %s);
if (!o) return false;
s.value = o.value;
s.dispatchEvent(new Event('change', {bubbles: true}));
return true;`, selector, label)
}

const metadataScript = `(() => {
  const h = Array.from(document.querySelectorAll('h3'))
    .find(e => (e.innerText || '').includes('Station Metadata'));
  return h && h.parentElement ? h.parentElement.outerHTML : '';
})()`

const findFrameScript = `(() => {
  const f = Array.from(document.querySelectorAll('iframe'))
    .find(f => (f.src || '').includes('/dataSet/'));
  return f ? f.src : '';
})()`
