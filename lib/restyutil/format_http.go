package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

const redacted = "<redacted>"

// sensitiveHeaders carry the portal session, they are never written to a dump.
var sensitiveHeaders = []string{"Cookie", "Set-Cookie", "Authorization"}

var jsonFormat = &ojg.Options{Indent: 2, Sort: true}

// writeHeaders writes one "<prefix>Key: Value" line per header value, keys
// sorted so dumps of the same exchange compare equal.
func writeHeaders(out *strings.Builder, prefix string, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		for _, v := range headers[k] {
			if slices.Contains(sensitiveHeaders, http.CanonicalHeaderKey(k)) {
				v = redacted
			}
			fmt.Fprintf(out, "%s%s: %s\n", prefix, k, v)
		}
	}
}

// formatBody indents JSON bodies, anything else is returned as is.
func formatBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	parsed, err := oj.Parse(body)
	if err != nil {
		return string(body)
	}
	return oj.JSON(parsed, jsonFormat)
}

func requestBody(req *http.Request) []byte {
	if req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return []byte(fmt.Sprintf("<unreadable body: %s>", err))
	}
	defer body.Close()
	buff, err := io.ReadAll(body)
	if err != nil {
		return []byte(fmt.Sprintf("<unreadable body: %s>", err))
	}
	return buff
}

// formatHttpMessage renders an exchange the way curl -v does, request lines
// prefixed with "> " and response lines with "< ".
func formatHttpMessage(res *resty.Response) string {
	var out strings.Builder

	req := res.Request
	fmt.Fprintf(&out, "> %s %s\n", req.Method, req.URL)
	writeHeaders(&out, "> ", req.RawRequest.Header)
	if body := formatBody(requestBody(req.RawRequest)); body != "" {
		out.WriteString("\n")
		out.WriteString(body)
		out.WriteString("\n")
	}

	out.WriteString("\n")
	location := ""
	redirected, err := res.RawResponse.Location()
	if err == nil {
		location = " -> " + redirected.String()
	}
	fmt.Fprintf(&out, "< %d%s (%s)\n", res.StatusCode(), location, res.Time())
	writeHeaders(&out, "< ", res.Header())
	if body := formatBody(res.Body()); body != "" {
		out.WriteString("\n")
		out.WriteString(body)
		out.WriteString("\n")
	}

	return out.String()
}
