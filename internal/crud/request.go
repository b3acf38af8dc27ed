package crud

import (
	"net/http"
	"net/url"
	"strings"
)

// Reserved request parameters.
const (
	ParamAdminCode      = "_admin"
	ParamRoute          = "_route"
	ParamXMLHTTPRequest = "_xml_http_request"
)

// Request is the host-independent view of one inbound admin request.
// Params carries route and query parameters, Form the submitted body.
type Request struct {
	Method string
	Params url.Values
	Form   url.Values
	Header http.Header
	Flash  FlashSink
}

// Param returns the first value for key, looking at Params before Form.
func (r *Request) Param(key string) string {
	if v := r.Params.Get(key); v != "" {
		return v
	}
	return r.Form.Get(key)
}

// Has reports whether key was sent at all, even with an empty value.
func (r *Request) Has(key string) bool {
	if _, ok := r.Form[key]; ok {
		return true
	}
	_, ok := r.Params[key]
	return ok
}

// Values returns every value for key, accepting the "key[]" spelling browsers send.
func (r *Request) Values(key string) []string {
	var out []string
	for _, src := range []url.Values{r.Form, r.Params} {
		out = append(out, src[key]...)
		out = append(out, src[key+"[]"]...)
	}
	return out
}

// Route is the name of the route that matched the request.
func (r *Request) Route() string {
	return r.Params.Get(ParamRoute)
}

// IsXMLHTTPRequest reports whether the client expects a fragment or JSON
// rather than a full page.
func (r *Request) IsXMLHTTPRequest() bool {
	if r.Header != nil {
		if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
			return true
		}
		if strings.EqualFold(r.Header.Get("HX-Request"), "true") {
			return true
		}
	}
	return truthy(r.Param(ParamXMLHTTPRequest))
}

// SetFlash forwards to the request's flash sink, if any.
func (r *Request) SetFlash(category, key string) {
	if r.Flash != nil {
		r.Flash.SetFlash(category, key)
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "off", "no":
		return false
	}
	return true
}
