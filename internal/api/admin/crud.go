package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZJUSCT/backoffice/internal/auth"
	"github.com/ZJUSCT/backoffice/internal/crud"
	"github.com/ZJUSCT/backoffice/internal/render"
	"github.com/ZJUSCT/backoffice/internal/util"
	"github.com/gin-gonic/gin"
	ginrender "github.com/gin-gonic/gin/render"
	"go.uber.org/zap"
)

const maxMultipartMemory = 32 << 20

type action func(ctx context.Context, req *crud.Request) (crud.Outcome, error)

func (h *Handler) actionFor(route string) action {
	switch route {
	case crud.RouteList:
		return h.dispatcher.List
	case crud.RouteCreate:
		return h.dispatcher.Create
	case crud.RouteEdit:
		return h.dispatcher.Edit
	case crud.RouteShow:
		return h.dispatcher.Show
	case crud.RouteDelete:
		return h.dispatcher.Delete
	case crud.RouteBatch:
		return h.dispatcher.Batch
	}
	return nil
}

// action serves one route of one admin through the dispatcher.
func (h *Handler) action(code, route string) gin.HandlerFunc {
	run := h.actionFor(route)
	return func(c *gin.Context) {
		req, err := h.crudRequest(c, code, route)
		if err != nil {
			h.fail(c, req, err)
			return
		}
		if run == nil {
			h.fail(c, req, errors.New("unknown route "+route))
			return
		}
		out, err := run(c.Request.Context(), req)
		if err != nil {
			h.fail(c, req, err)
			return
		}
		h.write(c, req, out)
	}
}

// crudRequest converts the gin request. Route parameters and the injected
// admin code take precedence over query parameters of the same name.
func (h *Handler) crudRequest(c *gin.Context, code, route string) (*crud.Request, error) {
	params := url.Values{}
	for k, v := range c.Request.URL.Query() {
		params[k] = v
	}
	for _, p := range c.Params {
		params.Set(p.Key, p.Value)
	}
	params.Set(crud.ParamAdminCode, code)
	params.Set(crud.ParamRoute, route)

	req := &crud.Request{
		Method: c.Request.Method,
		Params: params,
		Form:   url.Values{},
		Header: c.Request.Header,
		Flash:  h.sessions.Sink(c),
	}

	if c.Request.Method == http.MethodPost {
		var err error
		if isMultipart(c) {
			err = c.Request.ParseMultipartForm(maxMultipartMemory)
		} else {
			err = c.Request.ParseForm()
		}
		if err != nil {
			return req, errors.Join(crud.ErrInvalidRequest, err)
		}
		req.Form = c.Request.PostForm
	}
	return req, nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func (h *Handler) write(c *gin.Context, req *crud.Request, out crud.Outcome) {
	switch out.Kind {
	case crud.KindRedirect:
		c.Redirect(out.Status, out.URL)
	case crud.KindJSON:
		if isMultipart(c) && req.IsXMLHTTPRequest() {
			// Iframe upload transports cannot read application/json.
			data, err := json.Marshal(out.Payload)
			if err != nil {
				h.fail(c, req, err)
				return
			}
			c.Render(out.Status, ginrender.Data{ContentType: "text/plain; charset=utf-8", Data: data})
			return
		}
		c.JSON(out.Status, out.Payload)
	case crud.KindRender:
		data := h.pageData(c)
		for k, v := range out.View {
			data[k] = v
		}
		c.HTML(out.Status, out.Template, data)
	}
}

// pageData is what every rendered page receives besides its view.
func (h *Handler) pageData(c *gin.Context) gin.H {
	data := gin.H{
		"base_template": render.Layout,
		"flashes":       h.sessions.Pop(c),
	}
	if p, ok := auth.FromContext(c.Request.Context()); ok {
		data["principal"] = p
		data["nav"] = h.navigation(c.Request.Context())
	}
	return data
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, crud.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, crud.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, crud.ErrInvalidRequest):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, req *crud.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.S().Errorf("admin request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		msg = http.StatusText(status)
	}
	if util.WantsJSON(c) || (req != nil && req.IsXMLHTTPRequest() && c.Request.Method == http.MethodPost) {
		util.Error(c, status, msg)
		return
	}
	h.renderError(c, req, status, msg)
}

func (h *Handler) renderError(c *gin.Context, req *crud.Request, status int, msg string) {
	data := h.pageData(c)
	data["status"] = status
	data["title"] = http.StatusText(status)
	data["message"] = msg
	if req != nil {
		data["base_template"] = h.dispatcher.BaseTemplate(req)
	}
	c.HTML(status, "error.html", data)
}
