package crud

import "net/url"

// Scope binds an admin to one request. It holds the state a pooled admin must
// not carry: the current subject and whether the admin runs as a child.
type Scope struct {
	Request      *Request
	Admin        Admin
	Root         Admin
	CurrentChild bool
	Subject      any
}

// Code returns the code of the admin the request addressed.
func (s *Scope) Code() string {
	return s.Admin.Code()
}

// ParentID is the identifier of the parent object when the admin runs as a child.
func (s *Scope) ParentID() string {
	if !s.CurrentChild || s.Admin.Parent() == nil {
		return ""
	}
	return s.Request.Param(s.Admin.Parent().IDParameter())
}

// ID is the identifier the request addresses for single-object actions.
func (s *Scope) ID() string {
	return s.Request.Param(s.Admin.IDParameter())
}

// URL generates a route of the admin carrying the current filters for list routes.
func (s *Scope) URL(route string) string {
	var params url.Values
	if route == RouteList {
		params = s.Admin.FilterParameters(s)
	}
	return s.Admin.GenerateURL(s, route, params)
}

// ObjectURL generates a route of the admin for object.
func (s *Scope) ObjectURL(route string, object any) string {
	params := url.Values{}
	params.Set(s.Admin.IDParameter(), s.Admin.NormalizedIdentifier(object))
	return s.Admin.GenerateURL(s, route, params)
}
