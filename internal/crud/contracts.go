package crud

import (
	"context"
	"net/url"
)

// Permission is a grant checked by Admin.IsGranted before an action runs.
type Permission string

const (
	PermissionList   Permission = "LIST"
	PermissionShow   Permission = "SHOW"
	PermissionCreate Permission = "CREATE"
	PermissionEdit   Permission = "EDIT"
	PermissionDelete Permission = "DELETE"
)

// Template names understood by Admin.Template.
const (
	TemplateList = "list"
	TemplateEdit = "edit"
	TemplateShow = "show"
)

// Route names understood by Admin.GenerateURL.
const (
	RouteList   = "list"
	RouteCreate = "create"
	RouteEdit   = "edit"
	RouteShow   = "show"
	RouteDelete = "delete"
	RouteBatch  = "batch"
)

// Pool resolves admins by code. It is built once and only read afterwards.
type Pool interface {
	Resolve(code string) (Admin, bool)
}

// Admin is everything the dispatcher needs to know about one model class.
type Admin interface {
	Code() string
	Class() string
	Label() string

	IsGranted(ctx context.Context, perm Permission) bool

	// Object returns (nil, nil) when no object has the identifier.
	Object(ctx context.Context, s *Scope, id string) (any, error)
	NewInstance(s *Scope) any
	Form(s *Scope, object any) Form

	Create(ctx context.Context, object any) error
	Update(ctx context.Context, object any) error
	Delete(ctx context.Context, object any) error

	NormalizedIdentifier(object any) string
	IDParameter() string
	GenerateURL(s *Scope, route string, params url.Values) string
	Template(name string) string
	ShowElements(s *Scope, object any) []Element

	BatchActions() map[string]BatchActionDescriptor
	Datagrid(ctx context.Context, s *Scope) (Datagrid, error)
	FilterParameters(s *Scope) url.Values
	ModelManager() ModelManager

	IsChild() bool
	Parent() Admin
}

// Element is one rendered field of a show view.
type Element struct {
	Name  string
	Label string
	Value any
}

// BatchActionDescriptor describes an entry of an admin's batch-action registry.
type BatchActionDescriptor struct {
	Label           string
	AskConfirmation bool
}

// Datagrid produces the filtered, paginated query over an admin's collection.
type Datagrid interface {
	BuildPager(ctx context.Context) error
	Query() Query
	Results(ctx context.Context) ([]any, error)
}

// Query is the datagrid's query. A nil bound clears it.
type Query interface {
	SetFirstResult(n *int)
	SetMaxResults(n *int)
}

// ModelManager performs bulk persistence over a Query.
type ModelManager interface {
	AddIdentifiersToQuery(class string, q Query, ids []string) error
	BatchDelete(ctx context.Context, class string, q Query) error
	BatchUpdate(ctx context.Context, class string, q Query, values map[string]any) error
}

// Form is bound to one object. Submit writes request values into it.
type Form interface {
	SetData(object any)
	Submit(values url.Values)
	IsSubmitted() bool
	IsValid() bool
	CreateView() any
}

// FlashSink stores one-shot notifications for the next rendered page.
type FlashSink interface {
	SetFlash(category, key string)
}

// Flash categories.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash message keys.
const (
	FlashCreateSuccess      = "flash_create_success"
	FlashCreateError        = "flash_create_error"
	FlashEditSuccess        = "flash_edit_success"
	FlashEditError          = "flash_edit_error"
	FlashDeleteSuccess      = "flash_delete_success"
	FlashBatchEmpty         = "flash_batch_empty"
	FlashBatchDeleteSuccess = "flash_batch_delete_success"
	FlashBatchSuccess       = "flash_batch_success"
)
