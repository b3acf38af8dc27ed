package admin

import (
	"fmt"

	"github.com/ZJUSCT/backoffice/internal/crud"
)

// Pool is the registry of admins keyed by code. Register everything at startup;
// lookups afterwards are read-only.
type Pool struct {
	admins map[string]crud.Admin
	order  []string
}

func NewPool() *Pool {
	return &Pool{admins: make(map[string]crud.Admin)}
}

// Register adds a to the pool. Codes must be unique.
func (p *Pool) Register(a crud.Admin) error {
	if _, ok := p.admins[a.Code()]; ok {
		return fmt.Errorf("admin code %q registered twice", a.Code())
	}
	p.admins[a.Code()] = a
	p.order = append(p.order, a.Code())
	return nil
}

func (p *Pool) Resolve(code string) (crud.Admin, bool) {
	a, ok := p.admins[code]
	return a, ok
}

// Admins returns the registered admins in registration order.
func (p *Pool) Admins() []crud.Admin {
	out := make([]crud.Admin, 0, len(p.order))
	for _, code := range p.order {
		out = append(out, p.admins[code])
	}
	return out
}
