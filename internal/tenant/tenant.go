// Package tenant scopes queries to the empresas a caller may see.
//
// Every stored entity type declares once how it reaches its owning empresa
// through an EmpresaLink; repositories turn that link and the caller's
// Access into a SQL predicate.
package tenant

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// EmpresaLink is how an entity type reaches its owning empresa.
// It is one of DirectEmpresa, EmpresaVinculada or NoEmpresaLink.
type EmpresaLink interface {
	predicate(placeholders string) string
}

// DirectEmpresa is an entity with its own empresa column.
type DirectEmpresa struct {
	Column string
}

// EmpresaVinculada is an entity owned through a parent row: Column holds the
// parent's id and the parent table's EmpresaColumn holds the empresa.
type EmpresaVinculada struct {
	Column        string
	Parent        string
	EmpresaColumn string
}

// NoEmpresaLink is an entity with no owner. Restricted callers never see it.
type NoEmpresaLink struct{}

func (l DirectEmpresa) predicate(ph string) string {
	return l.Column + " IN (" + ph + ")"
}

func (l EmpresaVinculada) predicate(ph string) string {
	return l.Column + " IN (SELECT id FROM " + l.Parent + " WHERE " + l.EmpresaColumn + " IN (" + ph + "))"
}

func (NoEmpresaLink) predicate(string) string { return "1 = 0" }

// Access is the set of empresas a caller may see.
type Access struct {
	all        bool
	empresaIDs []uuid.UUID
}

// Unrestricted grants access to every empresa.
func Unrestricted() Access { return Access{all: true} }

// Restricted grants access to the listed empresas only; no ids means no access.
func Restricted(ids ...uuid.UUID) Access {
	return Access{empresaIDs: append([]uuid.UUID(nil), ids...)}
}

// All reports whether a is unrestricted.
func (a Access) All() bool { return a.all }

// EmpresaIDs returns the granted empresas of a restricted access.
func (a Access) EmpresaIDs() []uuid.UUID { return a.empresaIDs }

// Permits reports whether an entity owned by empresaID is visible.
func (a Access) Permits(empresaID *uuid.UUID) bool {
	if a.all {
		return true
	}
	if empresaID == nil {
		return false
	}
	for _, id := range a.empresaIDs {
		if id == *empresaID {
			return true
		}
	}
	return false
}

// Scope returns a WHERE predicate with '?' placeholders restricting an
// entity with the given link to what a may see.
func Scope(link EmpresaLink, a Access) (string, []any) {
	if a.all {
		return "1 = 1", nil
	}
	if len(a.empresaIDs) == 0 {
		return "1 = 0", nil
	}
	if _, ok := link.(NoEmpresaLink); ok {
		return link.predicate(""), nil
	}
	args := make([]any, len(a.empresaIDs))
	for i, id := range a.empresaIDs {
		args[i] = id
	}
	ph := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	return link.predicate(ph), args
}

type ctxKey struct{}

// WithAccess stores a in ctx.
func WithAccess(ctx context.Context, a Access) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the access stored in ctx. A context without one is
// unrestricted, as for the CLI and background jobs.
func FromContext(ctx context.Context) Access {
	if a, ok := ctx.Value(ctxKey{}).(Access); ok {
		return a
	}
	return Unrestricted()
}

// ParseIDs reads a comma-separated list of empresa ids.
func ParseIDs(s string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
