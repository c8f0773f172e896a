package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/tenant"
)

// How each table reaches its owning empresa.
var (
	empresaLink  tenant.EmpresaLink = tenant.DirectEmpresa{Column: "id"}
	claimLink    tenant.EmpresaLink = tenant.DirectEmpresa{Column: "cliente_id"}
	entryLink    tenant.EmpresaLink = tenant.EmpresaVinculada{Column: "adesao_id", Parent: "adesoes", EmpresaColumn: "cliente_id"}
	documentLink tenant.EmpresaLink = tenant.DirectEmpresa{Column: "empresa_id"}
	jobLink      tenant.EmpresaLink = tenant.EmpresaVinculada{Column: "document_id", Parent: "documents", EmpresaColumn: "empresa_id"}
)

// notFound maps sql.ErrNoRows onto common.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return err
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return nil
}
