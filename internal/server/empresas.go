package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/danieceiflora/perdcomp01-sub000/internal/common"
	"github.com/danieceiflora/perdcomp01-sub000/internal/entity"
	"github.com/danieceiflora/perdcomp01-sub000/internal/parser"
	"github.com/danieceiflora/perdcomp01-sub000/internal/tenant"
)

type createEmpresaRequest struct {
	CNPJ         string `json:"cnpj"`
	RazaoSocial  string `json:"razao_social"`
	NomeFantasia string `json:"nome_fantasia,omitempty"`
}

func (s *Server) handleListEmpresas(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Empresas.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if out == nil {
		out = []entity.Empresa{}
	}
	_ = writeJSON(w, http.StatusOK, out)
}

// handleCreateEmpresa registers a company. Only unrestricted callers may.
func (s *Server) handleCreateEmpresa(w http.ResponseWriter, r *http.Request) {
	if !tenant.FromContext(r.Context()).All() {
		writeJSONError(w, http.StatusForbidden, "restricted callers cannot create empresas")
		return
	}
	var req createEmpresaRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.RazaoSocial = strings.TrimSpace(req.RazaoSocial)
	v := common.NewValidator().
		Field("razao_social", req.RazaoSocial, common.Required, common.MaxLength(255))
	if err := parser.ValidateCNPJ(req.CNPJ); err != nil {
		v.Add("cnpj", req.CNPJ, common.FieldMessage(err))
	}
	if err := v.Error(); err != nil {
		s.writeError(w, r, err)
		return
	}

	cnpj := parser.CleanCNPJ(req.CNPJ)
	if _, err := s.deps.Empresas.GetByCNPJ(r.Context(), cnpj); err == nil {
		s.writeError(w, r, common.WrapError(common.ErrConflict, "cnpj "+cnpj+" already registered"))
		return
	} else if !errors.Is(err, common.ErrNotFound) {
		s.writeError(w, r, err)
		return
	}

	e := &entity.Empresa{CNPJ: cnpj, RazaoSocial: req.RazaoSocial, NomeFantasia: strings.TrimSpace(req.NomeFantasia)}
	if err := s.deps.Empresas.Create(r.Context(), e); err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, e)
}
