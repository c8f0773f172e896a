package entity

import (
	"time"

	"github.com/google/uuid"
)

// Empresa is a tenant company; claims and documents belong to one.
type Empresa struct {
	ID           uuid.UUID `json:"id" db:"id"`
	CNPJ         string    `json:"cnpj" db:"cnpj"`
	RazaoSocial  string    `json:"razao_social" db:"razao_social"`
	NomeFantasia string    `json:"nome_fantasia,omitempty" db:"nome_fantasia"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
