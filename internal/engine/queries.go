package engine

import (
	"context"
	"fmt"

	"github.com/invenzis/brain/internal/security"
)

// Prebuilt lookups for the highest-traffic question shapes. These skip
// generation entirely: parameterized statements, no model round trip,
// no retry loop. Forbidden columns are simply never selected, and
// FilterRows still runs as the second line of defense.
//
// The question pipeline itself always goes through Execute; these are
// the stable query API for hosting-layer callers that already know
// what they are looking for.

// ConsultantsByName finds active consultants whose full name or email
// contains name.
func (e *SQL) ConsultantsByName(ctx context.Context, name string) ([]security.Row, error) {
	rows, err := e.collectRows(ctx, `
		SELECT consultorid, nombrecompleto, email, rolprincipal, ubicacion
		FROM consultores
		WHERE activo = true
		  AND (nombrecompleto ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		ORDER BY nombrecompleto`, name)
	if err != nil {
		return nil, fmt.Errorf("consultants by name: %w", err)
	}
	return security.FilterRows(rows, e.forbidden), nil
}

// ProjectsForConsultant lists the active project assignments of a
// consultant.
func (e *SQL) ProjectsForConsultant(ctx context.Context, name string) ([]security.Row, error) {
	rows, err := e.collectRows(ctx, `
		SELECT p.nombreproyecto, p.estado, pe.rolenproyecto, c.nombrecliente
		FROM consultores co
		JOIN proyectoequipo pe ON co.consultorid = pe.consultorid
		JOIN proyectos p ON pe.proyectoid = p.proyectoid
		LEFT JOIN clientes c ON p.clienteid = c.clienteid
		WHERE co.nombrecompleto ILIKE '%' || $1 || '%' AND pe.activo = true
		ORDER BY p.nombreproyecto`, name)
	if err != nil {
		return nil, fmt.Errorf("projects for consultant: %w", err)
	}
	return security.FilterRows(rows, e.forbidden), nil
}

// ClientsByIndustry lists active clients in an industry.
func (e *SQL) ClientsByIndustry(ctx context.Context, industry string) ([]security.Row, error) {
	rows, err := e.collectRows(ctx, `
		SELECT clienteid, nombrecliente, industria, pais
		FROM clientes
		WHERE activo = true AND industria ILIKE '%' || $1 || '%'
		ORDER BY nombrecliente`, industry)
	if err != nil {
		return nil, fmt.Errorf("clients by industry: %w", err)
	}
	return security.FilterRows(rows, e.forbidden), nil
}

// ExpertsIn finds active consultants whose expertise mentions topic.
func (e *SQL) ExpertsIn(ctx context.Context, topic string) ([]security.Row, error) {
	rows, err := e.collectRows(ctx, `
		SELECT consultorid, nombrecompleto, email, rolprincipal, expertise
		FROM consultores
		WHERE activo = true AND expertise::text ILIKE '%' || $1 || '%'
		ORDER BY nombrecompleto`, topic)
	if err != nil {
		return nil, fmt.Errorf("experts in topic: %w", err)
	}
	return security.FilterRows(rows, e.forbidden), nil
}
