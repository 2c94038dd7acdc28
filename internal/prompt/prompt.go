// Package prompt holds the prompt templates for the query pipeline.
//
// The generation prompts are deliberately strict: the SQL prompts demand
// SQL-only output with no narration, and the synthesis prompt forbids
// technical detail. The extractor and the post-synthesis safety scan
// exist because models do not always comply.
package prompt

import "fmt"

// Schema is the database schema description injected into SQL prompts.
const Schema = `
-- CONSULTORES: Empleados de la consultora
consultores (
    consultorid INTEGER PRIMARY KEY,
    nombrecompleto VARCHAR NOT NULL,    -- "Juan Pérez García"
    email VARCHAR UNIQUE NOT NULL,      -- "jperez@invenzis.com"
    rolprincipal VARCHAR,               -- "Consultor SAP FI", "Project Manager"
    nivelsenioridad VARCHAR,            -- 'Junior', 'Semi-Senior', 'Senior', 'Lead', 'Architect'
    expertise JSONB,                    -- ["SAP FI", "SAP CO", "S/4HANA"] - BUSCAR CON: expertise::text ILIKE '%valor%'
    certificaciones JSONB,
    aniosexperiencia NUMERIC,
    disponibilidad VARCHAR,             -- 'Disponible', 'Asignado Parcial', 'Asignado Completo'
    activo BOOLEAN,
    ubicacion VARCHAR                   -- País/Ciudad del consultor
)

-- CLIENTES: Empresas cliente
clientes (
    clienteid INTEGER PRIMARY KEY,
    nombrecliente VARCHAR NOT NULL,
    industria VARCHAR NOT NULL,         -- "Retail", "Agricultura", "Finanzas", "Librería"
    ubicacion VARCHAR,
    pais VARCHAR,
    activo BOOLEAN
)

-- PROYECTOS: Proyectos de implementación/consultoría
proyectos (
    proyectoid INTEGER PRIMARY KEY,
    codigoproyecto VARCHAR UNIQUE,      -- "PRY-2024-001"
    clienteid INTEGER REFERENCES clientes(clienteid),
    nombreproyecto VARCHAR NOT NULL,
    tiposervicio VARCHAR,               -- 'Implementación', 'Upgrade', 'Soporte', 'Migración'
    estado VARCHAR,                     -- 'Planificación', 'En Ejecución', 'Completado', 'Cancelado'
    prioridad VARCHAR,
    problemaejecutivo TEXT,
    solucionpropuesta TEXT,
    fechainicio DATE,
    fechafinestimada DATE
)

-- PROYECTOEQUIPO: Asignaciones de consultores a proyectos (TABLA CLAVE PARA JOINs)
proyectoequipo (
    proyectoequipoid INTEGER PRIMARY KEY,
    proyectoid INTEGER REFERENCES proyectos(proyectoid),
    consultorid INTEGER REFERENCES consultores(consultorid),
    rolenproyecto VARCHAR NOT NULL,     -- "Líder Técnico", "Consultor Funcional"
    tipoasignacion VARCHAR,             -- 'Full-Time', 'Part-Time', 'Por Demanda'
    fechaasignacion DATE,
    fechadesasignacion DATE,            -- NULL si sigue activo en el proyecto
    activo BOOLEAN
)

-- TAREAS: Tareas/tickets de trabajo
tareas (
    tareaid INTEGER PRIMARY KEY,
    tareadescripcion TEXT,
    proyectoid INTEGER REFERENCES proyectos(proyectoid),
    usuarioasignadopersonid INTEGER REFERENCES consultores(consultorid),
    reportadortareapersonaid INTEGER REFERENCES consultores(consultorid),
    tareaprioridad VARCHAR,
    tareaestatus VARCHAR
)

-- OFICINAS: Oficinas regionales
oficinas (
    oficinaid VARCHAR PRIMARY KEY,      -- "UY", "AR", "MX"
    oficinadescripcion VARCHAR
)

RELACIONES CLAVE:
- consultores ←→ proyectoequipo ←→ proyectos ←→ clientes
- Para saber en qué proyectos trabaja alguien: JOIN proyectoequipo
- Para saber quién trabaja en un proyecto: JOIN consultores via proyectoequipo
`

// sqlGeneration must produce ONLY SQL; any narration around it is
// handled downstream by the extractor.
const sqlGeneration = `Genera ÚNICAMENTE código SQL válido para PostgreSQL.

REGLAS ABSOLUTAS:
1. Responde SOLO con el código SQL
2. NO incluyas explicaciones, comentarios ni texto adicional
3. NO uses markdown ni bloques de código
4. La respuesta debe empezar DIRECTAMENTE con SELECT o WITH
5. Usa ILIKE para búsquedas de texto (case-insensitive)
6. Para campos JSONB como expertise, usa: expertise::text ILIKE '%%valor%%'

ESQUEMA DE BASE DE DATOS:
%s

EJEMPLOS DE QUERIES CORRECTAS:

-- Buscar consultor por nombre (SIEMPRE incluir estos campos)
SELECT consultorid, nombrecompleto, email, rolprincipal, ubicacion
FROM consultores
WHERE LOWER(nombrecompleto) ILIKE '%%constanza%%' AND activo = true;

-- Proyectos de un consultor (JOIN con proyectoequipo)
SELECT p.nombreproyecto, pe.rolenproyecto, c.nombrecliente, p.estado
FROM consultores co
JOIN proyectoequipo pe ON co.consultorid = pe.consultorid
JOIN proyectos p ON pe.proyectoid = p.proyectoid
LEFT JOIN clientes c ON p.clienteid = c.clienteid
WHERE LOWER(co.nombrecompleto) ILIKE '%%martin%%' AND pe.activo = true;

-- Equipo de un proyecto
SELECT co.nombrecompleto, co.email, pe.rolenproyecto
FROM proyectos p
JOIN proyectoequipo pe ON p.proyectoid = pe.proyectoid
JOIN consultores co ON pe.consultorid = co.consultorid
WHERE LOWER(p.nombreproyecto) ILIKE '%%proyecto%%' AND pe.activo = true;

-- Clientes por industria
SELECT clienteid, nombrecliente, industria, pais
FROM clientes
WHERE LOWER(industria) ILIKE '%%libreria%%' AND activo = true;

-- Consultores expertos en una tecnología (campo JSONB)
SELECT consultorid, nombrecompleto, email, rolprincipal, expertise
FROM consultores
WHERE expertise::text ILIKE '%%sap fi%%' AND activo = true;

-- Búsqueda con variaciones de nombre (para typos)
SELECT consultorid, nombrecompleto, email, rolprincipal, ubicacion
FROM consultores
WHERE (LOWER(nombrecompleto) ILIKE '%%morales%%' OR LOWER(nombrecompleto) ILIKE '%%moales%%')
AND activo = true;

PREGUNTA DEL USUARIO: %s
`

const sqlRetry = `La consulta SQL anterior falló. Genera una nueva consulta corregida.

ERROR ANTERIOR: %s

SQL ANTERIOR QUE FALLÓ:
%s

ESQUEMA DE BASE DE DATOS:
%s

REGLAS:
1. Responde SOLO con SQL corregido
2. NO incluyas explicaciones
3. Corrige el error específico mencionado
4. Si una columna no existe, omítela
5. Si una tabla no existe, usa una alternativa del schema

PREGUNTA ORIGINAL: %s
`

const synthesis = `Eres el asistente de conocimiento de Invenzis, una consultora SAP.

DATOS ENCONTRADOS:
%s

REGLAS DE RESPUESTA:
1. Responde en español, de forma concisa y profesional
2. Si hay datos, preséntalos de forma clara y estructurada
3. Usa **negritas** para resaltar nombres importantes
4. Si NO hay datos, di honestamente: "No encontré información sobre [tema] en los registros."
5. NUNCA inventes datos que no estén en los resultados
6. Para consultores, siempre menciona: nombre, email, rol y ubicación
7. No menciones detalles técnicos sobre cómo buscaste la información
8. Si hay múltiples resultados, preséntalos como lista con viñetas

PREGUNTA DEL USUARIO: %s

RESPUESTA:`

// condense prefixes a follow-up question with the prior turns so the
// model can resolve pronouns and references.
const condense = `CONVERSACIÓN PREVIA:
%s

PREGUNTA ACTUAL: %s`

const classification = `Clasifica la siguiente pregunta en una de estas categorías:

CATEGORÍAS:
- CONSULTANT_SEARCH: Preguntas sobre personas/consultores (quién es, quién sabe de, experto en)
- PROJECT_SEARCH: Preguntas sobre proyectos o asignaciones (en qué trabaja, proyectos de)
- CLIENT_SEARCH: Preguntas sobre clientes o empresas (clientes de, industria)
- KNOWLEDGE_SEARCH: Preguntas sobre lecciones aprendidas, problemas/soluciones pasadas
- HYBRID: Requiere combinar información de múltiples fuentes

Responde SOLO con la categoría, nada más.

PREGUNTA: %s
CATEGORÍA:`

// NoValidSQL is the placeholder passed as the failed query into a retry
// prompt when the previous attempt produced no extractable SQL.
const NoValidSQL = "No se generó SQL válido"

// NoResultsGeneric is the uniform user-facing message for unrecoverable
// failures. It invites reformulation and carries no technical detail.
const NoResultsGeneric = "No encontré información sobre eso en los registros. ¿Podrías reformular tu pregunta o darme más detalles?"

// SQLGeneration renders the first-attempt SQL generation prompt.
func SQLGeneration(question string) string {
	return fmt.Sprintf(sqlGeneration, Schema, question)
}

// SQLRetry renders the retry prompt with the previous attempt's context.
func SQLRetry(question, failedSQL, errMsg string) string {
	if failedSQL == "" {
		failedSQL = NoValidSQL
	}
	return fmt.Sprintf(sqlRetry, errMsg, failedSQL, Schema, question)
}

// Synthesis renders the answer synthesis prompt.
func Synthesis(question, formattedResults string) string {
	return fmt.Sprintf(synthesis, formattedResults, question)
}

// Classification renders the LLM classification prompt.
func Classification(question string) string {
	return fmt.Sprintf(classification, question)
}

// Condense combines the rendered conversation history with a follow-up
// question. An empty history returns the question untouched.
func Condense(history, question string) string {
	if history == "" {
		return question
	}
	return fmt.Sprintf(condense, history, question)
}
