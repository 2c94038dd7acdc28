package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/invenzis/brain/internal/log"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, _ float32) (string, error) {
	return f.response, f.err
}

func TestClassifyPatterns(t *testing.T) {
	t.Parallel()

	c := New(nil, log.NewNop())

	tests := []struct {
		question   string
		wantIntent Intent
		wantEntity string
	}{
		{"¿Quién es Constanza?", IntentConsultant, "constanza"},
		{"quien es martin", IntentConsultant, "martin"},
		{"¿Quién sabe de SAP FI?", IntentConsultant, "sap fi?"},
		{"expertos en S/4HANA", IntentConsultant, "s/4hana"},
		{"proyectos de Martín", IntentProject, "martín"},
		{"¿Quiénes trabajan en el proyecto Andes?", IntentProject, "andes?"},
		{"clientes de retail", IntentClient, "retail"},
		{"empresas del rubro agricultura", IntentClient, "agricultura"},
		{"lecciones aprendidas de la migración", IntentKnowledge, "de la migración"},
		{"problemas con S/4HANA", IntentKnowledge, "s/4hana"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			t.Parallel()

			got := c.Classify(tt.question)
			if got.Intent != tt.wantIntent {
				t.Errorf("intent = %q, want %q", got.Intent, tt.wantIntent)
			}
			if got.Confidence != 0.9 {
				t.Errorf("confidence = %v, want 0.9", got.Confidence)
			}
			if got.Entities["value"] != tt.wantEntity {
				t.Errorf("entity = %q, want %q", got.Entities["value"], tt.wantEntity)
			}
		})
	}
}

func TestClassifyNameHeuristic(t *testing.T) {
	t.Parallel()

	c := New(nil, log.NewNop())

	tests := []struct {
		question string
		isName   bool
	}{
		{"Constanza Boix", true},
		{"Martin", true},
		{"cboix@invenzis.com", true},
		{"la oficina", false},
		{"qué pasó ayer", false},
		{"esta es una pregunta mucho más larga sobre cosas", false},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			t.Parallel()

			got := c.Classify(tt.question)
			if tt.isName {
				if got.Intent != IntentConsultant || got.Confidence != 0.7 {
					t.Errorf("got %q at %v, want consultant_search at 0.7", got.Intent, got.Confidence)
				}
				if got.Entities["name"] != tt.question {
					t.Errorf("name entity = %q, want %q", got.Entities["name"], tt.question)
				}
			} else if got.Intent == IntentConsultant && got.Confidence == 0.7 {
				t.Errorf("%q misclassified as a name", tt.question)
			}
		})
	}
}

func TestClassifyDefaultsToHybrid(t *testing.T) {
	t.Parallel()

	c := New(nil, log.NewNop())

	got := c.Classify("dame un resumen general de todo lo que pasó este año")
	if got.Intent != IntentHybrid {
		t.Errorf("intent = %q, want hybrid", got.Intent)
	}
	if got.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", got.Confidence)
	}
	if got.Entities["raw_question"] == "" {
		t.Error("raw_question entity missing")
	}
}

func TestClassifyWithLLM(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		llm      Completer
		want     Intent
		wantConf float64
		wantErr  bool
	}{
		{
			name:     "clean label",
			llm:      &fakeCompleter{response: "CLIENT_SEARCH"},
			want:     IntentClient,
			wantConf: 0.8,
		},
		{
			name:     "label with whitespace and case noise",
			llm:      &fakeCompleter{response: "  knowledge_search\n"},
			want:     IntentKnowledge,
			wantConf: 0.8,
		},
		{
			name: "unrecognized label",
			llm:  &fakeCompleter{response: "SOMETHING_ELSE"},
			want: IntentUnknown,
		},
		{
			name:    "call failure",
			llm:     &fakeCompleter{err: errors.New("boom")},
			want:    IntentUnknown,
			wantErr: true,
		},
		{
			name: "no llm configured",
			llm:  nil,
			want: IntentUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New(tt.llm, log.NewNop())
			got, err := c.ClassifyWithLLM(context.Background(), "pregunta compleja")

			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Intent != tt.want {
				t.Errorf("intent = %q, want %q", got.Intent, tt.want)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}
