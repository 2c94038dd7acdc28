// Package cmd defines the brain CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "brain",
	Short: "Asistente de conocimiento de Invenzis",
	Long: `brain responde preguntas en lenguaje natural sobre consultores,
proyectos, clientes y lecciones aprendidas, combinando consultas SQL
generadas y búsqueda vectorial sobre la base de conocimiento.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
