// Package cmd is the servo CLI (spec §6 "CLI surface"): serve starts the
// core, every other subcommand is a thin HTTP client talking to a running
// core over the surface in §4.J.
package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	httpAddr string
	servoDir string
)

var rootCmd = &cobra.Command{
	Use:   "servo",
	Short: "Ground-control server for a rocket propulsion test and flight system",
}

var (
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func init() {
	rootCmd.PersistentFlags().StringVar(&httpAddr, "http-addr", "http://localhost:7200", "base URL of a running servo core")
	rootCmd.PersistentFlags().StringVar(&servoDir, "servo-dir", "", "override the resolved servo directory")
}

// Execute runs the CLI, returning a non-nil error on any unrecognized
// subcommand or subcommand failure.
func Execute() error {
	return rootCmd.Execute()
}
