// Package observability provides formatted output utilities for verbose CLI
// mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/uadlabs/forge/internal/generation"
	"github.com/uadlabs/forge/internal/jobs"
	"github.com/uadlabs/forge/internal/tuner"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 8
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintJob outputs the state of a generation job.
func (p *Printer) PrintJob(job *jobs.Job) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:        %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("Device:     %s\n", job.DeviceType))
	if job.SmartName != "" {
		sb.WriteString(fmt.Sprintf("Smart name: %s\n", job.SmartName))
	}
	if job.Path != "" {
		sb.WriteString(fmt.Sprintf("Artifact:   %s\n", job.Path))
	}
	if job.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:      %s\n", job.Error))
	}

	p.printBox("GENERATION JOB", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintParameters outputs a table of tunable parameters found in a module.
func (p *Printer) PrintParameters(params []tuner.Parameter) {
	if len(params) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(params), maxItemsToShow)
	for i := 0; i < count; i++ {
		param := params[i]
		sb.WriteString(fmt.Sprintf("%-10s %-24s = %s\n", param.Type, param.Name, param.Value))
	}
	if len(params) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(params)-maxItemsToShow))
	}

	p.printBox(fmt.Sprintf("TUNABLE PARAMETERS (%d)", len(params)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintVerdict outputs a feasibility verdict.
func (p *Printer) PrintVerdict(verdict *generation.FeasibilityVerdict) {
	if verdict == nil {
		return
	}

	var sb strings.Builder
	possible := "NO"
	if verdict.Possible {
		possible = "YES"
	}
	sb.WriteString(fmt.Sprintf("Possible:   %s\n", possible))
	sb.WriteString(fmt.Sprintf("Difficulty: %s\n", verdict.Difficulty))
	sb.WriteString(fmt.Sprintf("Reasoning:  %s\n", verdict.Reasoning))

	if len(verdict.MissingHardware) > 0 {
		sb.WriteString("\nMissing hardware:\n")
		for _, item := range verdict.MissingHardware {
			sb.WriteString(fmt.Sprintf("  • %s\n", item))
		}
	}
	if len(verdict.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, item := range verdict.Warnings {
			sb.WriteString(fmt.Sprintf("  • %s\n", item))
		}
	}

	p.printBox("FEASIBILITY VERDICT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintUseCases outputs suggested user stories.
func (p *Printer) PrintUseCases(cases []generation.UseCase) {
	if len(cases) == 0 {
		return
	}

	var sb strings.Builder
	for i, uc := range cases {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", uc.Icon, uc.Title))
		sb.WriteString(fmt.Sprintf("  %s\n", uc.Description))
	}

	p.printBox("SUGGESTED USE CASES", strings.TrimSuffix(sb.String(), "\n"))
}
