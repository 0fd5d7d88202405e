package generation

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/apex/log"

	"github.com/uadlabs/forge/internal/llm"
	"github.com/uadlabs/forge/internal/naming"
	"github.com/uadlabs/forge/internal/prompts"
)

// forbiddenWidgetImports are npm packages not present in the dashboard
// runtime. Any generated import of one would blank the widget at render time.
var forbiddenWidgetImports = []string{
	"lucide-react",
	"framer-motion",
	"react-icons",
	"@heroicons/react",
	"phosphor-react",
	"react-feather",
}

// WidgetGenerator produces dashboard React widgets under OutputDir.
type WidgetGenerator struct {
	Client    llm.Client
	OutputDir string
	// TailwindConfigPath is embedded into the prompt when present so the model
	// sticks to the project palette. Optional.
	TailwindConfigPath string
}

// WidgetRequest carries the widget description into generation.
type WidgetRequest struct {
	DeviceType  string   `json:"device_type" validate:"required"`
	Description string   `json:"description"`
	DataFields  []string `json:"data_fields"`
}

// WidgetResult describes a generated widget artifact.
type WidgetResult struct {
	SmartName        string
	ComponentName    string
	Path             string
	ImportsRewritten bool
}

// Generate runs the widget path: prompt, generate, normalize, strip forbidden
// imports, write `<smartName>_view.jsx`. Unlike firmware there is no fallback
// skeleton; a widget is decorative and the caller surfaces the error.
func (g *WidgetGenerator) Generate(ctx context.Context, req WidgetRequest) (*WidgetResult, error) {
	smartName := naming.SmartName(req.DeviceType)
	componentName := naming.Capitalize(smartName) + "View"

	prompt := prompts.Format(prompts.MustGet("widget.json", "generate-widget"), map[string]string{
		"DeviceType":     req.DeviceType,
		"Description":    descriptionOrDefault(req.Description),
		"ComponentName":  componentName,
		"DataFields":     strings.Join(req.DataFields, ", "),
		"TailwindConfig": g.tailwindConfig(),
	})

	text, err := g.Client.GenerateContent(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, &APICallError{Message: "widget generation failed", Cause: err}
	}

	code := llm.CleanCodeBlock(text, "jsx", "javascript", "js")
	code, rewritten := StripForbiddenImports(code)

	path := filepath.Join(g.OutputDir, smartName+"_view.jsx")
	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return nil, &WriteError{Path: g.OutputDir, Cause: err}
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return nil, &WriteError{Path: path, Cause: err}
	}

	log.WithFields(log.Fields{
		"smart_name": smartName,
		"rewritten":  rewritten,
	}).Info("widget written")

	return &WidgetResult{
		SmartName:        smartName,
		ComponentName:    componentName,
		Path:             path,
		ImportsRewritten: rewritten,
	}, nil
}

// StripForbiddenImports comments out imports of packages the dashboard does
// not bundle. Returns the rewritten code and whether any import was hit.
func StripForbiddenImports(code string) (string, bool) {
	rewritten := false
	for _, lib := range forbiddenWidgetImports {
		pattern := regexp.MustCompile(`import\s+.*?from\s+['"]` + regexp.QuoteMeta(lib) + `['"];?`)
		if !pattern.MatchString(code) {
			continue
		}
		log.WithField("package", lib).Warn("stripped forbidden widget import")
		code = pattern.ReplaceAllString(code, "// REMOVED: import from '"+lib+"' (not available at runtime)")
		rewritten = true
	}
	return code, rewritten
}

func descriptionOrDefault(description string) string {
	if description == "" {
		return "Standard Dashboard"
	}
	return description
}

func (g *WidgetGenerator) tailwindConfig() string {
	if g.TailwindConfigPath == "" {
		return "No custom config found."
	}
	data, err := os.ReadFile(g.TailwindConfigPath)
	if err != nil {
		log.WithError(err).Warn("could not read tailwind config")
		return "No custom config found."
	}
	return string(data)
}
