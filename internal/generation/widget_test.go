package generation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripForbiddenImports(t *testing.T) {
	tests := []struct {
		name          string
		code          string
		wantRewritten bool
		wantContains  string
		wantAbsent    string
	}{
		{
			name:          "lucide-react import commented out",
			code:          `import { MapPin, Activity } from 'lucide-react';` + "\nconst x = 1;",
			wantRewritten: true,
			wantContains:  "// REMOVED: import from 'lucide-react'",
			wantAbsent:    "import { MapPin",
		},
		{
			name:          "framer-motion with double quotes",
			code:          `import { motion } from "framer-motion"` + "\n",
			wantRewritten: true,
			wantContains:  "// REMOVED: import from 'framer-motion'",
		},
		{
			name:          "scoped heroicons package",
			code:          `import { BellIcon } from '@heroicons/react/24/solid';`,
			wantRewritten: false, // subpath does not match the bare package specifier
		},
		{
			name:          "allowed imports untouched",
			code:          "import React from 'react';\nimport { AreaChart } from 'recharts';\n",
			wantRewritten: false,
		},
		{
			name: "multiple forbidden imports",
			code: `import { MapPin } from 'lucide-react';` + "\n" +
				`import { FaGuitar } from 'react-icons';` + "\n",
			wantRewritten: true,
			wantContains:  "// REMOVED: import from 'react-icons'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rewritten := StripForbiddenImports(tt.code)
			assert.Equal(t, tt.wantRewritten, rewritten)
			if tt.wantContains != "" {
				assert.Contains(t, got, tt.wantContains)
			}
			if tt.wantAbsent != "" {
				assert.NotContains(t, got, tt.wantAbsent)
			}
			if !tt.wantRewritten {
				assert.Equal(t, tt.code, got, "clean code passes through unchanged")
			}
		})
	}
}

func TestWidgetGenerate(t *testing.T) {
	jsx := "```jsx\n" +
		"import React from 'react';\n" +
		"import { MapPin } from 'lucide-react';\n" +
		"const TunerView = () => <div>tuner</div>;\n" +
		"export default TunerView;\n" +
		"```"
	client := &fakeClient{responses: []string{jsx}}

	gen := &WidgetGenerator{Client: client, OutputDir: t.TempDir()}
	result, err := gen.Generate(context.Background(), WidgetRequest{
		DeviceType:  "guitar helper",
		Description: "shows the current pitch",
		DataFields:  []string{"frequency", "cents_off"},
	})
	require.NoError(t, err)

	assert.Equal(t, "tuner", result.SmartName)
	assert.Equal(t, "TunerView", result.ComponentName)
	assert.True(t, result.ImportsRewritten)
	assert.Equal(t, filepath.Join(gen.OutputDir, "tuner_view.jsx"), result.Path)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "```")
	assert.NotContains(t, string(data), "from 'lucide-react'")
	assert.Contains(t, string(data), "// REMOVED: import from 'lucide-react'")
	assert.Contains(t, string(data), "export default TunerView;")

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "TunerView")
	assert.Contains(t, client.prompts[0], "frequency, cents_off")
	assert.Contains(t, client.prompts[0], "shows the current pitch")
	assert.Contains(t, client.prompts[0], "No custom config found.")
}

func TestWidgetGenerateTailwindConfigEmbedded(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "tailwind.config.js")
	require.NoError(t, os.WriteFile(configPath, []byte("module.exports = { helmet: true }"), 0o644))

	client := &fakeClient{responses: []string{"const TunerView = () => null; export default TunerView;"}}
	gen := &WidgetGenerator{Client: client, OutputDir: t.TempDir(), TailwindConfigPath: configPath}

	_, err := gen.Generate(context.Background(), WidgetRequest{DeviceType: "guitar"})
	require.NoError(t, err)
	assert.Contains(t, client.prompts[0], "helmet: true")
}

func TestWidgetGenerateProviderError(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("boom")}}
	gen := &WidgetGenerator{Client: client, OutputDir: t.TempDir()}

	_, err := gen.Generate(context.Background(), WidgetRequest{DeviceType: "guitar"})
	var apiErr *APICallError
	require.ErrorAs(t, err, &apiErr)
}
