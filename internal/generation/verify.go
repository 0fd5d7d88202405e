package generation

import (
	"context"

	"github.com/apex/log"

	"github.com/uadlabs/forge/internal/llm"
	"github.com/uadlabs/forge/internal/prompts"
)

// VerifyTruncateBytes bounds how much generated code is embedded in the
// review prompt.
const VerifyTruncateBytes = 15000

// verifyAndFix runs the compilation-error checklist over generated C++ and
// returns the (possibly corrected) code. Verification is best-effort: any
// provider failure is logged and the original code returned unchanged, so a
// flaky review never loses an otherwise good generation. The second return
// reports whether the review actually ran.
func verifyAndFix(ctx context.Context, client llm.Client, code, className string) (string, bool) {
	reviewed := code
	if len(reviewed) > VerifyTruncateBytes {
		reviewed = reviewed[:VerifyTruncateBytes]
	}

	prompt := prompts.Format(prompts.MustGet("firmware.json", "verify-and-fix"), map[string]string{
		"Code":      reviewed,
		"ClassName": className,
	})

	fixed, err := client.GenerateContent(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		log.WithField("class", className).WithError(err).Warn("verification skipped, keeping original code")
		return code, false
	}

	return llm.CleanCodeBlock(fixed, "cpp", "c"), true
}
