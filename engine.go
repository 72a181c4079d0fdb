package billdocs

import (
	"context"
	"os"
	"os/exec"

	"github.com/go-rod/rod/lib/launcher"
)

// engine is one HTML-to-PDF backend in the fallback chain. Each engine
// applies its own pre-processing to the document before rendering.
type engine interface {
	Name() string
	Convert(ctx context.Context, doc Document) ([]byte, error)
	Close() error
}

// Engine names, used in diagnostics and tests.
const (
	engineRod      = "rod"
	engineChromedp = "chromedp"
	engineTable    = "table"
)

// Capabilities is the result of the one-time environment probe. It is
// computed at Service construction and injected into the engine chain as
// configuration; engines whose capability is absent are skipped without
// error. Call-time re-probing is deliberately avoided.
type Capabilities struct {
	// ChromePath is the resolved browser binary, empty when none exists.
	ChromePath string

	// Rod reports whether the go-rod engine can run. True when a browser
	// binary resolved, or when managed-browser download is permitted.
	Rod bool

	// Chromedp reports whether the chromedp engine can run. Requires a
	// resolved browser binary.
	Chromedp bool

	// TableFallback reports whether the native table renderer can run.
	// Always true: it links in with the library.
	TableFallback bool

	// Merge reports whether a PDF merge backend is linked in.
	Merge bool
}

// chromeEnvVars are honored before searching the system path, matching the
// containerized deployments the pipeline runs in.
var chromeEnvVars = []string{"ROD_BROWSER_BIN", "CHROME_BIN"}

// chromeBinaries are candidate browser executables on the system path.
var chromeBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
}

// ProbeCapabilities inspects the environment once and reports which
// conversion engines and merge backends are usable.
func ProbeCapabilities() Capabilities {
	path := findChromeBinary()
	return Capabilities{
		ChromePath:    path,
		Rod:           path != "" || managedBrowserAllowed(),
		Chromedp:      path != "",
		TableFallback: true,
		Merge:         true,
	}
}

// findChromeBinary resolves a browser executable from environment
// overrides, the system path, or rod's launcher search.
func findChromeBinary() string {
	for _, env := range chromeEnvVars {
		if bin := os.Getenv(env); bin != "" {
			return bin
		}
	}
	for _, name := range chromeBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	if path, has := launcher.LookPath(); has {
		return path
	}
	return ""
}

// managedBrowserAllowed reports whether rod may download a managed
// Chromium build when no system browser exists. Disabled by default in
// production; opt in via BILLDOCS_MANAGED_BROWSER=1.
func managedBrowserAllowed() bool {
	return os.Getenv("BILLDOCS_MANAGED_BROWSER") == "1"
}

// buildEngineChain assembles the ordered fallback chain from probed
// capabilities. The chain is data, not control flow: adding or removing an
// engine is a list change.
func buildEngineChain(caps Capabilities, cfg serviceConfig) []engine {
	var chain []engine
	if caps.Rod {
		chain = append(chain, newRodEngine(cfg.timeout, caps.ChromePath))
	}
	if caps.Chromedp {
		chain = append(chain, newChromedpEngine(cfg.chromedpTimeout, caps.ChromePath))
	}
	if caps.TableFallback {
		chain = append(chain, newTableEngine())
	}
	return chain
}
