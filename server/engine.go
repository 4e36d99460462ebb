package server

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// Engine wraps the esbuild transform engine. Warmup is idempotent and
// race-safe: concurrent first-use calls converge on one initialization, and
// an "already initialized" complaint from the engine is treated as ready.
type Engine struct {
	lock  sync.Mutex
	ready bool
}

// TransformOptions controls a single-file compile.
type TransformOptions struct {
	Loader    esbuild.Loader
	Sourcemap esbuild.SourceMap
}

// TransformOutput is the result of a single-file compile.
type TransformOutput struct {
	Code string
	Map  string
}

// Warmup initializes the engine by running a trivial transform. Calling it
// again after a successful run is a no-op.
func (e *Engine) Warmup() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.ready {
		return nil
	}
	ret := esbuild.Transform("0", esbuild.TransformOptions{Loader: esbuild.LoaderJS})
	if len(ret.Errors) > 0 {
		msg := ret.Errors[0].Text
		if strings.Contains(strings.ToLower(msg), "already initialized") {
			e.ready = true
			return nil
		}
		return errors.New(msg)
	}
	e.ready = true
	return nil
}

// Transform compiles one file to ES-module javascript targeting modern
// browsers. Engine diagnostics come back as a single error, never a panic.
func (e *Engine) Transform(code string, filename string, options TransformOptions) (TransformOutput, error) {
	if err := e.Warmup(); err != nil {
		return TransformOutput{}, err
	}
	loader := options.Loader
	if loader == esbuild.LoaderNone {
		loader = loaderByExt(path.Ext(filename))
	}
	opts := esbuild.TransformOptions{
		Loader:     loader,
		Target:     esbuild.ES2022,
		Format:     esbuild.FormatESModule,
		Sourcefile: filename,
		Platform:   esbuild.PlatformBrowser,
		Sourcemap:  options.Sourcemap,
	}
	ret := esbuild.Transform(code, opts)
	if len(ret.Errors) > 0 {
		return TransformOutput{}, errors.New(formatMessages(filename, ret.Errors))
	}
	return TransformOutput{Code: string(ret.Code), Map: string(ret.Map)}, nil
}

// loaderByExt maps a file extension to the esbuild loader used for it.
func loaderByExt(extname string) esbuild.Loader {
	switch extname {
	case ".ts", ".mts":
		return esbuild.LoaderTS
	case ".tsx":
		return esbuild.LoaderTSX
	case ".jsx":
		return esbuild.LoaderJSX
	case ".json":
		return esbuild.LoaderJSON
	case ".css":
		return esbuild.LoaderCSS
	default:
		return esbuild.LoaderJS
	}
}

// formatMessages flattens engine diagnostics into one error string.
func formatMessages(filename string, messages []esbuild.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		loc := filename
		if msg.Location != nil {
			loc = fmt.Sprintf("%s:%d:%d", msg.Location.File, msg.Location.Line, msg.Location.Column)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", loc, msg.Text))
	}
	return strings.Join(lines, "\n")
}
