package server

import (
	"errors"
	"fmt"
	"path"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"

	"github.com/TimoWilhelm/worker-ide-sub005/internal/mime"
)

// BundleOptions parameterizes a whole-project bundle.
type BundleOptions struct {
	// Externals lists bare specifiers kept external instead of failing
	// resolution; every bare specifier is external by default.
	Externals []string
	Minify    bool
	SourceMap bool
	Aliases   *AliasTable
}

// BundleResult is the outcome of a successful bundle: one concatenated
// ES-module output plus any engine warnings.
type BundleResult struct {
	Code     string
	Warnings []string
}

// BundleProject bundles the project snapshot starting at entryPoint into a
// single ES module. The build is all-or-nothing: any engine diagnostic
// (missing file, syntax error) fails the whole invocation with an aggregate
// error listing every reported problem.
func (e *Engine) BundleProject(entryPoint string, files map[string][]byte, options BundleOptions) (BundleResult, error) {
	if err := e.Warmup(); err != nil {
		return BundleResult{}, err
	}
	if _, ok := files[entryPoint]; !ok {
		return BundleResult{}, fmt.Errorf("file not found: %s", entryPoint)
	}
	fileSet := MapFileSet(files)

	opts := esbuild.BuildOptions{
		EntryPoints: []string{entryPoint},
		Bundle:      true,
		Write:       false,
		Outdir:      "/bundle",
		Format:      esbuild.FormatESModule,
		Target:      esbuild.ES2022,
		Platform:    esbuild.PlatformBrowser,
		Plugins: []esbuild.Plugin{
			{
				Name: "project-fs",
				Setup: func(build esbuild.PluginBuild) {
					build.OnResolve(esbuild.OnResolveOptions{Filter: ".*"}, func(args esbuild.OnResolveArgs) (esbuild.OnResolveResult, error) {
						return resolveInSnapshot(args, fileSet, options)
					})
					build.OnLoad(esbuild.OnLoadOptions{Filter: ".*", Namespace: bundleNamespace}, func(args esbuild.OnLoadArgs) (esbuild.OnLoadResult, error) {
						return loadFromSnapshot(args, files)
					})
				},
			},
		},
	}
	if options.Minify {
		opts.MinifyWhitespace = true
		opts.MinifySyntax = true
		opts.MinifyIdentifiers = true
	}
	if options.SourceMap {
		opts.Sourcemap = esbuild.SourceMapInline
	}

	ret := esbuild.Build(opts)
	if len(ret.Errors) > 0 {
		lines := make([]string, 0, len(ret.Errors))
		for _, msg := range ret.Errors {
			loc := ""
			if msg.Location != nil {
				loc = fmt.Sprintf("%s:%d:%d: ", msg.Location.File, msg.Location.Line, msg.Location.Column)
			}
			lines = append(lines, loc+msg.Text)
		}
		return BundleResult{}, errors.New(strings.Join(lines, "\n"))
	}
	if len(ret.OutputFiles) == 0 {
		return BundleResult{}, errors.New("bundle produced no output")
	}

	result := BundleResult{}
	for _, file := range ret.OutputFiles {
		if strings.HasSuffix(file.Path, ".js") {
			result.Code = string(file.Contents)
		}
	}
	for _, msg := range ret.Warnings {
		result.Warnings = append(result.Warnings, msg.Text)
	}
	return result, nil
}

// resolveInSnapshot is the bundler's resolution hook: the entry point and
// paths already inside the reserved namespace pass straight through,
// relative specifiers are resolved against the importer's directory with
// the same extension/index probing as the serve path, and bare specifiers
// stay external unless whitelisted.
func resolveInSnapshot(args esbuild.OnResolveArgs, files MapFileSet, options BundleOptions) (esbuild.OnResolveResult, error) {
	specifier := args.Path

	if args.Kind == esbuild.ResolveEntryPoint {
		return esbuild.OnResolveResult{Path: specifier, Namespace: bundleNamespace}, nil
	}
	if isHttpSpecifier(specifier) {
		return esbuild.OnResolveResult{Path: specifier, External: true}, nil
	}
	if !isRelPathSpecifier(specifier) && !isAbsPathSpecifier(specifier) {
		if options.Aliases != nil {
			if target, ok := options.Aliases.Lookup(specifier); ok {
				return esbuild.OnResolveResult{Path: probeExtensions(target, files), Namespace: bundleNamespace}, nil
			}
		}
		for _, name := range options.Externals {
			if specifier == name || strings.HasPrefix(specifier, name+"/") {
				return esbuild.OnResolveResult{Path: specifier, External: true}, nil
			}
		}
		return esbuild.OnResolveResult{Path: specifier, External: true}, nil
	}

	base := specifier
	if isRelPathSpecifier(specifier) {
		base = joinSegments(path.Dir(args.Importer), specifier)
	}
	return esbuild.OnResolveResult{Path: probeExtensions(base, files), Namespace: bundleNamespace}, nil
}

// loadFromSnapshot returns the in-memory content for a namespace path with
// a loader inferred from the extension and a synthesized resolve directory
// so the engine's own relative resolution stays consistent. Stylesheets are
// wrapped as style-injecting modules, the same shape the serve path emits,
// so the single ES-module output carries them instead of a separate css
// chunk that would otherwise be discarded.
func loadFromSnapshot(args esbuild.OnLoadArgs, files map[string][]byte) (esbuild.OnLoadResult, error) {
	data, ok := files[args.Path]
	if !ok {
		return esbuild.OnLoadResult{}, fmt.Errorf("file not found: %s", args.Path)
	}
	extname := path.Ext(args.Path)
	contents := string(data)
	loader := loaderByExt(extname)
	if extname == ".css" {
		contents = wrapCSSModule(args.Path, contents)
		loader = esbuild.LoaderJS
	} else if mime.IsBinaryExt(extname) {
		contents = wrapBinaryModule(args.Path, data)
		loader = esbuild.LoaderJS
	}
	resolveDir := path.Dir(args.Path)
	return esbuild.OnLoadResult{Contents: &contents, Loader: loader, ResolveDir: resolveDir}, nil
}
