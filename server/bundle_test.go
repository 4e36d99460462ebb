package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleProject(t *testing.T) {
	engine := &Engine{}
	files := map[string][]byte{
		"/src/main.ts":  []byte("import { greet } from './greet';\nconsole.log(greet('dev'));\n"),
		"/src/greet.ts": []byte("export function greet(name: string): string { return `hi ${name}`; }\n"),
	}
	result, err := engine.BundleProject("/src/main.ts", files, BundleOptions{})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "hi ${")
	assert.Contains(t, result.Code, "console.log")
	// everything is concatenated into one module, no import of ./greet left
	assert.NotContains(t, result.Code, `from "./greet"`)
}

func TestBundleIndexResolution(t *testing.T) {
	engine := &Engine{}
	files := map[string][]byte{
		"/main.ts":          []byte("import { version } from './lib';\nexport default version;\n"),
		"/lib/index.tsx":    []byte("export const version = 7;\n"),
		"/lib/unrelated.ts": []byte("export const nope = 0;\n"),
	}
	result, err := engine.BundleProject("/main.ts", files, BundleOptions{})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "7")
}

func TestBundleBareSpecifiersStayExternal(t *testing.T) {
	engine := &Engine{}
	files := map[string][]byte{
		"/main.ts": []byte("import React from 'react';\nexport default React;\n"),
	}
	result, err := engine.BundleProject("/main.ts", files, BundleOptions{})
	require.NoError(t, err)
	assert.Contains(t, result.Code, `"react"`)
}

func TestBundleJSONAndCSS(t *testing.T) {
	engine := &Engine{}
	files := map[string][]byte{
		"/main.ts":     []byte("import config from './config.json';\nimport './app.css';\nexport default config;\n"),
		"/config.json": []byte(`{"name":"demo"}`),
		"/app.css":     []byte("body{color:red}"),
	}
	result, err := engine.BundleProject("/main.ts", files, BundleOptions{})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "demo")
}

func TestBundleInlinesStylesheets(t *testing.T) {
	engine := &Engine{}
	files := map[string][]byte{
		"/main.ts": []byte("import './app.css';\nexport const ok = true;\n"),
		"/app.css": []byte(".banner{color:magenta}"),
	}
	result, err := engine.BundleProject("/main.ts", files, BundleOptions{})
	require.NoError(t, err)
	// the stylesheet rides inside the single module output, same shape the
	// serve path emits, instead of vanishing into a dropped css chunk
	assert.Contains(t, result.Code, ".banner{color:magenta}")
	assert.Contains(t, result.Code, `data-vfs-path="/app.css"`)
	assert.Contains(t, result.Code, "document.head.appendChild")
}

func TestBundleBinaryAsset(t *testing.T) {
	engine := &Engine{}
	files := map[string][]byte{
		"/main.ts":  []byte("import logo from './logo.png';\nexport default logo;\n"),
		"/logo.png": {0x89, 0x50, 0x4e, 0x47},
	}
	result, err := engine.BundleProject("/main.ts", files, BundleOptions{})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "data:image/png;base64,")
}

func TestBundleAllOrNothingOnSyntaxError(t *testing.T) {
	engine := &Engine{}
	files := map[string][]byte{
		"/main.ts":   []byte("import { ok } from './good';\nimport './broken';\nexport default ok;\n"),
		"/good.ts":   []byte("export const ok = true;\n"),
		"/broken.ts": []byte("const = ;\n"),
	}
	result, err := engine.BundleProject("/main.ts", files, BundleOptions{})
	require.Error(t, err)
	assert.Empty(t, result.Code)
	assert.Contains(t, err.Error(), "/broken.ts")
}

func TestBundleMissingEntry(t *testing.T) {
	engine := &Engine{}
	_, err := engine.BundleProject("/nope.ts", map[string][]byte{}, BundleOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found: /nope.ts")
}

func TestBundleMissingImportFailsWhole(t *testing.T) {
	engine := &Engine{}
	files := map[string][]byte{
		"/main.ts": []byte("import { x } from './missing';\nexport default x;\n"),
	}
	_, err := engine.BundleProject("/main.ts", files, BundleOptions{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing"))
}

func TestBundleMinify(t *testing.T) {
	engine := &Engine{}
	files := map[string][]byte{
		"/main.ts": []byte("export function add(left: number, right: number): number {\n  return left + right;\n}\n"),
	}
	plain, err := engine.BundleProject("/main.ts", files, BundleOptions{})
	require.NoError(t, err)
	minified, err := engine.BundleProject("/main.ts", files, BundleOptions{Minify: true})
	require.NoError(t, err)
	assert.Less(t, len(minified.Code), len(plain.Code))
}
