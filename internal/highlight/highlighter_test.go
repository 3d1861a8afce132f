package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"main.go":          "go",
		"src/app.ts":       "typescript",
		"component.tsx":    "typescript",
		"script.py":        "python",
		"styles.css":       "css",
		"config.yaml":      "yaml",
		"Dockerfile":       "docker",
		"Makefile":         "make",
		"go.mod":           "gomod",
		"README.md":        "markdown",
		"mystery.unknown":  "",
		"no-extension-bin": "",
	}
	for file, want := range cases {
		assert.Equal(t, want, DetectLanguage(file), "file %s", file)
	}
}

func TestCodeAddsColorCodes(t *testing.T) {
	h := New("")
	out := h.Code("package main\n\nfunc main() {}\n", "go")
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "package")
}

func TestFileFallsBackToPlainText(t *testing.T) {
	h := New("no-such-style")
	src := "just some text"
	out := h.File(src, "notes.unknownext")
	assert.Contains(t, out, "just some text")
}
