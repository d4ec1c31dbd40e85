// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/d3dbc/ir"
)

// Version represents a GLSL version.
type Version struct {
	Major uint8
	Minor uint8
	ES    bool // true for GLSL ES (OpenGL ES / WebGL)
}

// Supported GLSL versions.
var (
	// Desktop OpenGL versions
	Version110 = Version{Major: 1, Minor: 10, ES: false} // OpenGL 2.0
	Version120 = Version{Major: 1, Minor: 20, ES: false} // OpenGL 2.1

	// OpenGL ES / WebGL versions
	VersionES100 = Version{Major: 1, Minor: 0, ES: true} // ES 2.0 / WebGL 1.0
	VersionES300 = Version{Major: 3, Minor: 0, ES: true} // ES 3.0 / WebGL 2.0
)

// String returns the version as a GLSL version directive value.
func (v Version) String() string {
	if v.ES && v.Major >= 3 {
		return fmt.Sprintf("%d%02d es", v.Major, v.Minor)
	}
	return v.VersionNumber()
}

// VersionNumber returns just the numeric version (e.g., "110", "300").
func (v Version) VersionNumber() string {
	return fmt.Sprintf("%d%02d", v.Major, v.Minor)
}

// modern reports whether the version uses in/out qualifiers and the
// overloaded texture() family.
func (v Version) modern() bool {
	return v.ES && v.Major >= 3
}

// Profile names served by this package.
const (
	ProfileGLSL    = "glsl"
	ProfileGLSL120 = "glsl120"
	ProfileGLSLES  = "glsles"
	ProfileGLSLES3 = "glsles3"
)

// VersionFor returns the language version of a profile name.
func VersionFor(profile string) (Version, bool) {
	switch profile {
	case ProfileGLSL:
		return Version110, true
	case ProfileGLSL120:
		return Version120, true
	case ProfileGLSLES:
		return VersionES100, true
	case ProfileGLSLES3:
		return VersionES300, true
	}
	return Version{}, false
}

// Options configures GLSL code generation.
type Options struct {
	// LangVersion is the target GLSL version.
	// Defaults to Version110 if zero.
	LangVersion Version

	// Profile is recorded in the translation. Defaults to the profile
	// name matching LangVersion.
	Profile string

	// BumpEnv folds per-sampler bump environments into the code as literals.
	BumpEnv map[int]ir.BumpEnv
}

// Compile generates GLSL source code from a decoded program.
func Compile(prog *ir.Program, options Options) (*ir.Translation, error) {
	// Apply defaults for zero values
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version110
	}
	if options.Profile == "" {
		options.Profile = profileName(options.LangVersion)
	}

	w := newWriter(prog, &options)
	if err := w.writeProgram(); err != nil {
		return nil, fmt.Errorf("glsl: %w", err)
	}
	return w.translation(), nil
}

func profileName(v Version) string {
	switch v {
	case Version120:
		return ProfileGLSL120
	case VersionES100:
		return ProfileGLSLES
	case VersionES300:
		return ProfileGLSLES3
	}
	return ProfileGLSL
}
