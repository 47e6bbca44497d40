package gl

import (
	"regexp"
	"sort"
	"strings"
)

var (
	uniformDecl   = regexp.MustCompile(`(?m)^\s*uniform\s+(?:(?:lowp|mediump|highp)\s+)?\w+\s+([^;]+);`)
	attributeDecl = regexp.MustCompile(`(?m)^\s*(?:attribute|in)\s+(?:(?:lowp|mediump|highp)\s+)?\w+\s+([^;]+);`)
	samplerDecl   = regexp.MustCompile(`(?m)^\s*uniform\s+(?:(?:lowp|mediump|highp)\s+)?sampler\w*\s+([^;]+);`)
	precisionDecl = regexp.MustCompile(`(?m)^\s*precision\s+(?:lowp|mediump|highp)\s+float\s*;`)
	arraySuffix   = regexp.MustCompile(`\s*\[.*\]$`)
)

// ParseUniforms returns the sorted, de-duplicated names of every uniform declared in the
// given GLSL sources. Declarations listing several names ("uniform mat4 A, B;") yield
// each name; array suffixes are stripped.
func ParseUniforms(sources ...string) []string {
	return parseDeclarations(uniformDecl, sources)
}

// ParseAttributes returns the sorted, de-duplicated names of every vertex attribute
// declared in the given GLSL sources.
func ParseAttributes(sources ...string) []string {
	return parseDeclarations(attributeDecl, sources)
}

// ParseSamplers returns the sorted, de-duplicated names of the sampler uniforms declared
// in the given GLSL sources.
func ParseSamplers(sources ...string) []string {
	return parseDeclarations(samplerDecl, sources)
}

// HasPrecision returns true if the source declares a default float precision.
func HasPrecision(source string) bool {
	return precisionDecl.MatchString(source)
}

func parseDeclarations(decl *regexp.Regexp, sources []string) []string {

	seen := map[string]bool{}
	names := []string{}

	for _, src := range sources {

		for _, match := range decl.FindAllStringSubmatch(src, -1) {

			for _, name := range strings.Split(match[1], ",") {

				name = arraySuffix.ReplaceAllString(strings.TrimSpace(name), "")
				if name == "" || seen[name] {
					continue
				}
				seen[name] = true
				names = append(names, name)

			}

		}

	}

	sort.Strings(names)
	return names

}
