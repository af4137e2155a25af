// Package const_config holds small shared constants referenced by the config and
// logger packages. Kept deliberately tiny: it exists so those packages don't
// each invent their own copy of the same formatting constant.
package const_config

// JSONIndent is the indentation string used whenever this module pretty
// prints JSON configuration snippets (default config dumps, CLI output).
const JSONIndent = "  "
