// Package match ranks identifiers by similarity so a name that no longer
// resolves can be reported together with its likely replacement.
//
// Key functions:
//   - NormalizeIdent: folds case and CamelCase boundaries for fuzzy matching
//   - Levenshtein: computes edit distance between identifiers
//   - Rank / Suggest: order candidate names by similarity to a target
package match
