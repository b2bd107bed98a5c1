// Package language resolves the catalog translation language setting.
//
// Operators may write a two-letter code, a three-letter code, a BCP 47 tag
// such as "pt-BR", or the English name. Everything normalizes to the
// two-letter code stored on localized products; DisplayName yields the name
// used in translation prompts.
package language
