// Package civitai maps the Civitai catalog API onto typed values.
//
// The catalog's JSON responses are decoded once, at this boundary,
// into explicit structs; nothing downstream re-parses loose JSON. The
// package also parses model page URLs and turns a selected
// version/file pair into a download target.
package civitai
