// internal/uid/doc.go

/*
Package uid provides a structured, comparable representation of the
identifiers that name computation targets, based on the canonical format
`Scheme~Value` with an optional `~Version` suffix.

Examples: `SEC~SWAP1`, `CURVE~USD`, `PORTFOLIO~Main~3`.

The package centralizes parsing and formatting so every other package can
treat identifiers as plain map keys.
*/
package uid
