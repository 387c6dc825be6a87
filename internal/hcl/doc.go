// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file discovery, parsing, decoding into
// schema structs and translating them into the format-agnostic model.
//
// Function expressions (`condition`, `target`, `properties`) are kept as raw
// hcl.Expression values; they are evaluated later, per target, by the
// function package.
package hcl
