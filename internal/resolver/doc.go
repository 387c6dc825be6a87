// Package resolver turns a value requirement on a target into the ordered
// list of candidate functions able to produce it, each paired with the
// concrete specification it would produce.
//
// Function results may be templates whose properties are wildcards or value
// sets. Binding picks one value per open property:
//
//   - the allowed values are the template's values intersected with the
//     requirement's constraint for that key;
//   - when both leave the key open, the BindingPolicy supplies a default, and
//     without one the template is discarded;
//   - otherwise the policy default is used if it is allowed, else the first
//     allowed value in sorted order.
//
// A template that does not mention a key the requirement constrains is
// discarded. The Function property is always bound to the producing function's
// id. Candidates keep the repository order (priority, then declaration), then
// template order.
package resolver
