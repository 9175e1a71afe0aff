// Package toolkit provides built-in tools for the assistant: a calendar and
// a notebook backed by small in-memory stores. Tool input schemas are
// generated by reflection from the argument structs, so the schema the model
// sees and the struct the executor unmarshals cannot drift apart.
package toolkit
