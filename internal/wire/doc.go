// Package wire defines the typed message surface of the agent stream
// protocol and the decoder that turns raw JSON objects into it.
//
// Decoding is a pure function from one decoded JSON object to one
// Message value. A decode either yields a fully constructed variant or
// fails with a ShapeError carrying the offending raw object; partially
// constructed messages never escape.
package wire
