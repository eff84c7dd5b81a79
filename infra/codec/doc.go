// Package codec encodes depth messages into length-prefixed frames.
//
// A frame is uvarint(len(body)) followed by a protobuf-wire body whose first
// field is the template identifier. Template identifiers are agreed out of
// band; the codec only assigns and validates them.
package codec
