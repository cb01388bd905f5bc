// Package resp encodes and parses the RESP wire format.
// https://github.com/redis/redis-specifications/blob/master/protocol/RESP3.md
package resp

import "errors"

const CRLF string = "\r\n"

// Types equivalent to RESP version 2
const (
	TypeArray   byte = '*'
	TypeBlob    byte = '$'
	TypeSimple  byte = '+'
	TypeError   byte = '-'
	TypeInteger byte = ':'
)

// Types introduced by RESP3
const (
	TypeNull    byte = '_'
	TypeDouble  byte = ','
	TypeBoolean byte = '#'
)

var (
	// ErrIncomplete means data ends before the value does; retry with more bytes.
	ErrIncomplete = errors.New("resp: incomplete value")

	// ErrProtocol means data is not valid RESP.
	ErrProtocol = errors.New("resp: protocol error")
)

type Node interface {
}

type BlobString struct {
	Value string
}

type SimpleString struct {
	Value string
}

type Error struct {
	Message string
}

type Integer struct {
	Value int64
}

type Double struct {
	Value float64
}

type Boolean struct {
	Value bool
}

type Null struct {
}

// Array represents an array in RESP
type Array struct {
	Elements []Node
}
