package resp

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// MaxInlineSize bounds a single protocol line.
const MaxInlineSize = 64 * 1024

// Parse decodes the first value in data and returns it with the number of
// bytes consumed. It returns ErrIncomplete when data holds only a prefix of
// a value.
func Parse(data []byte) (Node, int, error) {
	line, n, err := readLine(data)
	if err != nil {
		return nil, 0, err
	}
	if len(line) == 0 {
		return nil, 0, fmt.Errorf("%w: empty line", ErrProtocol)
	}

	switch line[0] {
	case TypeSimple:
		return SimpleString{Value: string(line[1:])}, n, nil

	case TypeError:
		return Error{Message: string(line[1:])}, n, nil

	case TypeInteger:
		v, err := parseInt(line[1:])
		if err != nil {
			return nil, 0, err
		}
		return Integer{Value: v}, n, nil

	case TypeNull:
		return Null{}, n, nil

	case TypeBoolean:
		return Boolean{Value: len(line) > 1 && (line[1] == 't' || line[1] == 'T')}, n, nil

	case TypeDouble:
		v, err := strconv.ParseFloat(string(line[1:]), 64)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		return Double{Value: v}, n, nil

	case TypeBlob:
		size, err := parseInt(line[1:])
		if err != nil {
			return nil, 0, err
		}
		if size == -1 {
			return Null{}, n, nil
		}
		if size < 0 {
			return nil, 0, fmt.Errorf("%w: blob length %d", ErrProtocol, size)
		}
		end := n + int(size)
		if len(data) < end+2 {
			return nil, 0, ErrIncomplete
		}
		if data[end] != '\r' || data[end+1] != '\n' {
			return nil, 0, fmt.Errorf("%w: blob not terminated", ErrProtocol)
		}
		return BlobString{Value: string(data[n:end])}, end + 2, nil

	case TypeArray:
		count, err := parseInt(line[1:])
		if err != nil {
			return nil, 0, err
		}
		if count == -1 {
			return Null{}, n, nil
		}
		if count < 0 {
			return nil, 0, fmt.Errorf("%w: array length %d", ErrProtocol, count)
		}
		array := Array{Elements: make([]Node, 0, count)}
		for i := int64(0); i < count; i++ {
			elem, m, err := Parse(data[n:])
			if err != nil {
				return nil, 0, err
			}
			array.Elements = append(array.Elements, elem)
			n += m
		}
		return array, n, nil

	default:
		return nil, 0, fmt.Errorf("%w: unexpected type byte %q", ErrProtocol, line[0])
	}
}

// ParseCommand decodes one request. Requests are arrays of blob strings, or
// inline lines of space separated words.
func ParseCommand(data []byte) ([]string, int, error) {
	if len(data) > 0 && data[0] != TypeArray {
		line, n, err := readLine(data)
		if err != nil {
			return nil, 0, err
		}
		return strings.Fields(string(line)), n, nil
	}

	node, n, err := Parse(data)
	if err != nil {
		return nil, 0, err
	}
	array, ok := node.(Array)
	if !ok {
		return nil, 0, fmt.Errorf("%w: request is not an array", ErrProtocol)
	}
	args := make([]string, 0, len(array.Elements))
	for _, elem := range array.Elements {
		blob, ok := elem.(BlobString)
		if !ok {
			return nil, 0, fmt.Errorf("%w: request argument is not a blob string", ErrProtocol)
		}
		args = append(args, blob.Value)
	}
	return args, n, nil
}

func readLine(data []byte) ([]byte, int, error) {
	idx := bytes.Index(data, []byte(CRLF))
	if idx < 0 {
		if len(data) > MaxInlineSize {
			return nil, 0, fmt.Errorf("%w: line too long", ErrProtocol)
		}
		return nil, 0, ErrIncomplete
	}
	return data[:idx], idx + 2, nil
}

func parseInt(b []byte) (int64, error) {
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return v, nil
}
