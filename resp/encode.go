package resp

import (
	"strconv"
	"strings"
)

func AppendArrayLen(b []byte, n int) []byte {
	b = append(b, TypeArray)
	b = strconv.AppendInt(b, int64(n), 10)
	return append(b, CRLF...)
}

func AppendBlob(b []byte, p []byte) []byte {
	b = append(b, TypeBlob)
	b = strconv.AppendInt(b, int64(len(p)), 10)
	b = append(b, CRLF...)
	b = append(b, p...)
	return append(b, CRLF...)
}

func AppendInteger(b []byte, v int64) []byte {
	b = append(b, TypeInteger)
	b = strconv.AppendInt(b, v, 10)
	return append(b, CRLF...)
}

func AppendSimple(b []byte, s string) []byte {
	b = append(b, TypeSimple)
	b = append(b, noNewlines(s)...)
	return append(b, CRLF...)
}

// AppendError appends an error reply. A message without an upper case error
// code is prefixed with ERR.
func AppendError(b []byte, msg string) []byte {
	b = append(b, TypeError)
	if code, _, _ := strings.Cut(msg, " "); !isErrorCode(code) {
		b = append(b, "ERR "...)
	}
	b = append(b, noNewlines(msg)...)
	return append(b, CRLF...)
}

// AppendNullBlob appends the RESP2 null bulk string.
func AppendNullBlob(b []byte) []byte {
	return append(b, "$-1\r\n"...)
}

// ConvertToRESP encodes a command and its arguments as a request array.
func ConvertToRESP(command string, arguments ...string) []byte {
	b := AppendArrayLen(nil, len(arguments)+1)
	b = AppendBlob(b, []byte(command))
	for _, arg := range arguments {
		b = AppendBlob(b, []byte(arg))
	}
	return b
}

func noNewlines(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func isErrorCode(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
