package http

import (
	"bufio"
	"errors"
)

// Status codes produced by the server
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusInternalServerError = 500
)

// Proto is the protocol written on every status line
const Proto = "HTTP/1.0"

// HeaderContentType names the only header the generators set themselves
const HeaderContentType = "Content-Type"

// ErrShortWrite reports a write that did not accept the whole buffer
var ErrShortWrite = errors.New("short write to client")

// StatusText returns the reason phrase for the given code.
// Codes the server never emits map to the 500 phrase.
func StatusText(code int) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	default:
		return "Internal Server Error"
	}
}

// StatusString returns "<code> <reason>", e.g. "404 Not Found"
func StatusString(code int) string {
	b := make([]byte, 0, 32)
	b = appendStatus(b, code)
	return string(b)
}

// AppendStatusLine appends "HTTP/1.0 <code> <reason>\r\n"
func AppendStatusLine(b []byte, code int) []byte {
	b = append(b, Proto...)
	b = append(b, ' ')
	b = appendStatus(b, code)
	return append(b, "\r\n"...)
}

// AppendHeader appends "Name: value\r\n"
func AppendHeader(b []byte, name, value string) []byte {
	b = append(b, name...)
	b = append(b, ": "...)
	b = append(b, value...)
	return append(b, "\r\n"...)
}

// WriteHead writes a status line, the given name/value header pairs and the
// blank line ending the head. An odd trailing name is ignored.
func WriteHead(w *bufio.Writer, code int, headers ...string) error {
	buf := make([]byte, 0, 128)
	buf = AppendStatusLine(buf, code)
	for i := 0; i+1 < len(headers); i += 2 {
		buf = AppendHeader(buf, headers[i], headers[i+1])
	}
	buf = append(buf, "\r\n"...)
	return WriteFull(w, buf)
}

// WriteFull writes p and reports ErrShortWrite if any byte was refused
func WriteFull(w *bufio.Writer, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return ErrShortWrite
	}
	return nil
}

func appendStatus(b []byte, code int) []byte {
	if code != StatusOK && code != StatusBadRequest && code != StatusNotFound {
		code = StatusInternalServerError
	}
	b = appendInt(b, code)
	b = append(b, ' ')
	return append(b, StatusText(code)...)
}

// appendInt appends an integer to a byte slice
func appendInt(b []byte, i int) []byte {
	if i == 0 {
		return append(b, '0')
	}

	if i < 0 {
		b = append(b, '-')
		i = -i
	}

	var digits [20]byte
	n := 0
	for i > 0 {
		digits[n] = byte('0' + i%10)
		i /= 10
		n++
	}

	for n > 0 {
		n--
		b = append(b, digits[n])
	}

	return b
}
