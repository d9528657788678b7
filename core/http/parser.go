package http

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	ErrInvalidRequest = errors.New("invalid HTTP request")
	ErrEmptyRequest   = errors.New("connection closed before request line")
	ErrLineTooLong    = errors.New("request line too long")
	ErrTooManyHeaders = errors.New("too many header lines")
)

// ParseRequest reads the request line and headers from the request stream.
//
// The request line must hold exactly three whitespace-separated tokens.
// Header lines without a colon, or whose name is not a token, are skipped.
// Headers end at an empty line or at end of stream.
func ParseRequest(r *Request) error {
	br := r.Reader()

	line, err := readLine(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyRequest
		}
		return fmt.Errorf("read request line: %w", err)
	}

	if err := parseRequestLine(r, line); err != nil {
		return err
	}
	r.Logger.Debug().
		Str("method", r.Method).
		Str("uri", r.URI).
		Str("query", r.Query).
		Msg("request line")

	if err := parseHeaders(r, br); err != nil {
		return err
	}
	for _, h := range r.Headers {
		r.Logger.Debug().Str("name", h.Name).Str("value", h.Value).Msg("header")
	}
	return nil
}

// SplitTarget splits a request-target at the first '?'.
// The query is empty when there is none.
func SplitTarget(target string) (path, query string) {
	path, query, _ = strings.Cut(target, "?")
	return path, query
}

func parseRequestLine(r *Request, line string) error {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return fmt.Errorf("%w: request line has %d fields", ErrInvalidRequest, len(fields))
	}

	method, target, proto := fields[0], fields[1], fields[2]
	if !validMethod(method) {
		return fmt.Errorf("%w: bad method %q", ErrInvalidRequest, method)
	}

	path, query := SplitTarget(target)
	decoded, err := url.PathUnescape(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	r.Method = method
	r.URI = target
	r.Path = decoded
	r.Query = query
	r.Proto = proto
	return nil
}

func parseHeaders(r *Request, br *bufio.Reader) error {
	for {
		line, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read header: %w", err)
		}
		if line == "" {
			return nil
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			r.Logger.Debug().Str("line", line).Msg("skipping malformed header")
			continue
		}
		name = trimSpace(name)
		value = trimSpace(value)
		if !httpguts.ValidHeaderFieldName(name) {
			r.Logger.Debug().Str("name", name).Msg("skipping invalid header name")
			continue
		}

		if len(r.Headers) >= MaxHeaders {
			return ErrTooManyHeaders
		}
		r.AddHeader(name, value)
	}
}

// readLine reads one line without its trailing CR/LF.
// A final unterminated line is returned as is; io.EOF only comes with no data.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return "", ErrLineTooLong
	}
	if err != nil && (err != io.EOF || len(line) == 0) {
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// trimSpace trims horizontal whitespace only
func trimSpace(s string) string {
	return strings.Trim(s, " \t")
}

func validMethod(method string) bool {
	return len(method) > 0 && strings.IndexFunc(method, isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}
