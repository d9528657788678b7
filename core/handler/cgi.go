package handler

import (
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/searchktools/spidey/core/http"
)

// ScriptOptions are the server-wide values handed to every script
type ScriptOptions struct {
	Root string // canonical document root
	Port string // listening port as configured

	// Env is the base environment scripts inherit, usually os.Environ()
	Env []string

	// Stderr receives script diagnostics; nil discards them
	Stderr io.Writer
}

// ScriptEnv builds the environment for running r's script: the base
// environment followed by the CGI variables and one HTTP_<NAME> variable
// per request header. Later entries win on duplicate names.
func ScriptEnv(r *http.Request, opts ScriptOptions) []string {
	env := make([]string, 0, len(opts.Env)+10+len(r.Headers))
	env = append(env, opts.Env...)
	env = append(env,
		"GATEWAY_INTERFACE=CGI/1.1",
		"SERVER_PROTOCOL="+r.Proto,
		"REQUEST_METHOD="+r.Method,
		"REQUEST_URI="+r.URI,
		"SCRIPT_FILENAME="+r.Path,
		"QUERY_STRING="+r.Query,
		"DOCUMENT_ROOT="+opts.Root,
		"SERVER_PORT="+opts.Port,
		"REMOTE_ADDR="+r.Host,
		"REMOTE_PORT="+r.Port,
	)

	for _, h := range r.Headers {
		name := HeaderEnvName(h.Name)
		// A client-supplied "Proxy" header must not become HTTP_PROXY
		if name == "HTTP_PROXY" {
			continue
		}
		env = append(env, name+"="+h.Value)
	}
	return env
}

// HeaderEnvName maps a header name to its CGI variable,
// e.g. "User-Agent" -> "HTTP_USER_AGENT".
func HeaderEnvName(name string) string {
	return "HTTP_" + strings.Map(func(c rune) rune {
		if c == '-' {
			return '_'
		}
		if 'a' <= c && c <= 'z' {
			return c - 'a' + 'A'
		}
		return c
	}, name)
}

// Shell runs executables the kernel refuses to exec, such as scripts
// without a "#!" line
const Shell = "/bin/sh"

// ServeScript runs the executable at r.Path and relays its standard output
// after a "HTTP/1.0 200 OK" status line. The script supplies its own headers.
func ServeScript(r *http.Request, opts ScriptOptions) int {
	env := ScriptEnv(r, opts)

	cmd, stdout, err := startScript(r.Path, env, opts.Stderr)
	if errors.Is(err, syscall.ENOEXEC) {
		r.Logger.Debug().Str("script", r.Path).Msg("no interpreter line, running with " + Shell)
		cmd, stdout, err = startScript(r.Path, env, opts.Stderr, Shell)
	}
	if err != nil {
		r.Logger.Warn().Err(err).Str("script", r.Path).Msg("script failed to start")
		return ServeError(r, http.StatusInternalServerError)
	}

	w := r.Writer()
	err = http.WriteFull(w, http.AppendStatusLine(make([]byte, 0, 32), http.StatusOK))
	if err == nil {
		_, err = copyChunks(w, stdout)
	}
	if err == nil {
		err = r.Flush()
	}
	if err != nil {
		// Client is gone; do not leave the script blocked on a full pipe
		cmd.Process.Kill()
	}

	if werr := cmd.Wait(); werr != nil {
		r.Logger.Warn().Err(werr).Str("script", r.Path).Msg("script exited abnormally")
	}

	if err != nil {
		return abort(r, http.StatusInternalServerError, err)
	}
	return http.StatusOK
}

// startScript starts path, or interpreter with path as its only argument,
// in the script's directory with stdout piped.
func startScript(path string, env []string, stderr io.Writer, interpreter ...string) (*exec.Cmd, io.ReadCloser, error) {
	var cmd *exec.Cmd
	if len(interpreter) > 0 {
		cmd = exec.Command(interpreter[0], path)
	} else {
		cmd = exec.Command(path)
	}
	cmd.Env = env
	cmd.Dir = filepath.Dir(path)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return cmd, stdout, nil
}
