package handler

import (
	"bufio"
	"io"
	"os"

	"github.com/searchktools/spidey/core/http"
	"github.com/searchktools/spidey/core/mime"
	"github.com/searchktools/spidey/core/pools"
)

// ServeFile streams the file at r.Path with a Content-Type from types
func ServeFile(r *http.Request, types *mime.Table) int {
	f, err := os.Open(r.Path)
	if err != nil {
		r.Logger.Debug().Err(err).Str("path", r.Path).Msg("cannot open file")
		return ServeError(r, http.StatusNotFound)
	}
	defer f.Close()

	w := r.Writer()
	err = http.WriteHead(w, http.StatusOK, http.HeaderContentType, types.Lookup(r.Path))
	if err == nil {
		_, err = copyChunks(w, f)
	}
	if err == nil {
		err = r.Flush()
	}
	if err != nil {
		r.Logger.Debug().Err(err).Str("path", r.Path).Msg("file streaming failed")
		return abort(r, http.StatusInternalServerError, err)
	}
	return http.StatusOK
}

// copyChunks copies src to w in ChunkSize pieces, failing on the first
// chunk w does not fully accept.
func copyChunks(w *bufio.Writer, src io.Reader) (int64, error) {
	buf := pools.GetBytes(pools.ChunkSize)
	defer pools.PutBytes(buf)

	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if err := http.WriteFull(w, buf[:n]); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
