package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	kerrors "github.com/PolarWolf314/knox/internal/errors"
	"github.com/PolarWolf314/knox/internal/metrics"
	"github.com/PolarWolf314/knox/internal/secrets"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// MaxRequestSize bounds a single request line.
const MaxRequestSize = 1 << 20

// Request is one line read by Serve.
type Request struct {
	ID      json.RawMessage   `json:"id"`
	Channel string            `json:"channel"`
	Args    []json.RawMessage `json:"args"`
}

// Reply is one line written by Serve. A successful reply always carries
// result, even when it is false, "" or null; a failed one carries error.
type Reply struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type handlerFunc func(ctx context.Context, args []json.RawMessage) (any, error)

// Server exposes Handlers over newline-delimited JSON.
type Server struct {
	h       *Handlers
	metrics *metrics.Collector
	workers int
	routes  map[string]handlerFunc

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewServer returns a Server running at most workers requests at once.
func NewServer(h *Handlers, m *metrics.Collector, workers int) *Server {
	s := &Server{
		h:       h,
		metrics: m,
		workers: max(workers, 1),
		running: make(map[string]context.CancelFunc),
	}
	s.routes = s.buildRoutes()
	return s
}

// arg decodes args[i] into T. Missing and null arguments are zero values,
// matching optional parameters of the shell API.
func arg[T any](args []json.RawMessage, i int) (T, error) {
	var v T
	if i >= len(args) || len(args[i]) == 0 || bytes.Equal(args[i], []byte("null")) {
		return v, nil
	}
	if err := json.Unmarshal(args[i], &v); err != nil {
		return v, kerrors.Invalid(fmt.Sprintf("argument %d", i), "%v", err)
	}
	return v, nil
}

// stringArgs decodes the first n arguments as strings.
func stringArgs(args []json.RawMessage, n int) ([]string, error) {
	out := make([]string, n)
	for i := range n {
		v, err := arg[string](args, i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *Server) buildRoutes() map[string]handlerFunc {
	h := s.h
	return map[string]handlerFunc{
		"encrypt-file": func(ctx context.Context, args []json.RawMessage) (any, error) {
			a, err := stringArgs(args, 4)
			if err != nil {
				return nil, err
			}
			shred, err := arg[bool](args, 4)
			if err != nil {
				return nil, err
			}
			return h.EncryptFile(ctx, a[0], a[1], a[2], a[3], shred), nil
		},
		"decrypt-file": func(ctx context.Context, args []json.RawMessage) (any, error) {
			a, err := stringArgs(args, 7)
			if err != nil {
				return nil, err
			}
			shred, err := arg[bool](args, 7)
			if err != nil {
				return nil, err
			}
			return h.DecryptFile(ctx, a[0], a[1], a[2], a[3], a[4], a[5], a[6], shred), nil
		},
		"shred-file": func(ctx context.Context, args []json.RawMessage) (any, error) {
			path, err := arg[string](args, 0)
			if err != nil {
				return nil, err
			}
			passes, err := arg[int](args, 1)
			if err != nil {
				return nil, err
			}
			return h.ShredFile(ctx, path, passes), nil
		},
		"generate-password": func(_ context.Context, args []json.RawMessage) (any, error) {
			opts := secrets.DefaultPasswordOptions()
			if len(args) > 0 && !bytes.Equal(args[0], []byte("null")) {
				if err := json.Unmarshal(args[0], &opts); err != nil {
					return nil, kerrors.Invalid("options", "%v", err)
				}
			}
			return h.GeneratePassword(opts)
		},
		"get-app-version": func(context.Context, []json.RawMessage) (any, error) {
			return h.GetAppVersion(), nil
		},
		"create-vault-directory": func(ctx context.Context, args []json.RawMessage) (any, error) {
			a, err := stringArgs(args, 2)
			if err != nil {
				return nil, err
			}
			return h.CreateVaultDirectory(ctx, a[0], a[1]), nil
		},
		"delete-vault-directory": func(ctx context.Context, args []json.RawMessage) (any, error) {
			path, err := arg[string](args, 0)
			if err != nil {
				return nil, err
			}
			shred, err := arg[*bool](args, 1)
			if err != nil {
				return nil, err
			}
			return h.DeleteVaultDirectory(ctx, path, shred == nil || *shred), nil
		},
		"list-vault-contents": func(ctx context.Context, args []json.RawMessage) (any, error) {
			path, err := arg[string](args, 0)
			if err != nil {
				return nil, err
			}
			return h.ListVaultContents(ctx, path), nil
		},
		"load-all-vaults-metadata": func(ctx context.Context, _ []json.RawMessage) (any, error) {
			return h.LoadAllVaultsMetadata(ctx), nil
		},
		"add-file-to-vault": func(ctx context.Context, args []json.RawMessage) (any, error) {
			a, err := stringArgs(args, 4)
			if err != nil {
				return nil, err
			}
			return h.AddFileToVault(ctx, a[0], a[1], a[2], a[3]), nil
		},
		"decrypt-file-from-vault": func(ctx context.Context, args []json.RawMessage) (any, error) {
			a, err := stringArgs(args, 4)
			if err != nil {
				return nil, err
			}
			return h.DecryptFileFromVault(ctx, a[0], a[1], a[2], a[3]), nil
		},
		"remove-file-from-vault": func(ctx context.Context, args []json.RawMessage) (any, error) {
			a, err := stringArgs(args, 2)
			if err != nil {
				return nil, err
			}
			shred, err := arg[bool](args, 2)
			if err != nil {
				return nil, err
			}
			return h.RemoveFileFromVault(ctx, a[0], a[1], shred), nil
		},
		"metrics": func(context.Context, []json.RawMessage) (any, error) {
			var buf bytes.Buffer
			if err := s.metrics.WriteText(&buf); err != nil {
				return nil, err
			}
			return buf.String(), nil
		},
		"cancel": func(_ context.Context, args []json.RawMessage) (any, error) {
			if len(args) == 0 {
				return nil, kerrors.Invalid("id", "must be given")
			}
			return s.cancel(args[0]), nil
		},
	}
}

// cancel stops the running request with id and reports whether it was found.
func (s *Server) cancel(id json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.running[string(id)]
	if ok {
		cancel()
	}
	return ok
}

func (s *Server) track(id json.RawMessage, cancel context.CancelFunc) func() {
	if len(id) == 0 {
		return cancel
	}
	key := string(id)
	s.mu.Lock()
	s.running[key] = cancel
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.running, key)
		s.mu.Unlock()
		cancel()
	}
}

// Dispatch runs one request and builds its reply.
func (s *Server) Dispatch(ctx context.Context, req Request) Reply {
	route, ok := s.routes[req.Channel]
	if !ok {
		return Reply{ID: req.ID, Error: fmt.Sprintf("unknown channel %q", req.Channel)}
	}
	result, err := route(ctx, req.Args)
	if err != nil {
		return Reply{ID: req.ID, Error: kerrors.UserMessage(err)}
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return Reply{ID: req.ID, Error: fmt.Sprintf("encoding result: %v", err)}
	}
	return Reply{ID: req.ID, Result: raw}
}

// Serve reads requests from r until EOF and writes one reply per request to
// w. Requests run concurrently, at most the worker count at a time, so replies may
// arrive out of order; callers match them by id. A request can be stopped
// with the "cancel" channel and its id.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	var writeMu sync.Mutex
	enc := json.NewEncoder(w)
	reply := func(rep Reply) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = enc.Encode(rep)
	}

	var g errgroup.Group
	sem := semaphore.NewWeighted(int64(s.workers))

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), MaxRequestSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			break
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			reply(Reply{Error: "malformed request: " + err.Error()})
			continue
		}

		// Cancellation must not queue behind the requests it targets.
		if req.Channel == "cancel" {
			reply(s.Dispatch(ctx, req))
			continue
		}

		reqCtx, cancel := context.WithCancel(ctx)
		done := s.track(req.ID, cancel)
		g.Go(func() error {
			defer done()
			if err := sem.Acquire(reqCtx, 1); err != nil {
				reply(Reply{ID: req.ID, Error: kerrors.UserMessage(err)})
				return nil
			}
			defer sem.Release(1)
			reply(s.Dispatch(reqCtx, req))
			return nil
		})
	}

	_ = g.Wait()
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	return ctx.Err()
}
