package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/wardenjs/warden/event"
	"github.com/wardenjs/warden/hook"
	"github.com/wardenjs/warden/report"
)

// Sentinel markers for the guest->host RPC channel carried over the
// QuickJS process's stderr, generalizing the teacher's \x00GORU:...\x00
// one-shot protocol (executor/protocol.go) into a richer set of message
// kinds: event emission, debug logs, host-callable hook invocation, and
// eval.bindings closure evaluation (§6.3). The matching host->guest
// direction runs over stdin as plain newline-terminated JSON; see respond.
const (
	msgPrefix = "\x00WARDEN:"
	msgSuffix = "\x00"
)

// messageKind tags the JSON envelope written by the guest over stderr.
type messageKind string

const (
	kindEvent    messageKind = "event"         // report an Event (§3.3)
	kindDebugLog messageKind = "debug_log"     // forward to zap at Debug level
	kindHookCall messageKind = "hook_call"     // invoke a Host Callable hook
	kindEvalBind messageKind = "eval_bindings" // closure-evaluation primitive (§6.3)
	kindResult   messageKind = "result"        // final Run() return value
)

// envelope is the wire shape of every guest->host message between
// msgPrefix and msgSuffix, and of every host->guest response.
type envelope struct {
	Kind messageKind     `json:"kind"`
	ID   int64           `json:"id,omitempty"` // correlates hook_call/eval_bindings requests to responses
	Body json.RawMessage `json:"body"`
}

type eventBody struct {
	Type          event.Type     `json:"type"`
	Path          string         `json:"path"`
	Value         *event.Value   `json:"value,omitempty"`
	Arguments     []event.Value  `json:"arguments,omitempty"`
	Returns       *event.Value   `json:"returns,omitempty"`
	IsConstructor bool           `json:"isConstructor,omitempty"`
	Location      event.Location `json:"location"`
}

type debugLogBody struct {
	Message string `json:"message"`
}

type hookCallBody struct {
	Path string `json:"path"`
	Args []any  `json:"args"`
}

type hookCallResponse struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type evalBindingsBody struct {
	Source   string         `json:"source"`
	Bindings map[string]any `json:"bindings"`
}

type evalBindingsResponse struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type resultBody struct {
	Value       any    `json:"value,omitempty"`
	Error       string `json:"error,omitempty"`
	NextValueID int64  `json:"nextValueId,omitempty"`
}

// protocolHandler is installed as the guest's stderr writer, the same role
// the teacher's protocolHandler plays in executor/protocol.go: every Write
// call is a chunk of the guest's combined debug channel, out of which WARDEN
// envelopes are pulled and dispatched, with the remainder kept as ordinary
// diagnostic output. Responses to hook_call/eval_bindings requests are
// written back over the guest's stdin.
type protocolHandler struct {
	ctx    context.Context
	store  *report.Store
	hooks  *hook.Registry
	logger *zap.Logger
	stdin  io.Writer

	buf        bytes.Buffer
	plainOut   bytes.Buffer
	result     resultBody
	gotResult  bool
	dispatchErr error
}

func newProtocolHandler(ctx context.Context, store *report.Store, hooks *hook.Registry, logger *zap.Logger, stdin io.Writer) *protocolHandler {
	return &protocolHandler{ctx: ctx, store: store, hooks: hooks, logger: logger, stdin: stdin}
}

// Write implements io.Writer so protocolHandler can be passed directly to
// wazero's WithStderr, exactly as the teacher does with its protocolHandler.
func (p *protocolHandler) Write(data []byte) (int, error) {
	p.buf.Write(data)

	for {
		content := p.buf.Bytes()
		start := bytes.Index(content, []byte(msgPrefix))
		if start < 0 {
			p.plainOut.Write(content)
			p.buf.Reset()
			break
		}
		p.plainOut.Write(content[:start])

		rest := content[start+len(msgPrefix):]
		end := bytes.IndexByte(rest, 0)
		if end < 0 {
			p.buf.Reset()
			p.buf.Write(content[start:])
			break
		}

		raw := rest[:end]
		remainder := rest[end+len(msgSuffix):]
		p.buf.Reset()
		p.buf.Write(remainder)

		if err := p.dispatch(raw); err != nil && p.dispatchErr == nil {
			p.dispatchErr = err
		}
	}

	return len(data), nil
}

// PlainOutput returns everything written that was not a WARDEN envelope,
// analogous to the teacher's protocolHandler.Stderr().
func (p *protocolHandler) PlainOutput() string {
	return p.plainOut.String()
}

func (p *protocolHandler) dispatch(raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("sandbox: malformed protocol envelope: %w", err)
	}

	switch env.Kind {
	case kindEvent:
		return p.handleEvent(env.Body)
	case kindDebugLog:
		return p.handleDebugLog(env.Body)
	case kindHookCall:
		return p.handleHookCall(env.ID, env.Body)
	case kindEvalBind:
		return p.handleEvalBindings(env.ID, env.Body)
	case kindResult:
		return p.handleResult(env.Body)
	default:
		return fmt.Errorf("sandbox: unknown protocol message kind %q", env.Kind)
	}
}

func (p *protocolHandler) handleEvent(body json.RawMessage) error {
	var b eventBody
	if err := json.Unmarshal(body, &b); err != nil {
		return fmt.Errorf("sandbox: malformed event message: %w", err)
	}

	var e event.Event
	switch b.Type {
	case event.Get:
		if b.Value == nil {
			return fmt.Errorf("sandbox: GetEvent missing value")
		}
		e = event.NewGet(b.Path, *b.Value, b.Location)
	case event.Set:
		if b.Value == nil {
			return fmt.Errorf("sandbox: SetEvent missing value")
		}
		e = event.NewSet(b.Path, *b.Value, b.Location)
	case event.Call:
		var ret event.Value
		if b.Returns != nil {
			ret = *b.Returns
		} else {
			ret = event.LiteralUndefined()
		}
		e = event.NewCall(b.Path, b.Arguments, ret, b.IsConstructor, b.Location)
	default:
		return fmt.Errorf("sandbox: unknown event type %q", b.Type)
	}
	if p.store != nil {
		p.store.Append(e)
	}
	return nil
}

func (p *protocolHandler) handleDebugLog(body json.RawMessage) error {
	var b debugLogBody
	if err := json.Unmarshal(body, &b); err != nil {
		return fmt.Errorf("sandbox: malformed debug_log message: %w", err)
	}
	if p.logger != nil {
		p.logger.Debug(b.Message)
	}
	return nil
}

func (p *protocolHandler) handleHookCall(id int64, body json.RawMessage) error {
	var b hookCallBody
	if err := json.Unmarshal(body, &b); err != nil {
		return fmt.Errorf("sandbox: malformed hook_call message: %w", err)
	}

	var resp hookCallResponse
	h, ok := p.hooks.Get(b.Path)
	if !ok || h.Kind != hook.Callable || h.Call == nil {
		resp.Error = fmt.Sprintf("sandbox: no callable hook at %q", b.Path)
	} else {
		result, err := h.Call(p.ctx, b.Args)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Result = result
		}
	}
	return p.respond(id, resp)
}

// handleEvalBindings acknowledges an eval.bindings request. Evaluation of
// the closure body happens entirely in-guest, where the bootstrap's
// evaluator already holds the target closure's lexical scope (§6.3); the
// host's role is limited to correlating the request so the resulting event
// carries a host-visible id, the same role it plays for hook_call.
func (p *protocolHandler) handleEvalBindings(id int64, body json.RawMessage) error {
	var b evalBindingsBody
	if err := json.Unmarshal(body, &b); err != nil {
		return fmt.Errorf("sandbox: malformed eval_bindings message: %w", err)
	}
	return p.respond(id, evalBindingsResponse{Result: true})
}

func (p *protocolHandler) handleResult(body json.RawMessage) error {
	var b resultBody
	if err := json.Unmarshal(body, &b); err != nil {
		return fmt.Errorf("sandbox: malformed result message: %w", err)
	}
	p.result = b
	p.gotResult = true
	return nil
}

// respond writes a host->guest response as a single newline-terminated JSON
// line on the guest's stdin. Unlike the guest->host direction (which shares
// stderr with ordinary diagnostic output and so needs the WARDEN: ... \x00
// envelope to stay findable mid-stream), stdin carries nothing but these
// responses, so the guest's std.in.getline() reads plain JSON with no
// wrapping - matching bootstrap.js's __warden_callHost exactly.
func (p *protocolHandler) respond(id int64, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sandbox: encoding protocol response: %w", err)
	}
	env := envelope{ID: id, Body: body}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("sandbox: encoding protocol envelope: %w", err)
	}
	if p.stdin == nil {
		return nil
	}
	_, err = p.stdin.Write(append(data, '\n'))
	return err
}
