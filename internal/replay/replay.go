// Package replay feeds recorded event lines into a dispatcher.
//
// Each non-blank line is either a JSON array event vector:
//
//	["todo.add", "buy milk"]
//
// or an object carrying the vector and dispatch flags:
//
//	{"event": ["render.heavy"], "flush": true, "sync": false}
//
// Lines starting with # are comments. Integral numbers decode as int64.
package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/keyframe/internal/event"
)

// ErrInvalidLine indicates a line that is not an event.
var ErrInvalidLine = errors.New("replay: invalid event line")

// Dispatcher receives replayed events.
type Dispatcher interface {
	Dispatch(ev event.Event)
	DispatchSync(ctx context.Context, ev event.Event) error
}

// Line is one parsed event line.
type Line struct {
	Event event.Event
	Sync  bool
}

// Parse decodes one event line.
func Parse(text string) (Line, error) {
	text = strings.TrimSpace(text)
	if !gjson.Valid(text) {
		return Line{}, fmt.Errorf("%w: not JSON", ErrInvalidLine)
	}

	root := gjson.Parse(text)
	var (
		vector gjson.Result
		line   Line
		flush  bool
	)
	switch {
	case root.IsArray():
		vector = root
	case root.IsObject():
		vector = root.Get("event")
		flush = root.Get("flush").Bool()
		line.Sync = root.Get("sync").Bool()
		if !vector.IsArray() {
			return Line{}, fmt.Errorf("%w: missing event array", ErrInvalidLine)
		}
	default:
		return Line{}, fmt.Errorf("%w: expected array or object", ErrInvalidLine)
	}

	items := vector.Array()
	values := make([]any, len(items))
	for i, item := range items {
		values[i] = decode(item)
	}

	ev, err := event.FromVector(values)
	if err != nil {
		return Line{}, fmt.Errorf("%w: %v", ErrInvalidLine, err)
	}
	if flush {
		ev = ev.WithFlush()
	}
	line.Event = ev
	return line, nil
}

func decode(r gjson.Result) any {
	if r.Type == gjson.Number && r.Num == math.Trunc(r.Num) && math.Abs(r.Num) < 1<<53 {
		return r.Int()
	}
	return r.Value()
}

// Result summarizes a replay.
type Result struct {
	Dispatched int
	Synced     int
	Failures   []error
}

// Play reads event lines from r and dispatches them in order.
// Handler failures on sync lines are collected; a malformed line stops
// the replay.
func Play(ctx context.Context, r io.Reader, d Dispatcher) (Result, error) {
	var res Result

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		line, err := Parse(text)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", n, err)
		}

		if line.Sync {
			res.Synced++
			if err := d.DispatchSync(ctx, line.Event); err != nil {
				res.Failures = append(res.Failures, fmt.Errorf("line %d: %w", n, err))
			}
			continue
		}
		res.Dispatched++
		d.Dispatch(line.Event)
	}

	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("reading events: %w", err)
	}
	return res, nil
}
