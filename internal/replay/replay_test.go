package replay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keyframe/internal/event"
)

type recorder struct {
	queued []event.Event
	synced []event.Event
	fail   map[event.ID]error
}

func (r *recorder) Dispatch(ev event.Event) {
	r.queued = append(r.queued, ev)
}

func (r *recorder) DispatchSync(_ context.Context, ev event.Event) error {
	r.synced = append(r.synced, ev)
	return r.fail[ev.ID()]
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		flush bool
		sync  bool
	}{
		{"bare vector", `["inc"]`, "[inc]", false, false},
		{"payload", `["add", 2, 1.5, "x", true, null]`, "[add 2 1.5 x true <nil>]", false, false},
		{"object", `{"event":["paint"],"flush":true}`, "[paint]", true, false},
		{"sync object", `{"event":["inc"],"sync":true}`, "[inc]", false, true},
		{"nested payload", `["set", {"a":[1,2]}]`, "[set map[a:[1 2]]]", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, line.Event.String())
			assert.Equal(t, tt.flush, line.Event.FlushBeforeHandling())
			assert.Equal(t, tt.sync, line.Sync)
		})
	}
}

func TestParseIntegersAreInt64(t *testing.T) {
	line, err := Parse(`["add", 3]`)
	require.NoError(t, err)
	assert.Equal(t, int64(3), line.Event.Arg(0))
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{
		`inc`,
		`[]`,
		`[1, 2]`,
		`""`,
		`{"flush":true}`,
		`{"event":"inc"}`,
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrInvalidLine)
		})
	}
}

func TestPlay(t *testing.T) {
	input := strings.Join([]string{
		`# warm up`,
		`["inc"]`,
		``,
		`{"event":["inc"],"sync":true}`,
		`{"event":["boom"],"sync":true}`,
		`["add", 5]`,
	}, "\n")

	rec := &recorder{fail: map[event.ID]error{"boom": errors.New("boom")}}
	res, err := Play(context.Background(), strings.NewReader(input), rec)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Dispatched)
	assert.Equal(t, 2, res.Synced)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0].Error(), "line 5")

	require.Len(t, rec.queued, 2)
	assert.Equal(t, event.ID("inc"), rec.queued[0].ID())
	assert.Equal(t, event.ID("add"), rec.queued[1].ID())
}

func TestPlayStopsOnBadLine(t *testing.T) {
	rec := &recorder{}
	res, err := Play(context.Background(), strings.NewReader("[\"a\"]\nnot json\n[\"b\"]"), rec)

	require.ErrorIs(t, err, ErrInvalidLine)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, res.Dispatched)
}

func TestPlayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Play(ctx, strings.NewReader(`["a"]`), &recorder{})
	assert.ErrorIs(t, err, context.Canceled)
}
