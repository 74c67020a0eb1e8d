package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/go-gl/mathgl/mgl64"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestInputBatchRoundTrip(t *testing.T) {
	right, forward := sim.DefaultView()
	batch := messages.InputBatch{Inputs: []sim.Input{
		{Tick: 41, MoveX: 1, ViewRight: right, ViewForward: forward},
		{Tick: 42, MoveX: -0.5, MoveY: math.Copysign(0, -1), ViewRight: right, ViewForward: forward, Jump: true},
	}}

	b, err := Encode(batch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, ok := got.(messages.InputBatch)
	if !ok || len(out.Inputs) != 2 {
		t.Fatalf("expected a two-input batch, got %#v", got)
	}
	for i := range batch.Inputs {
		if out.Inputs[i] != batch.Inputs[i] {
			t.Fatalf("input %d: expected %+v, got %+v", i, batch.Inputs[i], out.Inputs[i])
		}
	}
	if !math.Signbit(out.Inputs[1].MoveY) {
		t.Fatalf("expected negative zero to survive")
	}
}

func TestResultAndResyncAreBitExact(t *testing.T) {
	s := sim.State{
		Position:        mgl64.Vec3{1.0 / 3, -0.1, 7},
		Rotation:        gamemath.YawRotation(mgl64.Vec3{0.3, 0, 0.7}),
		Velocity:        mgl64.Vec3{4.999999, 0, -1e-300},
		AngularVelocity: mgl64.Vec3{0, 12.566, 0},
		Grounded:        true,
	}

	for _, msg := range []any{messages.ResultFrom(99, s), messages.Resync{Tick: 100, State: s}} {
		b, err := Encode(msg)
		if err != nil {
			t.Fatalf("encode %T: %v", msg, err)
		}
		got, err := Decode(b)
		if err != nil {
			t.Fatalf("decode %T: %v", msg, err)
		}
		if got != msg {
			t.Fatalf("expected %+v, got %+v", msg, got)
		}
	}
}

func TestJoinAcceptedRoundTrip(t *testing.T) {
	msg := messages.JoinAccepted{
		NetworkID:      7,
		ReconnectToken: "tok",
		ServerName:     "arena",
		TickRate:       50,
		Level:          "arena",
		StartTick:      1234,
		State:          sim.SpawnState(mgl64.Vec3{5, 0, 5}),
		Spawn:          sim.SpawnState(mgl64.Vec3{5, 0, 5}),
	}
	b, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != msg {
		t.Fatalf("expected %+v, got %+v", msg, got)
	}
}

func TestUnknownFieldsAreSkipped(t *testing.T) {
	b, _ := Encode(messages.ResyncRequest{Tick: 5})
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != (messages.ResyncRequest{Tick: 5}) {
		t.Fatalf("unexpected message %+v", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Encode(struct{}{}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind on encode, got %v", err)
	}
	if _, err := Decode(nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}

	var e encoder
	e.uint(envKind, 200)
	if _, err := Decode(e.b); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind on decode, got %v", err)
	}

	b, _ := Encode(messages.JoinRejected{Reason: "full"})
	if _, err := Decode(b[:len(b)-2]); err == nil {
		t.Fatalf("expected truncated envelope to fail")
	}
}

func TestFrames(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, messages.Leave{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteMessage(&buf, messages.PlayerLeftEvent{NetworkID: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}

	first, err := ReadMessage(&buf)
	if err != nil || first != (messages.Leave{}) {
		t.Fatalf("expected Leave, got %#v %v", first, err)
	}
	second, err := ReadMessage(&buf)
	if err != nil || second != (messages.PlayerLeftEvent{NetworkID: 3}) {
		t.Fatalf("expected PlayerLeftEvent, got %#v %v", second, err)
	}

	if err := WriteFrame(&buf, make([]byte, MaxFrameSize+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	huge := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := ReadFrame(bytes.NewReader(huge)); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge on read, got %v", err)
	}
}
