// Package wire is the compact binary encoding used on the KCP transport.
// Messages are protobuf wire-format envelopes built with protowire, so the
// layout stays forward compatible without generated code: unknown fields are
// skipped on decode.
package wire

import (
	"errors"
	"fmt"
	"math"

	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/leap-fish/necs/esync"
	"google.golang.org/protobuf/encoding/protowire"
)

// Kind tags the message carried by an envelope.
type Kind uint64

const (
	KindJoinRequest Kind = iota + 1
	KindJoinAccepted
	KindJoinRejected
	KindLeave
	KindInputBatch
	KindResult
	KindResyncRequest
	KindResync
	KindPlayerJoined
	KindPlayerLeft
)

var (
	ErrUnknownKind = errors.New("unknown message kind")
	ErrEmpty       = errors.New("empty envelope")
)

const (
	envKind protowire.Number = 1
	envBody protowire.Number = 2
)

// Encode wraps msg in an envelope.
func Encode(msg any) ([]byte, error) {
	var body encoder
	var kind Kind

	switch m := msg.(type) {
	case messages.JoinRequest:
		kind = KindJoinRequest
		body.string(1, m.Version)
		body.string(2, m.PlayerName)
		body.string(3, m.ReconnectToken)
	case messages.JoinAccepted:
		kind = KindJoinAccepted
		body.uint(1, uint64(m.NetworkID))
		body.string(2, m.ReconnectToken)
		body.string(3, m.ServerName)
		body.uint(4, uint64(m.TickRate))
		body.string(5, m.Level)
		body.uint(6, uint64(m.StartTick))
		body.bytes(7, encodeState(m.State))
		body.bytes(8, encodeState(m.Spawn))
	case messages.JoinRejected:
		kind = KindJoinRejected
		body.string(1, m.Reason)
	case messages.Leave:
		kind = KindLeave
	case messages.InputBatch:
		kind = KindInputBatch
		for _, in := range m.Inputs {
			body.bytes(1, encodeInput(in))
		}
	case messages.AuthoritativeResult:
		kind = KindResult
		body.uint(1, uint64(m.Tick))
		body.bytes(2, encodeVec3(m.Position))
		body.bytes(3, encodeQuat(m.Rotation))
		body.bytes(4, encodeVec3(m.Velocity))
		body.bytes(5, encodeVec3(m.AngularVelocity))
		body.bool(6, m.Grounded)
	case messages.ResyncRequest:
		kind = KindResyncRequest
		body.uint(1, uint64(m.Tick))
	case messages.Resync:
		kind = KindResync
		body.uint(1, uint64(m.Tick))
		body.bytes(2, encodeState(m.State))
	case messages.PlayerJoinedEvent:
		kind = KindPlayerJoined
		body.uint(1, uint64(m.NetworkID))
		body.string(2, m.Name)
	case messages.PlayerLeftEvent:
		kind = KindPlayerLeft
		body.uint(1, uint64(m.NetworkID))
	default:
		return nil, fmt.Errorf("encode %T: %w", msg, ErrUnknownKind)
	}

	var env encoder
	env.uint(envKind, uint64(kind))
	env.bytes(envBody, body.b)
	return env.b, nil
}

// Decode parses an envelope into one of the messages package types.
func Decode(b []byte) (any, error) {
	var kind Kind
	var body []byte
	err := walk(b, func(f field) error {
		switch f.num {
		case envKind:
			kind = Kind(f.u)
		case envBody:
			body = f.b
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if kind == 0 {
		return nil, ErrEmpty
	}

	msg, err := decodeBody(kind, body)
	if err != nil {
		return nil, fmt.Errorf("decode kind %d: %w", kind, err)
	}
	return msg, nil
}

func decodeBody(kind Kind, b []byte) (any, error) {
	switch kind {
	case KindJoinRequest:
		var m messages.JoinRequest
		err := walk(b, func(f field) error {
			switch f.num {
			case 1:
				m.Version = string(f.b)
			case 2:
				m.PlayerName = string(f.b)
			case 3:
				m.ReconnectToken = string(f.b)
			}
			return nil
		})
		return m, err
	case KindJoinAccepted:
		var m messages.JoinAccepted
		err := walk(b, func(f field) (err error) {
			switch f.num {
			case 1:
				m.NetworkID = esync.NetworkId(f.u)
			case 2:
				m.ReconnectToken = string(f.b)
			case 3:
				m.ServerName = string(f.b)
			case 4:
				m.TickRate = int(f.u)
			case 5:
				m.Level = string(f.b)
			case 6:
				m.StartTick = tick.Tick(f.u)
			case 7:
				m.State, err = decodeState(f.b)
			case 8:
				m.Spawn, err = decodeState(f.b)
			}
			return err
		})
		return m, err
	case KindJoinRejected:
		var m messages.JoinRejected
		err := walk(b, func(f field) error {
			if f.num == 1 {
				m.Reason = string(f.b)
			}
			return nil
		})
		return m, err
	case KindLeave:
		return messages.Leave{}, nil
	case KindInputBatch:
		var m messages.InputBatch
		err := walk(b, func(f field) error {
			if f.num != 1 {
				return nil
			}
			in, err := decodeInput(f.b)
			if err != nil {
				return err
			}
			m.Inputs = append(m.Inputs, in)
			return nil
		})
		return m, err
	case KindResult:
		var m messages.AuthoritativeResult
		err := walk(b, func(f field) (err error) {
			switch f.num {
			case 1:
				m.Tick = tick.Tick(f.u)
			case 2:
				m.Position, err = decodeVec3(f.b)
			case 3:
				m.Rotation, err = decodeQuat(f.b)
			case 4:
				m.Velocity, err = decodeVec3(f.b)
			case 5:
				m.AngularVelocity, err = decodeVec3(f.b)
			case 6:
				m.Grounded = protowire.DecodeBool(f.u)
			}
			return err
		})
		return m, err
	case KindResyncRequest:
		var m messages.ResyncRequest
		err := walk(b, func(f field) error {
			if f.num == 1 {
				m.Tick = tick.Tick(f.u)
			}
			return nil
		})
		return m, err
	case KindResync:
		var m messages.Resync
		err := walk(b, func(f field) (err error) {
			switch f.num {
			case 1:
				m.Tick = tick.Tick(f.u)
			case 2:
				m.State, err = decodeState(f.b)
			}
			return err
		})
		return m, err
	case KindPlayerJoined:
		var m messages.PlayerJoinedEvent
		err := walk(b, func(f field) error {
			switch f.num {
			case 1:
				m.NetworkID = uint(f.u)
			case 2:
				m.Name = string(f.b)
			}
			return nil
		})
		return m, err
	case KindPlayerLeft:
		var m messages.PlayerLeftEvent
		err := walk(b, func(f field) error {
			if f.num == 1 {
				m.NetworkID = uint(f.u)
			}
			return nil
		})
		return m, err
	}
	return nil, ErrUnknownKind
}

func encodeInput(in sim.Input) []byte {
	var e encoder
	e.uint(1, uint64(in.Tick))
	e.float(2, in.MoveX)
	e.float(3, in.MoveY)
	e.bytes(4, encodeVec3(in.ViewRight))
	e.bytes(5, encodeVec3(in.ViewForward))
	e.bool(6, in.Jump)
	return e.b
}

func decodeInput(b []byte) (sim.Input, error) {
	var in sim.Input
	err := walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			in.Tick = tick.Tick(f.u)
		case 2:
			in.MoveX = math.Float64frombits(f.u)
		case 3:
			in.MoveY = math.Float64frombits(f.u)
		case 4:
			in.ViewRight, err = decodeVec3(f.b)
		case 5:
			in.ViewForward, err = decodeVec3(f.b)
		case 6:
			in.Jump = protowire.DecodeBool(f.u)
		}
		return err
	})
	return in, err
}

func encodeState(s sim.State) []byte {
	var e encoder
	e.bytes(1, encodeVec3(s.Position))
	e.bytes(2, encodeQuat(s.Rotation))
	e.bytes(3, encodeVec3(s.Velocity))
	e.bytes(4, encodeVec3(s.AngularVelocity))
	e.bool(5, s.Grounded)
	return e.b
}

func decodeState(b []byte) (sim.State, error) {
	var s sim.State
	err := walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			s.Position, err = decodeVec3(f.b)
		case 2:
			s.Rotation, err = decodeQuat(f.b)
		case 3:
			s.Velocity, err = decodeVec3(f.b)
		case 4:
			s.AngularVelocity, err = decodeVec3(f.b)
		case 5:
			s.Grounded = protowire.DecodeBool(f.u)
		}
		return err
	})
	return s, err
}

func encodeVec3(v mgl64.Vec3) []byte {
	var e encoder
	for i, c := range v {
		e.float(protowire.Number(i+1), c)
	}
	return e.b
}

func decodeVec3(b []byte) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	err := walk(b, func(f field) error {
		if f.num >= 1 && f.num <= 3 {
			v[f.num-1] = math.Float64frombits(f.u)
		}
		return nil
	})
	return v, err
}

func encodeQuat(q mgl64.Quat) []byte {
	var e encoder
	e.float(1, q.W)
	for i, c := range q.V {
		e.float(protowire.Number(i+2), c)
	}
	return e.b
}

func decodeQuat(b []byte) (mgl64.Quat, error) {
	var q mgl64.Quat
	err := walk(b, func(f field) error {
		switch {
		case f.num == 1:
			q.W = math.Float64frombits(f.u)
		case f.num >= 2 && f.num <= 4:
			q.V[f.num-2] = math.Float64frombits(f.u)
		}
		return nil
	})
	return q, err
}
