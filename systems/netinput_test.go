package systems

import (
	"math"
	"testing"

	cfg "github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/go-gl/mathgl/mgl64"
)

type intentFunc func(t tick.Tick) Intent

func (f intentFunc) Intent(t tick.Tick) Intent { return f(t) }

func TestSamplerJumpIsEdgeTriggered(t *testing.T) {
	held := intentFunc(func(tick.Tick) Intent {
		return Intent{Jump: true, CameraForward: mgl64.Vec3{0, 0, 1}}
	})
	s := NewInputSampler(held)

	if in := s.Sample(1); !in.Jump {
		t.Fatal("expected jump on the press tick")
	}
	for tk := tick.Tick(2); tk < 5; tk++ {
		if in := s.Sample(tk); in.Jump {
			t.Fatalf("expected no repeat jump at tick %d while held", tk)
		}
	}
}

func TestSamplerProjectsCamera(t *testing.T) {
	look := intentFunc(func(tick.Tick) Intent {
		return Intent{MoveY: 2, CameraForward: mgl64.Vec3{1, -1, 0}}
	})
	in := NewInputSampler(look).Sample(7)

	if in.Tick != 7 {
		t.Fatalf("expected tick 7, got %d", in.Tick)
	}
	if !in.ViewForward.ApproxEqual(mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("expected forward +x, got %v", in.ViewForward)
	}
	if !in.ViewRight.ApproxEqual(mgl64.Vec3{0, 0, -1}) {
		t.Fatalf("expected right -z, got %v", in.ViewRight)
	}
	if in.MoveY != 1 {
		t.Fatalf("expected move clamped to 1, got %v", in.MoveY)
	}
}

func TestSamplerKeepsBasisLookingDown(t *testing.T) {
	var fwd mgl64.Vec3
	src := intentFunc(func(tick.Tick) Intent { return Intent{CameraForward: fwd} })
	s := NewInputSampler(src)

	fwd = mgl64.Vec3{-1, 0, 0}
	s.Sample(1)
	fwd = mgl64.Vec3{0, -1, 0}
	in := s.Sample(2)
	if !in.ViewForward.ApproxEqual(mgl64.Vec3{-1, 0, 0}) {
		t.Fatalf("expected previous forward kept, got %v", in.ViewForward)
	}
}

func TestScriptedIntentCycles(t *testing.T) {
	s := ScriptedIntent{Hold: 2, Pattern: []Intent{{MoveX: 1}, {MoveX: -1}}}
	want := []float64{1, 1, -1, -1, 1}
	for i, w := range want {
		if got := s.Intent(tick.Tick(i)).MoveX; got != w {
			t.Fatalf("tick %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestWanderIntentIsSeeded(t *testing.T) {
	a := NewWanderIntent(3, cfg.BotDifficultyHard)
	b := NewWanderIntent(3, cfg.BotDifficultyHard)
	moved := false
	for tk := tick.Tick(0); tk < 300; tk++ {
		ia, ib := a.Intent(tk), b.Intent(tk)
		if ia != ib {
			t.Fatalf("tick %d: expected identical intents, got %+v vs %+v", tk, ia, ib)
		}
		if math.Abs(ia.MoveX)+math.Abs(ia.MoveY) > 0 {
			moved = true
		}
	}
	if !moved {
		t.Fatal("expected the bot to move at some point")
	}
}
