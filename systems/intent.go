package systems

import (
	"math"
	"math/rand"

	cfg "github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/go-gl/mathgl/mgl64"
)

// ScriptedIntent cycles through a fixed pattern, holding each step for Hold
// ticks.
type ScriptedIntent struct {
	Pattern []Intent
	Hold    int
}

func (s ScriptedIntent) Intent(t tick.Tick) Intent {
	if len(s.Pattern) == 0 {
		return Intent{CameraForward: mgl64.Vec3{0, 0, 1}}
	}
	hold := s.Hold
	if hold < 1 {
		hold = 1
	}
	return s.Pattern[(int(t)/hold)%len(s.Pattern)]
}

// DefaultScript walks a square and jumps at every corner.
func DefaultScript() ScriptedIntent {
	fwd := mgl64.Vec3{0, -0.3, 1}
	return ScriptedIntent{
		Hold: 45,
		Pattern: []Intent{
			{MoveY: 1, CameraForward: fwd},
			{MoveX: 1, Jump: true, CameraForward: fwd},
			{MoveY: -1, CameraForward: fwd},
			{MoveX: -1, Jump: true, CameraForward: fwd},
		},
	}
}

// WanderIntent is a seeded bot. It keeps a heading for a while, then picks a
// new one; difficulty sets how often and how erratically.
type WanderIntent struct {
	rng    *rand.Rand
	cfg    cfg.BotDifficultyConfig
	yaw    float64
	cur    Intent
	nextAt tick.Tick
}

func NewWanderIntent(seed int64, difficulty cfg.BotDifficulty) *WanderIntent {
	return &WanderIntent{
		rng: rand.New(rand.NewSource(seed)),
		cfg: cfg.Bot.Difficulties[difficulty],
	}
}

// Intent must be called with non-decreasing ticks.
func (w *WanderIntent) Intent(t tick.Tick) Intent {
	if t >= w.nextAt {
		w.decide()
		delay := w.cfg.ReactionDelay
		if delay < 1 {
			delay = 1
		}
		w.nextAt = t + tick.Tick(delay/2+w.rng.Intn(delay+1))
	} else {
		w.cur.Jump = false
	}
	return w.cur
}

func (w *WanderIntent) decide() {
	w.yaw += (w.rng.Float64()*2 - 1) * w.cfg.TurnJitter
	w.cur = Intent{
		CameraForward: mgl64.Vec3{math.Sin(w.yaw), -0.3, math.Cos(w.yaw)},
	}
	if w.rng.Float64() < w.cfg.IdleChance {
		return
	}
	angle := w.rng.Float64() * 2 * math.Pi
	w.cur.MoveX = math.Sin(angle)
	w.cur.MoveY = math.Cos(angle)
	w.cur.Jump = w.rng.Float64() < w.cfg.JumpChance
}

// IdleAfter forwards Source until tick At, then stands still.
type IdleAfter struct {
	Source IntentSource
	At     tick.Tick
}

func (i IdleAfter) Intent(t tick.Tick) Intent {
	if t >= i.At {
		return Intent{CameraForward: mgl64.Vec3{0, 0, 1}}
	}
	return i.Source.Intent(t)
}
