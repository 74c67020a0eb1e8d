package systems

import (
	"github.com/automoto/rollback-mp/components"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/tags"
	"github.com/leap-fish/necs/esync"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var remoteQuery = donburi.NewQuery(filter.Contains(tags.Remote, components.NetInterp, netcomponents.NetBody))

// RemoteBody is one replicated body as received.
type RemoteBody struct {
	Body   netcomponents.NetBodyData
	Avatar *netcomponents.NetAvatarData
}

// RemoteInterp mirrors the other players into a donburi world and
// interpolates them between snapshots. The local body is skipped; it is
// predicted, not replicated.
type RemoteInterp struct {
	world   donburi.World
	local   esync.NetworkId
	step    float64 // interpolation progress per tick
	present map[esync.NetworkId]bool
}

// NewRemoteInterp interpolates over one snapshot interval, expressed in
// simulation ticks.
func NewRemoteInterp(world donburi.World, ticksPerSnapshot int) *RemoteInterp {
	if ticksPerSnapshot < 1 {
		ticksPerSnapshot = 1
	}
	return &RemoteInterp{
		world:   world,
		step:    1 / float64(ticksPerSnapshot),
		present: make(map[esync.NetworkId]bool),
	}
}

func (r *RemoteInterp) SetLocal(id esync.NetworkId) { r.local = id }

// ApplySnapshot decodes an esync world snapshot and applies it.
func (r *RemoteInterp) ApplySnapshot(snapshot esync.WorldSnapshot) {
	bodies := make(map[esync.NetworkId]RemoteBody, len(snapshot))
	for _, ent := range snapshot {
		var rb RemoteBody
		var hasBody bool
		for _, componentBytes := range ent.State {
			instance, err := esync.Mapper.Deserialize(componentBytes)
			if err != nil {
				continue
			}
			switch v := instance.(type) {
			case netcomponents.NetBodyData:
				rb.Body = v
				hasBody = true
			case netcomponents.NetAvatarData:
				rb.Avatar = &v
			}
		}
		if hasBody {
			bodies[ent.Id] = rb
		}
	}
	r.Apply(bodies)
}

// Apply replaces the replicated set. Bodies missing from it are removed.
func (r *RemoteInterp) Apply(bodies map[esync.NetworkId]RemoteBody) {
	clear(r.present)

	for id, rb := range bodies {
		if id == r.local {
			continue
		}
		r.present[id] = true

		entity := esync.FindByNetworkId(r.world, id)
		if !r.world.Valid(entity) {
			entity = r.world.Create(tags.Remote, esync.NetworkIdComponent,
				netcomponents.NetBody, netcomponents.NetAvatar, components.NetInterp)
			entry := r.world.Entry(entity)
			esync.NetworkIdComponent.SetValue(entry, id)
		}
		entry := r.world.Entry(entity)

		if rb.Avatar != nil {
			avatar := *rb.Avatar
			avatar.IsLocal = false
			netcomponents.NetAvatar.SetValue(entry, avatar)
		}

		interp := components.NetInterp.Get(entry)
		if !interp.Initialized {
			// First snapshot: place directly, nothing to interpolate from.
			netcomponents.NetBody.SetValue(entry, rb.Body)
			interp.Prev = rb.Body
			interp.Target = rb.Body
			interp.T = 1
			interp.Initialized = true
			continue
		}
		interp.Prev = *netcomponents.NetBody.Get(entry)
		interp.Target = rb.Body
		interp.T = 0
	}

	var stale []*donburi.Entry
	remoteQuery.Each(r.world, func(entry *donburi.Entry) {
		id := esync.GetNetworkId(entry)
		if id == nil || !r.present[*id] {
			stale = append(stale, entry)
		}
	})
	for _, entry := range stale {
		entry.Remove()
	}
}

// Remove drops one body, e.g. on a PlayerLeftEvent.
func (r *RemoteInterp) Remove(id esync.NetworkId) {
	entity := esync.FindByNetworkId(r.world, id)
	if r.world.Valid(entity) {
		r.world.Remove(entity)
	}
}

// Update advances every remote body one tick toward its target.
func (r *RemoteInterp) Update() {
	remoteQuery.Each(r.world, func(entry *donburi.Entry) {
		interp := components.NetInterp.Get(entry)
		if interp.T >= 1 {
			return
		}
		interp.T = min(interp.T+r.step, 1)
		netcomponents.NetBody.Set(entry, netcomponents.LerpNetBody(interp.Prev, interp.Target, interp.T))
	})
}

// Bodies returns the current interpolated body of every remote player.
func (r *RemoteInterp) Bodies() map[esync.NetworkId]netcomponents.NetBodyData {
	out := make(map[esync.NetworkId]netcomponents.NetBodyData)
	remoteQuery.Each(r.world, func(entry *donburi.Entry) {
		if id := esync.GetNetworkId(entry); id != nil {
			out[*id] = *netcomponents.NetBody.Get(entry)
		}
	})
	return out
}
