package leveldata

import (
	"errors"
	"testing"
	"testing/fstest"
)

const testTMX = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="10" height="8" tilewidth="16" tileheight="16" infinite="0">
 <objectgroup id="1" name="Ground">
  <object id="1" name="floor" x="0" y="16" width="160" height="64">
   <properties>
    <property name="top" type="float" value="0.5"/>
   </properties>
  </object>
 </objectgroup>
 <objectgroup id="2" name="Props">
  <object id="2" name="crate" x="32" y="32" width="16" height="16">
   <properties>
    <property name="bottom" type="float" value="0.5"/>
    <property name="top" type="float" value="1.5"/>
   </properties>
  </object>
 </objectgroup>
 <objectgroup id="3" name="PlayerSpawn">
  <object id="3" x="64" y="48">
   <properties>
    <property name="spawnIndex" type="int" value="1"/>
    <property name="y" type="float" value="0.5"/>
   </properties>
   <point/>
  </object>
  <object id="4" x="16" y="48">
   <properties>
    <property name="spawnIndex" type="int" value="0"/>
   </properties>
   <point/>
  </object>
 </objectgroup>
</map>`

const noGroundTMX = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="4" height="4" tilewidth="16" tileheight="16" infinite="0">
 <objectgroup id="1" name="PlayerSpawn">
  <object id="1" x="16" y="16"><point/></object>
 </objectgroup>
</map>`

func TestLoadLevel(t *testing.T) {
	fsys := fstest.MapFS{"levels/test.tmx": {Data: []byte(testTMX)}}

	lvl, err := LoadLevel(fsys, "levels/test.tmx")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if lvl.Name != "test" || lvl.Width != 10 || lvl.Depth != 8 {
		t.Fatalf("unexpected header: %+v", lvl)
	}
	if len(lvl.Platforms) != 2 {
		t.Fatalf("expected 2 platforms, got %d", len(lvl.Platforms))
	}

	floor := lvl.Platforms[0]
	if floor.Z != 1 || floor.W != 10 || floor.D != 4 || floor.Top != 0.5 || floor.Bottom != -0.5 {
		t.Fatalf("unexpected floor: %+v", floor)
	}
	if floor.Prop {
		t.Fatalf("expected floor on the ground layer")
	}
	if crate := lvl.Platforms[1]; !crate.Prop || crate.Bottom != 0.5 || crate.Top != 1.5 {
		t.Fatalf("unexpected crate: %+v", crate)
	}

	if lvl.Spawns[0].Index != 0 || lvl.Spawns[0].X != 1 {
		t.Fatalf("expected spawns sorted by index, got %+v", lvl.Spawns)
	}
	if s := lvl.Spawns[1]; s.X != 4 || s.Z != 3 || s.Y != 0.5 {
		t.Fatalf("unexpected spawn: %+v", s)
	}
	if lvl.Spawn(3) != lvl.Spawns[1] {
		t.Fatalf("expected spawn selection to wrap")
	}
}

func TestLoadLevelWithoutGround(t *testing.T) {
	fsys := fstest.MapFS{"levels/empty.tmx": {Data: []byte(noGroundTMX)}}

	_, err := LoadLevel(fsys, "levels/empty.tmx")
	if !errors.Is(err, ErrNoGround) {
		t.Fatalf("expected ErrNoGround, got %v", err)
	}
}

func TestLoadAllLevels(t *testing.T) {
	fsys := fstest.MapFS{
		"levels/b.tmx": {Data: []byte(testTMX)},
		"levels/a.tmx": {Data: []byte(testTMX)},
	}

	levels, names, err := LoadAllLevels(fsys, "levels")
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || levels["b"] == nil {
		t.Fatalf("unexpected result: %v", names)
	}
}
