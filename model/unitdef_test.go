package model

import (
	"math"
	"testing"
)

func TestCapabilityHas(t *testing.T) {
	c := CapMobile | CapSurfToAir
	if !c.Has(CapMobile) || !c.Has(CapSurfToAir) {
		t.Fatalf("missing flags in %s", c)
	}
	if c.Has(CapSurfToLand) {
		t.Error("unexpected surf_to_land")
	}
	if got := c.String(); got != "mobile|surf_to_air" {
		t.Errorf("String() = %q", got)
	}
}

func TestUnitDefClassify(t *testing.T) {
	tests := []struct {
		name     string
		def      UnitDef
		attacker bool
		shield   bool
	}{
		{"armed", UnitDef{DPS: 50}, true, false},
		{"harmless", UnitDef{DPS: 0.05}, false, false},
		{"shield-gen", UnitDef{ShieldRadius: 300}, false, true},
		{"forced", UnitDef{Caps: CapAttacker}, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := tc.def
			d.Classify()
			if d.IsAttacker() != tc.attacker {
				t.Errorf("IsAttacker() = %v, want %v", d.IsAttacker(), tc.attacker)
			}
			if d.HasShield() != tc.shield {
				t.Errorf("HasShield() = %v, want %v", d.HasShield(), tc.shield)
			}
		})
	}
}

func TestUnitDefThreatDamage(t *testing.T) {
	d := UnitDef{DPS: 256, Damage: 16}
	want := float32(math.Sqrt(256) * math.Pow(16, 0.25) / 128)
	if got := d.ThreatDamage(); math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("ThreatDamage() = %v, want %v", got, want)
	}
	if (&UnitDef{}).ThreatDamage() != 0 {
		t.Error("unarmed def should have zero threat damage")
	}
}

func TestUnitDefWeaponSets(t *testing.T) {
	d := UnitDef{Caps: CapSurfToLand | CapSubToWater}
	if !d.HasAntiLand(false) || d.HasAntiLand(true) {
		t.Error("land weapons should only fire from the surface")
	}
	if d.HasAntiWater(false) || !d.HasAntiWater(true) {
		t.Error("water weapons should only fire submerged")
	}
	if !d.InWater(-50, -20) {
		t.Error("expected submerged at y=-20 over deep water")
	}
	if d.InWater(-50, 0) {
		t.Error("surface hull is not submerged")
	}
}

func TestCatalogue(t *testing.T) {
	cat := NewCatalogue([]*UnitDef{
		{ID: 3, Name: "Tank", DPS: 40},
		{ID: 1, Name: "scout"},
	})
	if cat.Len() != 2 {
		t.Fatalf("Len() = %d", cat.Len())
	}
	if d := cat.ByName("tank"); d == nil || !d.IsAttacker() {
		t.Fatalf("ByName(tank) = %+v", d)
	}
	if cat.Get(7) != nil {
		t.Error("unknown id should be nil")
	}
	all := cat.All()
	if all[0].ID != 1 || all[1].ID != 3 {
		t.Errorf("All() not sorted: %d, %d", all[0].ID, all[1].ID)
	}
}

func TestCatalogueAllExtremeIDs(t *testing.T) {
	cat := NewCatalogue([]*UnitDef{
		{ID: math.MaxInt, Name: "last"},
		{ID: math.MinInt, Name: "first"},
		{ID: 0, Name: "middle"},
	})
	all := cat.All()
	if all[0].ID != math.MinInt || all[1].ID != 0 || all[2].ID != math.MaxInt {
		t.Errorf("All() order: %d, %d, %d", all[0].ID, all[1].ID, all[2].ID)
	}
}

func TestParseCapabilities(t *testing.T) {
	c, err := ParseCapabilities([]string{"mobile", "Surf_To_Air", "shield"})
	if err != nil {
		t.Fatal(err)
	}
	if c != CapMobile|CapSurfToAir|CapShield {
		t.Errorf("got %v", c)
	}
	if c.String() != "mobile|surf_to_air|shield" {
		t.Errorf("String() = %q", c.String())
	}
	if _, err := ParseCapabilities([]string{"teleport"}); err == nil {
		t.Error("unknown capability accepted")
	}
}
