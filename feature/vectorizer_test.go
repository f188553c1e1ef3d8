package feature

import (
	"math"
	"testing"

	"github.com/rushteam/dealkit/core"
)

func TestVectorizer_Vectorize(t *testing.T) {
	v := NewVectorizer(1000)

	tests := []struct {
		name      string
		text      string
		wantZero  bool
		wantTotal float64 // sum of all slots = token count
	}{
		{
			name:      "simple text",
			text:      "electronics cashback",
			wantTotal: 2,
		},
		{
			name:      "punctuation splits tokens",
			text:      "books, movies & games!",
			wantTotal: 3,
		},
		{
			name:     "empty text yields zero vector",
			text:     "",
			wantZero: true,
		},
		{
			name:     "only separators yields zero vector",
			text:     "--- !!! ...",
			wantZero: true,
		},
		{
			name:      "repeated token increments same slot",
			text:      "tech tech tech",
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Vectorize(tt.text)
			if len(got) != 1000 {
				t.Fatalf("len = %d, want 1000", len(got))
			}
			var total float64
			for _, val := range got {
				total += val
			}
			if tt.wantZero && total != 0 {
				t.Errorf("total = %v, want zero vector", total)
			}
			if !tt.wantZero && total != tt.wantTotal {
				t.Errorf("total = %v, want %v", total, tt.wantTotal)
			}
		})
	}
}

func TestVectorizer_Deterministic(t *testing.T) {
	v := NewVectorizer(1000)

	a := v.Vectorize("Fashion Electronics Travel")
	b := v.Vectorize("fashion electronics travel") // case must not matter
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("slot %d differs: %v vs %v", i, a[i], b[i])
		}
	}

	c := v.Vectorize("Fashion Electronics Travel")
	for i := range a {
		if a[i] != c[i] {
			t.Fatalf("same input produced different vectors at slot %d", i)
		}
	}
}

func TestVectorizer_RepeatedTokenSharesSlot(t *testing.T) {
	v := NewVectorizer(1000)
	got := v.Vectorize("tech tech tech")
	for _, val := range got {
		if val != 0 && val != 3 {
			t.Fatalf("expected a single slot with count 3, got slot value %v", val)
		}
	}
}

func TestVectorizer_SurveyVector(t *testing.T) {
	v := NewVectorizer(1000)

	answers := map[string]string{
		"favorite category": "electronics",
		"shopping style":    "bargain hunter",
	}
	got := v.SurveyVector(answers)

	// The survey vector is the slot-wise sum of the per-pair vectors.
	want := make([]float64, 1000)
	for _, pair := range []string{
		"favorite category electronics",
		"shopping style bargain hunter",
	} {
		for i, val := range v.Vectorize(pair) {
			want[i] += val
		}
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d = %v, want %v", i, got[i], want[i])
		}
	}

	empty := v.SurveyVector(nil)
	for i, val := range empty {
		if val != 0 {
			t.Fatalf("empty survey slot %d = %v, want 0", i, val)
		}
	}
}

func TestVectorizer_GeoVector(t *testing.T) {
	v := NewVectorizer(1000)

	got := v.GeoVector(&core.Geolocation{CountryCode: "SE", IP: "192.0.2.1"})
	want := v.Vectorize("SE 192.0.2.1")
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d = %v, want %v", i, got[i], want[i])
		}
	}

	zero := v.GeoVector(nil)
	for i, val := range zero {
		if val != 0 {
			t.Fatalf("nil geo slot %d = %v, want 0", i, val)
		}
	}
}

func TestVectorizer_DeviceVector(t *testing.T) {
	v := NewVectorizer(1000)

	tests := []struct {
		name string
		dev  *core.DeviceContext
		want map[int]float64
	}{
		{
			name: "desktop with all signals at max",
			dev: &core.DeviceContext{
				Class:        "desktop",
				Hour:         23,
				Weekday:      6,
				Month:        11,
				NetworkSpeed: 100,
				ScreenWidth:  3840,
			},
			want: map[int]float64{0: 1, 1: 1, 2: 1, 3: 1, 4: 1, 5: 1},
		},
		{
			name: "mobile with values above the caps clamp to 1",
			dev: &core.DeviceContext{
				Class:        "mobile",
				NetworkSpeed: 500,
				ScreenWidth:  9999,
			},
			want: map[int]float64{0: 1.0 / 3, 4: 1, 5: 1},
		},
		{
			name: "unknown class maps to 0",
			dev:  &core.DeviceContext{Class: "watch"},
			want: map[int]float64{0: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.DeviceVector(tt.dev)
			for slot, want := range tt.want {
				if math.Abs(got[slot]-want) > 1e-9 {
					t.Errorf("slot %d = %v, want %v", slot, got[slot], want)
				}
			}
			// Slots beyond the device block stay zero.
			for i := 6; i < len(got); i++ {
				if got[i] != 0 {
					t.Fatalf("slot %d = %v, want 0", i, got[i])
				}
			}
		})
	}

	zero := v.DeviceVector(nil)
	for i, val := range zero {
		if val != 0 {
			t.Fatalf("nil device slot %d = %v, want 0", i, val)
		}
	}
}
